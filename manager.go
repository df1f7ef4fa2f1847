package gtfs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"miway.dev/gtfs/agency"
	"miway.dev/gtfs/downloader"
	"miway.dev/gtfs/model"
	"miway.dev/gtfs/parse"
	"miway.dev/gtfs/storage"
)

const (
	DefaultStaticTimeout = 60 * time.Second
	DefaultStaticMaxSize = 800 << 20 // 800 MB
)

// Manager generates agency output from GTFS archives and keeps it in
// storage.
type Manager struct {
	StaticTimeout time.Duration
	StaticMaxSize int

	// Enables downloader caching when non-zero.
	CacheTTL time.Duration

	Downloader downloader.Downloader
	Logger     *zap.Logger

	storage storage.Storage
}

// Creates a new Manager on top of the given storage. Downloads are
// not cached unless CacheTTL is set.
func NewManager(s storage.Storage, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		StaticTimeout: DefaultStaticTimeout,
		StaticMaxSize: DefaultStaticMaxSize,

		Downloader: downloader.NewMemory(logger),
		Logger:     logger,

		storage: s,
	}
}

// Generates output for a single agency from the archive at location (a
// URL or a local path), and stores it under prefix.
//
// When the agency excludes all data for the given services, nothing is
// read or stored and an empty Output is returned.
func (m *Manager) Generate(
	ctx context.Context,
	a agency.Agency,
	services *agency.ServiceIDs,
	location string,
	prefix string,
) (*model.Output, error) {
	start := time.Now()
	logger := m.Logger.With(zap.String("agency", a.Name()), zap.String("prefix", prefix))

	logger.Info(fmt.Sprintf("Generating %s data...", a.Name()))

	if a.ExcludingAll(services) {
		logger.Info(fmt.Sprintf("Generating %s data... SKIP (excluding all)", a.Name()))
		return &model.Output{
			Agency: model.OutputAgency{
				Color:     a.AgencyColor(),
				RouteType: a.AgencyRouteType(),
			},
			Routes:       []model.OutputRoute{},
			Trips:        []model.OutputTrip{},
			Stops:        []model.OutputStop{},
			ServiceDates: []model.ServiceDate{},
		}, nil
	}

	body, err := downloader.Fetch(ctx, m.Downloader, location, downloader.GetOptions{
		Cache:    m.CacheTTL > 0,
		CacheTTL: m.CacheTTL,
		Timeout:  m.StaticTimeout,
		MaxSize:  m.StaticMaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	gen := NewGenerator(a, services, logger)
	metadata, err := parse.ParseStatic(gen, body)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	out, err := gen.Build()
	if err != nil {
		return nil, fmt.Errorf("generating: %w", err)
	}

	writer, err := m.storage.GetWriter(prefix)
	if err != nil {
		return nil, fmt.Errorf("getting writer: %w", err)
	}
	err = storage.WriteOutput(writer, out)
	if err != nil {
		return nil, fmt.Errorf("storing output: %w", err)
	}

	logger.Info(fmt.Sprintf("Generating %s data... DONE", a.Name()),
		zap.Duration("in", time.Since(start)),
		zap.String("calendar_start", metadata.CalendarStartDate),
		zap.String("calendar_end", metadata.CalendarEndDate),
	)

	return out, nil
}

// Loads previously generated output.
func (m *Manager) Load(prefix string) (*model.Output, error) {
	reader, err := m.storage.GetReader(prefix)
	if err != nil {
		return nil, fmt.Errorf("getting reader: %w", err)
	}
	out, err := storage.ReadOutput(reader)
	if err != nil {
		return nil, fmt.Errorf("reading output: %w", err)
	}
	return out, nil
}

func (m *Manager) Close() error {
	return m.storage.Close()
}
