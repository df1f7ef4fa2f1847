package storage

import (
	"fmt"
	"sync"

	"miway.dev/gtfs/model"
)

// In memory implementation of Storage below

type MemoryStorage struct {
	mu      sync.RWMutex
	outputs map[string]*model.Output
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		outputs: map[string]*model.Output{},
	}
}

func (s *MemoryStorage) GetReader(prefix string) (OutputReader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, ok := s.outputs[prefix]
	if !ok {
		return nil, fmt.Errorf("no output for prefix '%s'", prefix)
	}
	return &MemoryOutputReader{out: out}, nil
}

func (s *MemoryStorage) GetWriter(prefix string) (OutputWriter, error) {
	return &MemoryOutputWriter{
		storage: s,
		prefix:  prefix,
		out:     &model.Output{},
	}, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

type MemoryOutputWriter struct {
	storage *MemoryStorage
	prefix  string
	out     *model.Output
	done    bool
}

func (w *MemoryOutputWriter) WriteAgency(agency *model.OutputAgency) error {
	w.out.Agency = *agency
	return nil
}

func (w *MemoryOutputWriter) WriteRoute(route *model.OutputRoute) error {
	w.out.Routes = append(w.out.Routes, *route)
	return nil
}

func (w *MemoryOutputWriter) WriteTrip(trip *model.OutputTrip) error {
	w.out.Trips = append(w.out.Trips, *trip)
	return nil
}

func (w *MemoryOutputWriter) WriteStop(stop *model.OutputStop) error {
	w.out.Stops = append(w.out.Stops, *stop)
	return nil
}

func (w *MemoryOutputWriter) WriteServiceDate(date *model.ServiceDate) error {
	w.out.ServiceDates = append(w.out.ServiceDates, *date)
	return nil
}

func (w *MemoryOutputWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	w.out.Sort()

	w.storage.mu.Lock()
	defer w.storage.mu.Unlock()
	w.storage.outputs[w.prefix] = w.out
	return nil
}

func (w *MemoryOutputWriter) Abort() error {
	w.done = true
	w.out = nil
	return nil
}

type MemoryOutputReader struct {
	out *model.Output
}

func (r *MemoryOutputReader) Agency() (*model.OutputAgency, error) {
	agency := r.out.Agency
	return &agency, nil
}

func (r *MemoryOutputReader) Routes() ([]model.OutputRoute, error) {
	return append([]model.OutputRoute{}, r.out.Routes...), nil
}

func (r *MemoryOutputReader) Trips() ([]model.OutputTrip, error) {
	return append([]model.OutputTrip{}, r.out.Trips...), nil
}

func (r *MemoryOutputReader) Stops() ([]model.OutputStop, error) {
	return append([]model.OutputStop{}, r.out.Stops...), nil
}

func (r *MemoryOutputReader) ServiceDates() ([]model.ServiceDate, error) {
	return append([]model.ServiceDate{}, r.out.ServiceDates...), nil
}
