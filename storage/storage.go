package storage

import (
	"fmt"

	"miway.dev/gtfs/model"
)

// Persists generated output. Each agency's output lives under a
// prefix, and writing a prefix replaces whatever was stored there
// before.
type Storage interface {
	// Gets a writer for the given prefix. Nothing is visible to
	// readers until the writer is closed.
	GetWriter(prefix string) (OutputWriter, error)

	// Gets a reader for the given prefix. Fails if nothing has
	// been written under it.
	GetReader(prefix string) (OutputReader, error)

	Close() error
}

type OutputWriter interface {
	WriteAgency(agency *model.OutputAgency) error
	WriteRoute(route *model.OutputRoute) error
	WriteTrip(trip *model.OutputTrip) error
	WriteStop(stop *model.OutputStop) error
	WriteServiceDate(date *model.ServiceDate) error

	// Close publishes everything written. Abort discards it and frees
	// the writer's resources. Calling either after the other is a
	// no-op.
	Close() error
	Abort() error
}

// Lists come back in the order of model.Output.Sort.
type OutputReader interface {
	Agency() (*model.OutputAgency, error)
	Routes() ([]model.OutputRoute, error)
	Trips() ([]model.OutputTrip, error)
	Stops() ([]model.OutputStop, error)
	ServiceDates() ([]model.ServiceDate, error)
}

// Writes all of out and closes the writer. On a failed write the
// writer is aborted and the prefix keeps its previous content.
func WriteOutput(w OutputWriter, out *model.Output) error {
	if err := writeRecords(w, out); err != nil {
		w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}
	return nil
}

func writeRecords(w OutputWriter, out *model.Output) error {
	if err := w.WriteAgency(&out.Agency); err != nil {
		return fmt.Errorf("writing agency: %w", err)
	}
	for i := range out.Routes {
		if err := w.WriteRoute(&out.Routes[i]); err != nil {
			return fmt.Errorf("writing route '%s': %w", out.Routes[i].ID, err)
		}
	}
	for i := range out.Trips {
		if err := w.WriteTrip(&out.Trips[i]); err != nil {
			return fmt.Errorf("writing trip: %w", err)
		}
	}
	for i := range out.Stops {
		if err := w.WriteStop(&out.Stops[i]); err != nil {
			return fmt.Errorf("writing stop '%s': %w", out.Stops[i].ID, err)
		}
	}
	for i := range out.ServiceDates {
		if err := w.WriteServiceDate(&out.ServiceDates[i]); err != nil {
			return fmt.Errorf("writing service date: %w", err)
		}
	}
	return nil
}

// Reads everything under a prefix back into an Output.
func ReadOutput(r OutputReader) (*model.Output, error) {
	agency, err := r.Agency()
	if err != nil {
		return nil, fmt.Errorf("reading agency: %w", err)
	}

	out := &model.Output{Agency: *agency}

	out.Routes, err = r.Routes()
	if err != nil {
		return nil, fmt.Errorf("reading routes: %w", err)
	}
	out.Trips, err = r.Trips()
	if err != nil {
		return nil, fmt.Errorf("reading trips: %w", err)
	}
	out.Stops, err = r.Stops()
	if err != nil {
		return nil, fmt.Errorf("reading stops: %w", err)
	}
	out.ServiceDates, err = r.ServiceDates()
	if err != nil {
		return nil, fmt.Errorf("reading service dates: %w", err)
	}

	return out, nil
}
