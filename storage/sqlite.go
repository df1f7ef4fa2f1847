package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"miway.dev/gtfs/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

// One database per prefix. On disk, the prefix's database is the
// file <Directory>/<prefix>gtfs.db.
type SQLiteStorage struct {
	SQLiteConfig

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

type SQLiteOutputWriter struct {
	storage *SQLiteStorage
	prefix  string
	path    string
	db      *sql.DB
	tx      *sql.Tx
	done    bool
}

type SQLiteOutputReader struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE agency (
    id TEXT NOT NULL,
    timezone TEXT NOT NULL,
    color TEXT NOT NULL,
    route_type INTEGER NOT NULL
);

CREATE TABLE routes (
    id TEXT PRIMARY KEY,
    short_name TEXT NOT NULL,
    long_name TEXT NOT NULL,
    color TEXT NOT NULL
);

CREATE TABLE trips (
    route_id TEXT NOT NULL,
    headsign TEXT NOT NULL,
    direction_id INTEGER NOT NULL,
    direction TEXT NOT NULL,
    PRIMARY KEY (route_id, direction_id, headsign, direction)
);

CREATE TABLE stops (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL
);

CREATE TABLE service_dates (
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    PRIMARY KEY (service_id, date)
);
`

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	s := &SQLiteStorage{dbs: map[string]*sql.DB{}}
	if len(cfg) > 0 {
		s.SQLiteConfig = cfg[0]
	}

	if s.OnDisk {
		if err := os.MkdirAll(s.Directory, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", s.Directory, err)
		}
	}

	return s, nil
}

func (s *SQLiteStorage) path(prefix string) string {
	return filepath.Join(s.Directory, prefix+"gtfs.db")
}

func openSQLite(sourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: gets its own database.
	db.SetMaxOpenConns(1)

	return db, nil
}

func (s *SQLiteStorage) GetReader(prefix string) (OutputReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, found := s.dbs[prefix]
	if found {
		return &SQLiteOutputReader{db: db}, nil
	}
	if !s.OnDisk {
		return nil, fmt.Errorf("no output for prefix '%s'", prefix)
	}

	sourceName := s.path(prefix)
	if _, err := os.Stat(sourceName); os.IsNotExist(err) {
		return nil, fmt.Errorf("no output for prefix '%s' at %s", prefix, sourceName)
	}

	db, err := openSQLite(sourceName)
	if err != nil {
		return nil, err
	}
	s.dbs[prefix] = db

	return &SQLiteOutputReader{db: db}, nil
}

// On disk, output is written to a temporary file that replaces the
// prefix's database on Close.
func (s *SQLiteStorage) GetWriter(prefix string) (OutputWriter, error) {
	sourceName := ":memory:"
	path := ""
	if s.OnDisk {
		path = s.path(prefix)
		sourceName = path + ".tmp"
		if err := os.Remove(sourceName); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale %s: %w", sourceName, err)
		}
	}

	db, err := openSQLite(sourceName)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(sqliteSchema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	return &SQLiteOutputWriter{
		storage: s,
		prefix:  prefix,
		path:    path,
		db:      db,
		tx:      tx,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for prefix, db := range s.dbs {
		if err := db.Close(); err != nil {
			return fmt.Errorf("closing database for '%s': %w", prefix, err)
		}
		delete(s.dbs, prefix)
	}
	return nil
}

func (w *SQLiteOutputWriter) WriteAgency(a *model.OutputAgency) error {
	_, err := w.tx.Exec(`
INSERT INTO agency (id, timezone, color, route_type)
VALUES (?, ?, ?, ?)`,
		a.ID,
		a.Timezone,
		a.Color,
		int(a.RouteType),
	)
	if err != nil {
		return fmt.Errorf("inserting agency: %w", err)
	}
	return nil
}

func (w *SQLiteOutputWriter) WriteRoute(r *model.OutputRoute) error {
	_, err := w.tx.Exec(`
INSERT INTO routes (id, short_name, long_name, color)
VALUES (?, ?, ?, ?)`,
		r.ID,
		r.ShortName,
		r.LongName,
		r.Color,
	)
	if err != nil {
		return fmt.Errorf("inserting route: %w", err)
	}
	return nil
}

func (w *SQLiteOutputWriter) WriteTrip(t *model.OutputTrip) error {
	_, err := w.tx.Exec(`
INSERT INTO trips (route_id, headsign, direction_id, direction)
VALUES (?, ?, ?, ?)`,
		t.RouteID,
		t.Headsign,
		int(t.DirectionID),
		t.Direction.String(),
	)
	if err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}
	return nil
}

func (w *SQLiteOutputWriter) WriteStop(s *model.OutputStop) error {
	_, err := w.tx.Exec(`
INSERT INTO stops (id, code, name, lat, lon)
VALUES (?, ?, ?, ?, ?)`,
		s.ID,
		s.Code,
		s.Name,
		s.Lat,
		s.Lon,
	)
	if err != nil {
		return fmt.Errorf("inserting stop: %w", err)
	}
	return nil
}

func (w *SQLiteOutputWriter) WriteServiceDate(d *model.ServiceDate) error {
	_, err := w.tx.Exec(`
INSERT INTO service_dates (service_id, date)
VALUES (?, ?)`,
		d.ServiceID,
		d.Date,
	)
	if err != nil {
		return fmt.Errorf("inserting service date: %w", err)
	}
	return nil
}

// Rolls back and drops the half-written database, leaving whatever
// the prefix held before.
func (w *SQLiteOutputWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	w.tx.Rollback()
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	if w.path != "" {
		if err := os.Remove(w.path + ".tmp"); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s.tmp: %w", w.path, err)
		}
	}
	return nil
}

func (w *SQLiteOutputWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		if w.path != "" {
			os.Remove(w.path + ".tmp")
		}
		return fmt.Errorf("committing: %w", err)
	}

	w.storage.mu.Lock()
	defer w.storage.mu.Unlock()

	if old, found := w.storage.dbs[w.prefix]; found {
		old.Close()
		delete(w.storage.dbs, w.prefix)
	}

	if w.path == "" {
		w.storage.dbs[w.prefix] = w.db
		return nil
	}

	// Readers reopen the file under its final name.
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	if err := os.Rename(w.path+".tmp", w.path); err != nil {
		return fmt.Errorf("renaming database: %w", err)
	}
	return nil
}

func (r *SQLiteOutputReader) Agency() (*model.OutputAgency, error) {
	a := &model.OutputAgency{}
	err := r.db.QueryRow(`
SELECT id, timezone, color, route_type
FROM agency
LIMIT 1`).Scan(
		&a.ID,
		&a.Timezone,
		&a.Color,
		&a.RouteType,
	)
	if err != nil {
		return nil, fmt.Errorf("querying agency: %w", err)
	}
	return a, nil
}

func (r *SQLiteOutputReader) Routes() ([]model.OutputRoute, error) {
	rows, err := r.db.Query(`
SELECT id, short_name, long_name, color
FROM routes
ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	routes := []model.OutputRoute{}
	for rows.Next() {
		var route model.OutputRoute
		err := rows.Scan(
			&route.ID,
			&route.ShortName,
			&route.LongName,
			&route.Color,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, route)
	}

	return routes, rows.Err()
}

func (r *SQLiteOutputReader) Trips() ([]model.OutputTrip, error) {
	rows, err := r.db.Query(`
SELECT route_id, headsign, direction_id, direction
FROM trips`)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	out := &model.Output{Trips: []model.OutputTrip{}}
	for rows.Next() {
		var trip model.OutputTrip
		var direction string
		err := rows.Scan(
			&trip.RouteID,
			&trip.Headsign,
			&trip.DirectionID,
			&direction,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		trip.Direction = model.ParseDirectionType(direction)
		out.Trips = append(out.Trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Direction is stored as text, so order in Go.
	out.Sort()

	return out.Trips, nil
}

func (r *SQLiteOutputReader) Stops() ([]model.OutputStop, error) {
	rows, err := r.db.Query(`
SELECT id, code, name, lat, lon
FROM stops
ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []model.OutputStop{}
	for rows.Next() {
		var stop model.OutputStop
		err := rows.Scan(
			&stop.ID,
			&stop.Code,
			&stop.Name,
			&stop.Lat,
			&stop.Lon,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stops = append(stops, stop)
	}

	return stops, rows.Err()
}

func (r *SQLiteOutputReader) ServiceDates() ([]model.ServiceDate, error) {
	rows, err := r.db.Query(`
SELECT service_id, date
FROM service_dates
ORDER BY service_id, date`)
	if err != nil {
		return nil, fmt.Errorf("querying service dates: %w", err)
	}
	defer rows.Close()

	dates := []model.ServiceDate{}
	for rows.Next() {
		var d model.ServiceDate
		if err := rows.Scan(&d.ServiceID, &d.Date); err != nil {
			return nil, fmt.Errorf("scanning service date: %w", err)
		}
		dates = append(dates, d)
	}

	return dates, rows.Err()
}
