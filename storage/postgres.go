package storage

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"miway.dev/gtfs/model"
)

type PSQLStorage struct {
	db *sql.DB
}

// Buffers everything and replaces the prefix's rows in a single
// transaction on Close.
type PSQLOutputWriter struct {
	prefix       string
	db           *sql.DB
	agency       *model.OutputAgency
	routes       []model.OutputRoute
	trips        []model.OutputTrip
	stops        []model.OutputStop
	serviceDates []model.ServiceDate
	done         bool
}

type PSQLOutputReader struct {
	prefix string
	db     *sql.DB
}

var psqlTables = []string{"agency", "routes", "trips", "stops", "service_dates"}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		for _, table := range psqlTables {
			if _, err := db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
				db.Close()
				return nil, fmt.Errorf("dropping %s: %w", table, err)
			}
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS agency (
    prefix TEXT NOT NULL,
    id TEXT NOT NULL,
    timezone TEXT NOT NULL,
    color TEXT NOT NULL,
    route_type INTEGER NOT NULL,
    PRIMARY KEY (prefix)
);

CREATE TABLE IF NOT EXISTS routes (
    prefix TEXT NOT NULL,
    id TEXT NOT NULL,
    short_name TEXT NOT NULL,
    long_name TEXT NOT NULL,
    color TEXT NOT NULL,
    PRIMARY KEY (prefix, id)
);

CREATE TABLE IF NOT EXISTS trips (
    prefix TEXT NOT NULL,
    route_id TEXT NOT NULL,
    headsign TEXT NOT NULL,
    direction_id SMALLINT NOT NULL,
    direction TEXT NOT NULL,
    PRIMARY KEY (prefix, route_id, direction_id, headsign, direction)
);

CREATE TABLE IF NOT EXISTS stops (
    prefix TEXT NOT NULL,
    id TEXT NOT NULL,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (prefix, id)
);

CREATE TABLE IF NOT EXISTS service_dates (
    prefix TEXT NOT NULL,
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    PRIMARY KEY (prefix, service_id, date)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

func (s *PSQLStorage) GetReader(prefix string) (OutputReader, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM agency WHERE prefix = $1`, prefix).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("checking prefix: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("no output for prefix '%s'", prefix)
	}

	return &PSQLOutputReader{
		prefix: prefix,
		db:     s.db,
	}, nil
}

func (s *PSQLStorage) GetWriter(prefix string) (OutputWriter, error) {
	return &PSQLOutputWriter{
		prefix: prefix,
		db:     s.db,
	}, nil
}

func (w *PSQLOutputWriter) WriteAgency(a *model.OutputAgency) error {
	agency := *a
	w.agency = &agency
	return nil
}

func (w *PSQLOutputWriter) WriteRoute(r *model.OutputRoute) error {
	w.routes = append(w.routes, *r)
	return nil
}

func (w *PSQLOutputWriter) WriteTrip(t *model.OutputTrip) error {
	w.trips = append(w.trips, *t)
	return nil
}

func (w *PSQLOutputWriter) WriteStop(s *model.OutputStop) error {
	w.stops = append(w.stops, *s)
	return nil
}

func (w *PSQLOutputWriter) WriteServiceDate(d *model.ServiceDate) error {
	w.serviceDates = append(w.serviceDates, *d)
	return nil
}

// Runs a COPY into table, with row(i) supplying the values of row i.
func copyIn(tx *sql.Tx, table string, columns []string, n int, row func(i int) []interface{}) error {
	stmt, err := tx.Prepare(pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("preparing COPY %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(row(i)...); err != nil {
			return fmt.Errorf("COPY %s: %w", table, err)
		}
	}

	if _, err := stmt.Exec(); err != nil {
		return fmt.Errorf("flushing COPY %s: %w", table, err)
	}
	return nil
}

// Nothing reaches the database before Close, so dropping the buffers
// is enough.
func (w *PSQLOutputWriter) Abort() error {
	w.done = true
	w.agency = nil
	w.routes, w.trips, w.stops, w.serviceDates = nil, nil, nil, nil
	return nil
}

func (w *PSQLOutputWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.agency == nil {
		return fmt.Errorf("no agency written for prefix '%s'", w.prefix)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range psqlTables {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE prefix = $1`, w.prefix); err != nil {
			return fmt.Errorf("deleting %s records: %w", table, err)
		}
	}

	_, err = tx.Exec(`
INSERT INTO agency (prefix, id, timezone, color, route_type)
VALUES ($1, $2, $3, $4, $5)`,
		w.prefix,
		w.agency.ID,
		w.agency.Timezone,
		w.agency.Color,
		int(w.agency.RouteType),
	)
	if err != nil {
		return fmt.Errorf("inserting agency: %w", err)
	}

	err = copyIn(tx, "routes",
		[]string{"prefix", "id", "short_name", "long_name", "color"},
		len(w.routes),
		func(i int) []interface{} {
			r := w.routes[i]
			return []interface{}{w.prefix, r.ID, r.ShortName, r.LongName, r.Color}
		})
	if err != nil {
		return err
	}

	err = copyIn(tx, "trips",
		[]string{"prefix", "route_id", "headsign", "direction_id", "direction"},
		len(w.trips),
		func(i int) []interface{} {
			t := w.trips[i]
			return []interface{}{w.prefix, t.RouteID, t.Headsign, int(t.DirectionID), t.Direction.String()}
		})
	if err != nil {
		return err
	}

	err = copyIn(tx, "stops",
		[]string{"prefix", "id", "code", "name", "lat", "lon"},
		len(w.stops),
		func(i int) []interface{} {
			s := w.stops[i]
			return []interface{}{w.prefix, s.ID, s.Code, s.Name, s.Lat, s.Lon}
		})
	if err != nil {
		return err
	}

	err = copyIn(tx, "service_dates",
		[]string{"prefix", "service_id", "date"},
		len(w.serviceDates),
		func(i int) []interface{} {
			d := w.serviceDates[i]
			return []interface{}{w.prefix, d.ServiceID, d.Date}
		})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (r *PSQLOutputReader) Agency() (*model.OutputAgency, error) {
	a := &model.OutputAgency{}
	var routeType int
	err := r.db.QueryRow(`
SELECT id, timezone, color, route_type
FROM agency
WHERE prefix = $1`, r.prefix).Scan(
		&a.ID,
		&a.Timezone,
		&a.Color,
		&routeType,
	)
	if err != nil {
		return nil, fmt.Errorf("querying agency: %w", err)
	}
	a.RouteType = model.RouteType(routeType)
	return a, nil
}

func (r *PSQLOutputReader) Routes() ([]model.OutputRoute, error) {
	rows, err := r.db.Query(`
SELECT id, short_name, long_name, color
FROM routes
WHERE prefix = $1
ORDER BY id COLLATE "C"`, r.prefix)
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

func (r *PSQLOutputReader) Trips() ([]model.OutputTrip, error) {
	rows, err := r.db.Query(`
SELECT route_id, headsign, direction_id, direction
FROM trips
WHERE prefix = $1`, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	out := &model.Output{Trips: []model.OutputTrip{}}
	for rows.Next() {
		var trip model.OutputTrip
		var directionID int
		var direction string
		err := rows.Scan(
			&trip.RouteID,
			&trip.Headsign,
			&directionID,
			&direction,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		trip.DirectionID = int8(directionID)
		trip.Direction = model.ParseDirectionType(direction)
		out.Trips = append(out.Trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.Sort()

	return out.Trips, nil
}

func (r *PSQLOutputReader) Stops() ([]model.OutputStop, error) {
	rows, err := r.db.Query(`
SELECT id, code, name, lat, lon
FROM stops
WHERE prefix = $1
ORDER BY id COLLATE "C"`, r.prefix)
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

func (r *PSQLOutputReader) ServiceDates() ([]model.ServiceDate, error) {
	rows, err := r.db.Query(`
SELECT service_id, date
FROM service_dates
WHERE prefix = $1
ORDER BY service_id COLLATE "C", date`, r.prefix)
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
