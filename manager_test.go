package gtfs_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"miway.dev/gtfs"
	"miway.dev/gtfs/agency"
	"miway.dev/gtfs/downloader"
	"miway.dev/gtfs/miway"
	"miway.dev/gtfs/testutil"
)

type MockGTFSServer struct {
	Feeds    map[string][]byte
	Requests []string
	Server   *httptest.Server
}

func (m *MockGTFSServer) handler(w http.ResponseWriter, r *http.Request) {
	m.Requests = append(m.Requests, r.URL.Path)
	if feed, found := m.Feeds[r.URL.Path]; found {
		w.Write(feed)
	} else {
		w.WriteHeader(http.StatusNotFound)
	}
}

func managerFixture(t *testing.T) *MockGTFSServer {
	m := &MockGTFSServer{
		Feeds:    map[string][]byte{},
		Requests: []string{},
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handler))
	t.Cleanup(m.Server.Close)
	return m
}

func TestManagerGenerateFromURL(t *testing.T) {
	for _, backend := range testutil.Backends() {
		t.Run(backend, func(t *testing.T) {
			server := managerFixture(t)
			server.Feeds["/GTFS/google_transit.zip"] = testutil.BuildZip(t, testutil.MiWayFeed())

			core, logs := observer.New(zapcore.InfoLevel)
			m := gtfs.NewManager(testutil.BuildStorage(t, backend), zap.New(core))

			out, err := m.Generate(
				context.Background(),
				miway.New(),
				agency.NewServiceIDs("weekday", "saturday"),
				server.Server.URL+"/GTFS/google_transit.zip",
				"mississauga_",
			)
			require.NoError(t, err)
			assert.Equal(t, expectedMiWayOutput(), out)
			assert.Equal(t, []string{"/GTFS/google_transit.zip"}, server.Requests)

			// Output was stored under the prefix.
			stored, err := m.Load("mississauga_")
			require.NoError(t, err)
			assert.Equal(t, expectedMiWayOutput(), stored)

			_, err = m.Load("other_")
			assert.Error(t, err)

			assert.Equal(t, 1, logs.FilterMessage("Generating Mississauga MiWay bus data...").Len())
			done := logs.FilterMessage("Generating Mississauga MiWay bus data... DONE").All()
			require.Len(t, done, 1)
			assert.Contains(t, done[0].ContextMap(), "in")
		})
	}
}

func TestManagerGenerateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(path, testutil.BuildZip(t, testutil.MiWayFeed()), 0644))

	m := gtfs.NewManager(testutil.BuildStorage(t, "memory"), nil)
	out, err := m.Generate(context.Background(), miway.New(), agency.NewServiceIDs("weekday", "saturday"), path, "")
	require.NoError(t, err)
	assert.Equal(t, expectedMiWayOutput(), out)
}

func TestManagerExcludingAll(t *testing.T) {
	server := managerFixture(t)

	m := gtfs.NewManager(testutil.BuildStorage(t, "memory"), nil)
	out, err := m.Generate(
		context.Background(),
		miway.New(),
		agency.NewServiceIDs(),
		server.Server.URL+"/GTFS/google_transit.zip",
		"mississauga_",
	)
	require.NoError(t, err)

	// Nothing downloaded, nothing stored.
	assert.Empty(t, server.Requests)
	assert.Empty(t, out.Routes)
	assert.Empty(t, out.Trips)
	assert.Empty(t, out.Stops)
	assert.Empty(t, out.ServiceDates)
	assert.Equal(t, "D33517", out.Agency.Color)

	_, err = m.Load("mississauga_")
	assert.Error(t, err)
}

func TestManagerGenerateErrors(t *testing.T) {
	server := managerFixture(t)

	files := testutil.MiWayFeed()
	files["trips.txt"] = append(files["trips.txt"], "1,weekday,t7,Downtown,0")
	server.Feeds["/bad_direction.zip"] = testutil.BuildZip(t, files)
	server.Feeds["/broken.zip"] = []byte("not a zip")

	m := gtfs.NewManager(testutil.BuildStorage(t, "memory"), nil)
	ctx := context.Background()

	_, err := m.Generate(ctx, miway.New(), nil, server.Server.URL+"/bad_direction.zip", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, miway.ErrUnexpectedDirection))

	_, err = m.Generate(ctx, miway.New(), nil, server.Server.URL+"/broken.zip", "")
	assert.Error(t, err)

	_, err = m.Generate(ctx, miway.New(), nil, server.Server.URL+"/missing.zip", "")
	assert.Error(t, err)

	// Failed runs leave storage untouched.
	_, err = m.Load("")
	assert.Error(t, err)
}

func TestManagerCachedDownloads(t *testing.T) {
	server := managerFixture(t)
	server.Feeds["/gtfs.zip"] = testutil.BuildZip(t, testutil.MiWayFeed())

	m := gtfs.NewManager(testutil.BuildStorage(t, "memory"), nil)
	m.Downloader = downloader.NewFilesystem(filepath.Join(t.TempDir(), "input", "gtfs.zip"), nil)
	m.CacheTTL = time.Hour

	for i := 0; i < 2; i++ {
		_, err := m.Generate(context.Background(), miway.New(), nil, server.Server.URL+"/gtfs.zip", "")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"/gtfs.zip"}, server.Requests)
}
