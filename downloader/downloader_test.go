package downloader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"miway.dev/gtfs/downloader"
)

// Serves body, counting requests.
func countingServer(t *testing.T, body string) (*httptest.Server, *int32) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestHTTPGet(t *testing.T) {
	server, _ := countingServer(t, "0123456789")
	ctx := context.Background()

	body, err := downloader.HTTPGet(ctx, server.URL, nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(body))

	body, err = downloader.HTTPGet(ctx, server.URL, nil, downloader.GetOptions{MaxSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(body))

	_, err = downloader.HTTPGet(ctx, server.URL, nil, downloader.GetOptions{MaxSize: 5})
	assert.Error(t, err)

	_, err = downloader.HTTPGet(ctx, server.URL+"/missing", nil, downloader.GetOptions{})
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0644))

	d := downloader.Static{"https://example.com/gtfs.zip": []byte("remote")}

	for _, tc := range []struct {
		location string
		expected string
		err      bool
	}{
		{path, "local", false},
		{"https://example.com/gtfs.zip", "remote", false},
		{"https://example.com/other.zip", "", true},
		{filepath.Join(t.TempDir(), "nope.zip"), "", true},
	} {
		body, err := downloader.Fetch(ctx, d, tc.location, downloader.GetOptions{})
		if tc.err {
			assert.Error(t, err, tc.location)
			continue
		}
		require.NoError(t, err, tc.location)
		assert.Equal(t, tc.expected, string(body))
	}

	_, err := downloader.Fetch(ctx, d, path, downloader.GetOptions{MaxSize: 2})
	assert.Error(t, err)
}

func TestMemoryCaches(t *testing.T) {
	server, hits := countingServer(t, "feed")
	ctx := context.Background()

	now := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	d := downloader.NewMemory(zaptest.NewLogger(t))
	d.TimeNow = func() time.Time { return now }

	opts := downloader.GetOptions{Cache: true, CacheTTL: time.Minute}

	for i := 0; i < 3; i++ {
		body, err := d.Get(ctx, server.URL, nil, opts)
		require.NoError(t, err)
		assert.Equal(t, "feed", string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	now = now.Add(2 * time.Minute)
	_, err := d.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))

	// Uncached requests always go out.
	_, err = d.Get(ctx, server.URL, nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestFilesystemMirror(t *testing.T) {
	server, hits := countingServer(t, "feed")
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "input", "gtfs.zip")
	fs := downloader.NewFilesystem(path, zaptest.NewLogger(t))

	opts := downloader.GetOptions{Cache: true, CacheTTL: time.Hour}

	body, err := fs.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "feed", string(body))

	mirrored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "feed", string(mirrored))

	// Fresh mirror is served without a request.
	body, err = fs.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "feed", string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	// Stale mirror is refreshed.
	fs.TimeNow = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = fs.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))

	// Without caching, always downloads.
	_, err = fs.Get(ctx, server.URL, nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestFilesystemMirrorTracksURL(t *testing.T) {
	first, firstHits := countingServer(t, "first feed")
	second, secondHits := countingServer(t, "second feed")
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "input", "gtfs.zip")
	fs := downloader.NewFilesystem(path, zaptest.NewLogger(t))

	opts := downloader.GetOptions{Cache: true, CacheTTL: time.Hour}

	body, err := fs.Get(ctx, first.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "first feed", string(body))

	// A fresh mirror of another feed is not reused.
	body, err = fs.Get(ctx, second.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "second feed", string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(secondHits))

	body, err = fs.Get(ctx, second.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "second feed", string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(secondHits))

	body, err = fs.Get(ctx, first.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "first feed", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(firstHits))

	// An archive with no recorded source is never served from cache.
	require.NoError(t, os.Remove(path+".url"))
	_, err = fs.Get(ctx, first.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(firstHits))
}
