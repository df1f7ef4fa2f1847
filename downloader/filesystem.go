package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mirrors the most recent download to a local file, e.g.
// input/gtfs.zip. With caching enabled, a mirror younger than the
// cache TTL is served instead of downloading again.
type Filesystem struct {
	Path   string
	Logger *zap.Logger

	TimeNow func() time.Time

	mutex sync.Mutex
}

func NewFilesystem(path string, logger *zap.Logger) *Filesystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filesystem{
		Path:    path,
		Logger:  logger,
		TimeNow: time.Now,
	}
}

func (f *Filesystem) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if options.Cache {
		info, err := os.Stat(f.Path)
		if err == nil && info.ModTime().Add(options.CacheTTL).After(f.TimeNow()) && f.mirrors(url) {
			body, err := os.ReadFile(f.Path)
			if err != nil {
				return nil, fmt.Errorf("reading: %w", err)
			}
			f.Logger.Debug("cache hit", zap.String("path", f.Path))
			return body, nil
		}
		f.Logger.Debug("cache miss", zap.String("path", f.Path))
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}

	err = f.save(url, body)
	if err != nil {
		return nil, fmt.Errorf("saving: %w", err)
	}

	return body, nil
}

// The source URL is kept next to the archive, in Path + ".url". It is
// dropped before the archive is replaced and written back after, so a
// half-finished save never matches.
func (f *Filesystem) mirrors(url string) bool {
	source, err := os.ReadFile(f.Path + ".url")
	return err == nil && string(source) == url
}

func (f *Filesystem) save(url string, body []byte) error {
	err := os.MkdirAll(filepath.Dir(f.Path), 0755)
	if err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	err = os.Remove(f.Path + ".url")
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing source url: %w", err)
	}

	err = writeFileAtomic(f.Path, body)
	if err != nil {
		return err
	}

	return writeFileAtomic(f.Path+".url", []byte(url))
}

// Written via a temporary file, so a crash never leaves a partial file
// behind.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	err := os.WriteFile(tmp, data, 0644)
	if err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
