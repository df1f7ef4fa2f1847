package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Keeps recent feed archives in memory, keyed by URL. Expired archives
// are dropped on the next Get.
type Memory struct {
	Logger  *zap.Logger
	TimeNow func() time.Time

	mutex sync.Mutex
	feeds map[string]cachedFeed
}

type cachedFeed struct {
	body    []byte
	expires time.Time
}

func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		Logger:  logger,
		TimeNow: time.Now,
		feeds:   map[string]cachedFeed{},
	}
}

func (m *Memory) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if options.Cache {
		if body, ok := m.lookup(url); ok {
			m.Logger.Debug("cache hit", zap.String("url", url))
			return body, nil
		}
		m.Logger.Debug("cache miss", zap.String("url", url))
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.Cache {
		m.mutex.Lock()
		m.feeds[url] = cachedFeed{
			body:    body,
			expires: m.TimeNow().Add(options.CacheTTL),
		}
		m.mutex.Unlock()
	}

	return body, nil
}

func (m *Memory) lookup(url string) ([]byte, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.TimeNow()
	for key, feed := range m.feeds {
		if !feed.expires.After(now) {
			delete(m.feeds, key)
		}
	}

	feed, ok := m.feeds[url]
	return feed.body, ok
}

// Serves canned bodies by URL. Unknown URLs fail.
type Static map[string][]byte

func (s Static) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	body, ok := s[url]
	if !ok {
		return nil, fmt.Errorf("status 404")
	}
	return body, nil
}
