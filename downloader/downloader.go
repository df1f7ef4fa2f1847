package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type GetOptions struct {
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

// A thing capable of downloading a file, optionally with caching
type Downloader interface {
	Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
}

// Reads a feed archive from location. URLs go through d, anything
// else is read from the local filesystem.
func Fetch(ctx context.Context, d Downloader, location string, options GetOptions) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if d == nil {
			return nil, fmt.Errorf("no downloader for %s", location)
		}
		body, err := d.Get(ctx, location, nil, options)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", location, err)
		}
		return body, nil
	}

	body, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	if options.MaxSize > 0 && len(body) > options.MaxSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", location, options.MaxSize)
	}
	return body, nil
}

// Gets a file. Doesn't cache. Provided as convenience for
// implementing custom Downloaders.
func HTTPGet(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range headers {
		req.Header.Add(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if options.MaxSize > 0 {
		// One extra byte tells a full body from a truncated one.
		reader = io.LimitReader(resp.Body, int64(options.MaxSize)+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if options.MaxSize > 0 && len(body) > options.MaxSize {
		return nil, fmt.Errorf("body exceeds %d bytes", options.MaxSize)
	}

	return body, nil
}
