package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/parversion/pkg/loader"
)

const (
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBytes bounds the size of a fetched page.
	DefaultMaxBytes = 16 << 20
)

// WebLoader fetches documents over HTTP. The markup is returned unmodified.
type WebLoader struct {
	client   *http.Client
	maxBytes int64
	memo     loader.Memo
}

// NewWebLoader creates a web loader with DefaultTimeout and DefaultMaxBytes.
func NewWebLoader() *WebLoader {
	return NewWebLoaderWithClient(&http.Client{Timeout: DefaultTimeout}, DefaultMaxBytes)
}

func NewWebLoaderWithClient(client *http.Client, maxBytes int64) *WebLoader {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &WebLoader{client: client, maxBytes: maxBytes}
}

// GetDocumentText fetches src.Location. Non-2xx responses are errors.
func (l *WebLoader) GetDocumentText(ctx context.Context, src loader.Source) ([]byte, error) {
	return l.memo.Do(loader.CacheKey(src), func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if int64(len(body)) > l.maxBytes {
			return nil, fmt.Errorf("document exceeds %d bytes", l.maxBytes)
		}
		return body, nil
	})
}
