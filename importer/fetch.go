package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxDownloadBytes caps a single archive download.
const DefaultMaxDownloadBytes int64 = 512 << 20

// Client fetches GTFS archives over HTTP.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewClient wraps hc; a nil hc uses http.DefaultClient.
func NewClient(hc *http.Client, maxBytes int64) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}
	return &Client{httpClient: hc, maxBytes: maxBytes}
}

// Fetch downloads url and returns the raw archive bytes. Any non-2xx status
// is an error.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("archive at %s exceeds %d bytes", url, c.maxBytes)
	}
	return body, nil
}
