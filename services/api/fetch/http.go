package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTP fetches over net/http.
type HTTP struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTP returns an HTTP fetcher with the given request timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{Client: &http.Client{Timeout: timeout}, UserAgent: "shizuku-dataset-viewer"}
}

// Fetch implements Fetcher. The caller closes the body.
func (h *HTTP) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}

	return &Response{Body: resp.Body, Status: resp.StatusCode, Total: resp.ContentLength}, nil
}
