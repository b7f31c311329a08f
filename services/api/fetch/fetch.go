// Package fetch retrieves remote dataset bytes in chunks. It reports
// progress only when the source announces a total length.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// DefaultChunkSize is the read size used by Download.
const DefaultChunkSize = 64 * 1024

// Response is an open remote body. Total is -1 when the length is unknown.
type Response struct {
	Body   io.ReadCloser
	Status int
	Total  int64
}

// Fetcher opens a remote URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// ErrUnsupportedScheme is returned by Router for schemes it cannot serve.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// Router dispatches by URL scheme: http/https to HTTP, s3 to S3.
type Router struct {
	HTTP Fetcher
	S3   Fetcher
}

// Fetch implements Fetcher.
func (r Router) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if r.HTTP != nil {
			return r.HTTP.Fetch(ctx, rawURL)
		}
	case "s3":
		if r.S3 != nil {
			return r.S3.Fetch(ctx, rawURL)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// ProgressFunc receives cumulative bytes read and the announced total.
type ProgressFunc func(fetched, total int64)

// Download reads the whole body of rawURL. With a known total it reads in
// chunkSize pieces, in order, calling progress after each chunk; with an
// unknown total the body is buffered in one pass and progress is not called.
//
// The announced total only drives progress; it never sizes an allocation.
func Download(ctx context.Context, f Fetcher, rawURL string, chunkSize int, progress ProgressFunc) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r != bytes.ErrTooLarge {
				panic(r)
			}
			data, err = nil, fmt.Errorf("read body: %w", bytes.ErrTooLarge)
		}
	}()

	resp, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.Status < 200 || resp.Status >= 300 {
		return nil, &StatusError{Code: resp.Status}
	}

	if resp.Total < 0 {
		return io.ReadAll(resp.Body)
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var buf bytes.Buffer
	buf.Grow(int(min(resp.Total, int64(4*chunkSize))))
	chunk := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if progress != nil {
				progress(int64(buf.Len()), resp.Total)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// NameFromURL returns the last path segment of rawURL, used as the
// display name of a remote entry.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	p := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return u.Host
	}
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	return p
}
