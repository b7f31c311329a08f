// Package ingest owns the acquisition channels of a viewer session and is the
// only writer of its dataset registry.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/blob"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/fetch"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/metrics"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/parse"
)

// Channel-level causes, wrapped in configuration errors.
var (
	ErrSlotNotFound = errors.New("url slot not found")
	ErrSlotOccupied = errors.New("url slot already assigned")
	ErrEmptySlot    = errors.New("url slot has no url")
	ErrInvalidPath  = errors.New("path escapes input directory")
	ErrNoDatabase   = errors.New("database source not configured")
	ErrInvalidInput = errors.New("invalid input")
)

// Options configure a Session.
type Options struct {
	InputDir  string
	Fetcher   fetch.Fetcher
	ChunkSize int
	Blobs     blob.Store
	// Postgres is optional; without it only SQLite queries are accepted.
	Postgres      TableQuerier
	QueryRowLimit int
	Parser        *parse.Dispatcher
	Logger        *slog.Logger
}

// Session is the explicit context object of one viewer session: the
// registry plus every channel allowed to write it.
type Session struct {
	Registry *dataset.Registry
	Local    *LocalChannel
	URLs     *URLChannel
	Uploads  *UploadChannel
	Queries  *QueryChannel
	log      *slog.Logger
}

// NewSession wires a registry to the four channels.
func NewSession(opts Options) *Session {
	if opts.Parser == nil {
		opts.Parser = parse.NewDispatcher()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Blobs == nil {
		opts.Blobs = blob.NewMemory()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.Router{HTTP: fetch.NewHTTP(0)}
	}
	if opts.InputDir == "" {
		opts.InputDir = "input"
	}

	reg := dataset.NewRegistry()
	l := &loader{reg: reg, parser: opts.Parser, log: opts.Logger}
	return &Session{
		Registry: reg,
		Local:    &LocalChannel{dir: opts.InputDir, loader: l},
		URLs:     newURLChannel(l, opts.Fetcher, opts.ChunkSize),
		Uploads:  &UploadChannel{loader: l, blobs: opts.Blobs},
		Queries:  newQueryChannel(l, opts.InputDir, opts.Postgres, opts.QueryRowLimit),
		log:      opts.Logger,
	}
}

// Remove deletes an entry and releases whatever its channel retained for it.
func (s *Session) Remove(ctx context.Context, name string) error {
	e, ok := s.Registry.Get(name)
	if !ok {
		return errs.Configuration("remove", name, errs.ErrNotFound)
	}
	switch e.Source {
	case dataset.SourceRemoteURL:
		s.URLs.forget(name)
	case dataset.SourceUploadedBlob:
		s.Uploads.forget(ctx, name)
	}
	s.Registry.Remove(name)
	s.log.Info("entry removed", "entry", name, "source", e.Source)
	return nil
}

// Configure applies a display config change to an entry. Composers pick it
// up on their next snapshot.
func (s *Session) Configure(name string, fn func(*dataset.Config)) (dataset.Entry, error) {
	e, err := s.Registry.Configure(name, fn)
	if err != nil {
		return dataset.Entry{}, err
	}
	s.log.Debug("entry configured", "entry", name)
	return e, nil
}

// Clear tears the session down: every entry, slot and retained blob.
func (s *Session) Clear(ctx context.Context) {
	for _, e := range s.Registry.Snapshot().Entries {
		if e.Source == dataset.SourceUploadedBlob {
			s.Uploads.forget(ctx, e.Name)
		}
	}
	s.URLs.reset()
	s.Registry.Clear()
	s.log.Info("session cleared")
}

// ============================================================================
// LOADER: shared terminal transitions
// ============================================================================

type loader struct {
	reg    *dataset.Registry
	parser *parse.Dispatcher
	log    *slog.Logger
}

// parse decodes data, turning a parser panic into a parse error.
func (l *loader) parse(name string, data []byte) (p *dataset.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, errs.Parse("parse", name, fmt.Errorf("parser panic: %v", r))
		}
	}()
	return l.parser.Parse(name, data)
}

// finish moves name to Loaded with payload, or to Failed when cause is set.
func (l *loader) finish(source dataset.SourceKind, name string, payload *dataset.Payload, cause error) (dataset.Entry, error) {
	if cause != nil {
		reason := failureReason(cause)
		metrics.EntriesIngestedTotal.WithLabelValues(string(source), "failed").Inc()
		l.log.Warn("entry failed", "entry", name, "source", source, "err", cause)
		return l.reg.Advance(name, dataset.Failed(reason), nil)
	}
	metrics.EntriesIngestedTotal.WithLabelValues(string(source), "loaded").Inc()
	l.log.Info("entry loaded", "entry", name, "source", source, "kind", payload.Kind, "size", payload.Size())
	return l.reg.Advance(name, dataset.Loaded(), payload)
}

// load parses data and finishes the entry.
func (l *loader) load(source dataset.SourceKind, name string, data []byte) (dataset.Entry, error) {
	p, err := l.parse(name, data)
	return l.finish(source, name, p, err)
}

func failureReason(err error) string {
	var se *fetch.StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	return parse.FailureReason(err)
}

// resolvePath joins rel onto dir and rejects anything outside dir.
func resolvePath(dir, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	full := filepath.Join(dir, rel)
	r, err := filepath.Rel(dir, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return full, nil
}
