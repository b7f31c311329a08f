// Package inputsync downloads remote dataset files into the input directory
// so the local channel can list them.
package inputsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/fetch"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/parse"
)

// Target is one URL and the file name it is stored under.
type Target struct {
	URL  string
	Name string
}

// Report summarises a sync run.
type Report struct {
	Written []string
	Skipped []string
	Failed  map[string]string
}

// BuildTargets names each URL by its last path segment. URLs without a
// supported extension, and later URLs mapping to an already used name, are
// returned as rejected.
func BuildTargets(urls []string) (targets []Target, rejected []string) {
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		name := fetch.NameFromURL(u)
		if !parse.Supported(name) || seen[name] || filepath.Base(name) != name {
			rejected = append(rejected, u)
			continue
		}
		seen[name] = true
		targets = append(targets, Target{URL: u, Name: name})
	}
	return targets, rejected
}

// FilterNew drops targets whose file already exists in dir unless force.
func FilterNew(targets []Target, dir string, force bool) (pending []Target, existing []string) {
	for _, t := range targets {
		if !force {
			if info, err := os.Stat(filepath.Join(dir, t.Name)); err == nil && info.Mode().IsRegular() {
				existing = append(existing, t.Name)
				continue
			}
		}
		pending = append(pending, t)
	}
	return pending, existing
}

// Syncer writes fetched files into Dir.
type Syncer struct {
	Fetcher   fetch.Fetcher
	Dir       string
	ChunkSize int
	DryRun    bool
	Log       *slog.Logger
}

// Run fetches every pending target. A failed target is recorded and the
// rest continue.
func (s *Syncer) Run(ctx context.Context, targets []Target, force bool) (Report, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create input dir: %w", err)
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	pending, existing := FilterNew(targets, s.Dir, force)
	rep := Report{Skipped: existing, Failed: map[string]string{}}
	for _, name := range existing {
		log.Debug("sync skip existing", "file", name)
	}

	for _, t := range pending {
		if s.DryRun {
			log.Info("dry-run: would fetch", "url", t.URL, "file", t.Name)
			continue
		}
		if err := s.fetchOne(ctx, t); err != nil {
			log.Warn("sync failed", "url", t.URL, "err", err)
			rep.Failed[t.Name] = err.Error()
			continue
		}
		log.Info("sync wrote", "file", t.Name)
		rep.Written = append(rep.Written, t.Name)
	}
	return rep, nil
}

// fetchOne writes through a temp file so a partial download never shows up
// in the listing. A panicking fetcher fails only its own target.
func (s *Syncer) fetchOne(ctx context.Context, t Target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panic: %v", r)
		}
	}()

	data, err := fetch.Download(ctx, s.Fetcher, t.URL, s.ChunkSize, nil)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, ".sync-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.Dir, t.Name))
}
