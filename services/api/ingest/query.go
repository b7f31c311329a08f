package ingest

import (
	"context"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/db"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
)

// DefaultQueryRowLimit caps rows read by a database query.
const DefaultQueryRowLimit = 200000

// TableQuerier runs a read query and returns its result as a table.
type TableQuerier interface {
	QueryTable(ctx context.Context, query string, limit int) (*dataset.Table, error)
}

// QuerySource selects the database a query runs against.
type QuerySource string

const (
	SourcePostgres QuerySource = "postgres"
	SourceSQLite   QuerySource = "sqlite"
)

// QueryRequest describes one database-backed entry.
type QueryRequest struct {
	Name   string      `json:"name" binding:"required"`
	Source QuerySource `json:"source" binding:"required"`
	// Path is the SQLite file, relative to the input directory.
	Path string `json:"path,omitempty"`
	SQL  string `json:"sql" binding:"required"`
}

type sqliteOpener func(path string) (sqliteQuerier, error)

type sqliteQuerier interface {
	TableQuerier
	Close() error
}

// QueryChannel materialises query results as Table entries.
type QueryChannel struct {
	*loader
	inputDir   string
	postgres   TableQuerier
	openSQLite sqliteOpener
	limit      int
}

func newQueryChannel(l *loader, inputDir string, pg TableQuerier, limit int) *QueryChannel {
	if limit <= 0 {
		limit = DefaultQueryRowLimit
	}
	return &QueryChannel{
		loader:   l,
		inputDir: inputDir,
		postgres: pg,
		openSQLite: func(path string) (sqliteQuerier, error) {
			return db.OpenSQLite(path)
		},
		limit: limit,
	}
}

// PostgresEnabled reports whether a Postgres pool is configured.
func (c *QueryChannel) PostgresEnabled() bool { return c.postgres != nil }

// Query runs req synchronously: Pending then Loaded or Failed.
func (c *QueryChannel) Query(ctx context.Context, req QueryRequest) (dataset.Entry, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.SQL) == "" {
		return dataset.Entry{}, errs.Configurationf("query", req.Name, "%w: name and sql are required", ErrInvalidInput)
	}

	var origin, path string
	switch req.Source {
	case SourcePostgres:
		if c.postgres == nil {
			return dataset.Entry{}, errs.Configuration("query", req.Name, ErrNoDatabase)
		}
		origin = string(SourcePostgres)
	case SourceSQLite:
		p, err := resolvePath(c.inputDir, req.Path)
		if err != nil {
			return dataset.Entry{}, errs.Configuration("query", req.Name, err)
		}
		origin, path = string(SourceSQLite)+":"+req.Path, p
	default:
		return dataset.Entry{}, errs.Configurationf("query", req.Name, "%w: source %q", ErrInvalidInput, req.Source)
	}

	if _, err := c.reg.Create(dataset.SourceDatabase, req.Name, origin, dataset.DefaultConfig()); err != nil {
		return dataset.Entry{}, err
	}

	q := c.postgres
	if req.Source == SourceSQLite {
		s, err := c.openSQLite(path)
		if err != nil {
			return c.finish(dataset.SourceDatabase, req.Name, nil, errs.Acquisition("open sqlite", req.Name, err))
		}
		defer s.Close()
		q = s
	}

	t, err := q.QueryTable(ctx, req.SQL, c.limit)
	if err != nil {
		return c.finish(dataset.SourceDatabase, req.Name, nil, errs.Acquisition("query", req.Name, err))
	}
	return c.finish(dataset.SourceDatabase, req.Name, dataset.TablePayload(t), nil)
}
