package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
)

// SQLite reads tables out of SQLite database files.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens an existing SQLite file.
func OpenSQLite(path string) (*SQLite, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// QueryTable runs a read query and returns its result set as a Table.
func (s *SQLite) QueryTable(ctx context.Context, query string, limit int) (*dataset.Table, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0)
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		out = append(out, rowStrings(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dataset.NewTable(columns, out), nil
}
