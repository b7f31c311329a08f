package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// QueryTable runs a read query and returns its result set as a Table.
// limit > 0 stops reading after that many rows.
func (s *Store) QueryTable(ctx context.Context, sql string, limit int) (*dataset.Table, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	out := make([][]string, 0)
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		out = append(out, rowStrings(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dataset.NewTable(columns, out), nil
}
