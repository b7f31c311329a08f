package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_QueryTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE stations (id TEXT, lat REAL, lon REAL, value_mm REAL)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO stations VALUES ('a', 6.25, -75.56, 1.5), ('b', 6.3, -75.6, NULL), ('c', 6.2, -75.5, 3)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	tbl, err := s.QueryTable(context.Background(), `SELECT id, lat, lon, value_mm FROM stations ORDER BY id`, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "lat", "lon", "value_mm"}, tbl.Columns())
	assert.Equal(t, 3, tbl.Len())

	v, ok := tbl.Value(0, "lat")
	assert.True(t, ok)
	assert.Equal(t, "6.25", v)

	_, ok = tbl.Value(1, "value_mm")
	assert.False(t, ok, "NULL is a missing cell")

	limited, err := s.QueryTable(context.Background(), `SELECT id FROM stations`, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, limited.Len())
}

func TestOpenSQLite_MissingFile(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}
