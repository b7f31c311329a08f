package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "API_PORT", "API_BEARER_TOKEN", "INPUT_DIR", "DATABASE_URL",
		"FETCH_TIMEOUT", "FETCH_CHUNK_SIZE", "QUERY_ROW_LIMIT",
		"S3_ENABLED", "S3_REGION", "S3_ENDPOINT", "S3_PATH_STYLE", "VIEWER_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.S3.Enabled)
	assert.Equal(t, DefaultViewer(), cfg.Viewer)
	assert.Equal(t, ":8080", cfg.ListenAddr())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("API_PORT", "9000")
	t.Setenv("INPUT_DIR", dir)
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("FETCH_CHUNK_SIZE", "1024")
	t.Setenv("S3_ENABLED", "true")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_PATH_STYLE", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, dir, cfg.InputDir)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 1024, cfg.FetchChunkSize)
	assert.True(t, cfg.S3.Enabled)
	assert.True(t, cfg.S3.PathStyle)
}

func TestLoad_InvalidValues(t *testing.T) {
	for name, env := range map[string][2]string{
		"port":       {"PORT", "abc"},
		"timeout":    {"FETCH_TIMEOUT", "-1s"},
		"chunk":      {"FETCH_CHUNK_SIZE", "0"},
		"s3 flag":    {"S3_ENABLED", "maybe"},
		"viewer cfg": {"VIEWER_CONFIG", "/does/not/exist.yaml"},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env[0], env[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadViewer_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
layers:
  table_sample_threshold: 5000
  seed: 9
  fallback:
    center_lat: 6.25
    center_lon: -75.56
    zoom: 10
chart:
  max_bands: 3
`), 0o644))

	v, err := LoadViewer(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, v.Layers.TableSampleThreshold)
	assert.Equal(t, 50000, v.Layers.GeometrySampleThreshold, "unset keys keep defaults")
	assert.Equal(t, int64(9), v.Layers.Seed)
	assert.Equal(t, 10, v.Layers.Fallback.Zoom)
	assert.Equal(t, 3, v.Chart.MaxBands)
	assert.Equal(t, 5, v.Chart.TopN)

	require.NoError(t, os.WriteFile(path, []byte("chart:\n  top_n: 0\n"), 0o644))
	_, err = LoadViewer(path)
	assert.Error(t, err)
}
