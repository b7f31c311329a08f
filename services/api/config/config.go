package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/chart"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/layers"
)

// Config holds environment-driven settings for the viewer API.
type Config struct {
	Port           int
	BearerToken    string
	InputDir       string
	DatabaseURL    string
	FetchTimeout   time.Duration
	FetchChunkSize int
	QueryRowLimit  int
	S3             S3
	ViewerConfig   string
	Viewer         Viewer
}

// S3 enables s3:// URLs on the remote URL channel.
type S3 struct {
	Enabled   bool
	Region    string
	Endpoint  string
	PathStyle bool
}

// Viewer holds composer defaults, overridable from a YAML file.
type Viewer struct {
	Layers layers.Options `yaml:"layers"`
	Chart  chart.Options  `yaml:"chart"`
}

// DefaultViewer returns the stock composer defaults.
func DefaultViewer() Viewer {
	return Viewer{Layers: layers.DefaultOptions(), Chart: chart.DefaultOptions()}
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:           8080,
		InputDir:       "./input",
		FetchTimeout:   60 * time.Second,
		FetchChunkSize: 64 * 1024,
		QueryRowLimit:  200000,
		Viewer:         DefaultViewer(),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if err := positiveInt("PORT", portStr, &cfg.Port); err != nil {
			return cfg, err
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if err := positiveInt("API_PORT", portStr, &cfg.Port); err != nil {
			return cfg, err
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if dir := os.Getenv("INPUT_DIR"); dir != "" {
		cfg.InputDir = dir
	}
	if info, err := os.Stat(cfg.InputDir); err == nil && !info.IsDir() {
		return cfg, fmt.Errorf("INPUT_DIR is not a directory: %s", cfg.InputDir)
	}

	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid FETCH_TIMEOUT: %s", v)
		}
		cfg.FetchTimeout = d
	}
	if v := os.Getenv("FETCH_CHUNK_SIZE"); v != "" {
		if err := positiveInt("FETCH_CHUNK_SIZE", v, &cfg.FetchChunkSize); err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv("QUERY_ROW_LIMIT"); v != "" {
		if err := positiveInt("QUERY_ROW_LIMIT", v, &cfg.QueryRowLimit); err != nil {
			return cfg, err
		}
	}

	var err error
	if cfg.S3.Enabled, err = boolEnv("S3_ENABLED"); err != nil {
		return cfg, err
	}
	if cfg.S3.PathStyle, err = boolEnv("S3_PATH_STYLE"); err != nil {
		return cfg, err
	}
	cfg.S3.Region = os.Getenv("S3_REGION")
	cfg.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	if cfg.S3.Endpoint != "" && !cfg.S3.Enabled {
		return cfg, errors.New("S3_ENDPOINT set but S3_ENABLED is false")
	}

	if path := os.Getenv("VIEWER_CONFIG"); path != "" {
		cfg.ViewerConfig = path
		if cfg.Viewer, err = LoadViewer(path); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// LoadViewer overlays the YAML file at path onto DefaultViewer.
func LoadViewer(path string) (Viewer, error) {
	v := DefaultViewer()
	raw, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("read VIEWER_CONFIG: %w", err)
	}
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("parse VIEWER_CONFIG: %w", err)
	}
	if v.Layers.TableSampleThreshold <= 0 || v.Layers.GeometrySampleThreshold <= 0 {
		return v, errors.New("VIEWER_CONFIG: sample thresholds must be positive")
	}
	if v.Chart.MaxBands < 1 || v.Chart.TopN < 1 {
		return v, errors.New("VIEWER_CONFIG: chart max_bands and top_n must be positive")
	}
	return v, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func positiveInt(name, raw string, dst *int) error {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s: %s", name, raw)
	}
	*dst = n
	return nil
}

func boolEnv(name string) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return b, nil
}
