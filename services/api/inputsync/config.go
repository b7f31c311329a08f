package inputsync

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultInputDir       = "./input"
	defaultRequestTimeout = 60 * time.Second
)

// Config holds runtime configuration for the sync job.
type Config struct {
	URLs           []string
	InputDir       string
	RequestTimeout time.Duration
	Force          bool
	DryRun         bool
}

// LoadConfig reads configuration from environment variables (optionally .env).
func LoadConfig() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{InputDir: defaultInputDir, RequestTimeout: defaultRequestTimeout}

	for _, u := range strings.Split(os.Getenv("INPUT_SYNC_URLS"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			cfg.URLs = append(cfg.URLs, u)
		}
	}
	if len(cfg.URLs) == 0 {
		return cfg, errors.New("INPUT_SYNC_URLS is required")
	}

	if v := strings.TrimSpace(os.Getenv("INPUT_DIR")); v != "" {
		cfg.InputDir = v
	}

	if v := strings.TrimSpace(os.Getenv("INPUT_SYNC_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid INPUT_SYNC_TIMEOUT: %s", v)
		}
		cfg.RequestTimeout = d
	}

	cfg.Force = flag(os.Getenv("INPUT_SYNC_FORCE"))
	cfg.DryRun = flag(os.Getenv("DRY_RUN"))
	return cfg, nil
}

func flag(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}
