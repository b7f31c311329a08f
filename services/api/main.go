package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/config"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/db"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/fetch"
	httpserver "github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/http"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/ingest"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/logger"
)

func main() {
	log := logger.Setup()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := ingest.Options{
		InputDir:      cfg.InputDir,
		ChunkSize:     cfg.FetchChunkSize,
		QueryRowLimit: cfg.QueryRowLimit,
		Logger:        log,
	}

	router := fetch.Router{HTTP: fetch.NewHTTP(cfg.FetchTimeout)}
	if cfg.S3.Enabled {
		s3f, err := fetch.NewS3(ctx, fetch.S3Config{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			log.Error("s3 client error", "err", err)
			os.Exit(1)
		}
		router.S3 = s3f
	}
	opts.Fetcher = router

	var pinger httpserver.Pinger
	if cfg.DatabaseURL != "" {
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("db connection error", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		opts.Postgres = store
		pinger = store
	}

	session := ingest.NewSession(opts)
	srv := httpserver.New(cfg, session, pinger, log)
	log.Info("REST API listening", "addr", cfg.ListenAddr(), "input_dir", cfg.InputDir, "postgres", cfg.DatabaseURL != "", "s3", cfg.S3.Enabled)

	if err := srv.Run(ctx); err != nil {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
}
