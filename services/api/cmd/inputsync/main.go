// Command inputsync downloads remote dataset files into the input directory.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/fetch"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/inputsync"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/logger"
)

func main() {
	log := logger.Setup()
	if err := run(log); err != nil {
		log.Error("inputsync failed", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := inputsync.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout*4)
	defer cancel()

	router := fetch.Router{HTTP: fetch.NewHTTP(cfg.RequestTimeout)}
	for _, u := range cfg.URLs {
		if strings.HasPrefix(strings.ToLower(u), "s3://") {
			s3f, err := fetch.NewS3(ctx, fetch.S3Config{
				Region:    os.Getenv("S3_REGION"),
				Endpoint:  os.Getenv("S3_ENDPOINT"),
				PathStyle: os.Getenv("S3_PATH_STYLE") == "true",
			})
			if err != nil {
				return err
			}
			router.S3 = s3f
			break
		}
	}

	targets, rejected := inputsync.BuildTargets(cfg.URLs)
	for _, u := range rejected {
		log.Warn("skipping url: unsupported extension or duplicate name", "url", u)
	}

	syncer := &inputsync.Syncer{
		Fetcher: router,
		Dir:     cfg.InputDir,
		DryRun:  cfg.DryRun,
		Log:     log,
	}
	rep, err := syncer.Run(ctx, targets, cfg.Force)
	if err != nil {
		return err
	}
	log.Info("inputsync done",
		"dir", cfg.InputDir,
		"written", len(rep.Written),
		"skipped", len(rep.Skipped),
		"failed", len(rep.Failed),
		"dry_run", cfg.DryRun,
	)
	return nil
}
