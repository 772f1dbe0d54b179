// Package bootstrap provides dependency initialization for the motionphoto tool.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/motionphoto/internal/config"
	"github.com/maauso/motionphoto/internal/convert"
	"github.com/maauso/motionphoto/internal/media"
	"github.com/maauso/motionphoto/internal/storage"
)

// Dependencies holds all initialized dependencies for one invocation.
type Dependencies struct {
	Service *convert.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	transcoder := media.NewFFmpegTranscoder(cfg.FFmpegPath, logger)

	svc := convert.NewService(
		transcoder,
		store,
		logger,
		convert.WithImageExt(cfg.ImageExt),
		convert.WithVideoExt(cfg.VideoExt),
		convert.WithEmbedExt(cfg.EmbedExt),
	)

	return &Dependencies{
		Service: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			KeyPrefix:       cfg.S3KeyPrefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Debug("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Debug("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
