package server

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/handmade-orders-api/config"
	"github.com/kendall-kelly/handmade-orders-api/services"
)

// NewBlobStore builds the image store selected by STORAGE_DRIVER
func NewBlobStore(ctx context.Context, cfg *config.Config) (services.BlobStore, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		store, err := services.NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDriverMinIO:
		store, err := services.NewMinIOStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDriverLocal:
		return services.NewLocalStore(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
