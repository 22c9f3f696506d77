package storage

import (
	"fmt"

	"cleansync-worker/internal/storage/filesystem"
	"cleansync-worker/internal/storage/s3"
	"cleansync-worker/pkg/storage"
)

// NewStorage crée une nouvelle instance de storage basée sur la configuration
func NewStorage(config *storage.StorageConfig) (storage.Storage, error) {
	switch config.Type {
	case "filesystem":
		return filesystem.NewFilesystemStorage(config.BasePath)
	case "s3":
		return s3.NewS3Storage(config)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", config.Type)
	}
}
