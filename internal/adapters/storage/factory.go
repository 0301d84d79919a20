package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// StorageType represents the type of storage implementation
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeGCS   StorageType = "gcs"
	StorageTypeMock  StorageType = "mock"
)

// Factory creates FileStorage instances based on configuration
type Factory struct {
	retryConfig *RetryConfig
}

// NewFactory creates a new storage factory
func NewFactory(retryConfig *RetryConfig) *Factory {
	return &Factory{
		retryConfig: retryConfig,
	}
}

// Create creates a FileStorage instance based on the provided configuration
func (f *Factory) Create(ctx context.Context, config *StorageConfig) (FileStorage, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	storageType := StorageType(strings.ToLower(config.Type))

	var storage FileStorage
	var err error

	switch storageType {
	case StorageTypeLocal:
		storage, err = f.createLocalStorage(config)
	case StorageTypeS3:
		storage, err = f.createS3Storage(ctx, config)
	case StorageTypeGCS:
		storage, err = f.createGCSStorage(ctx, config)
	case StorageTypeMock:
		storage = NewMockFileStorage()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", config.Type, err)
	}

	// Wrap with retry logic if configured
	if f.retryConfig != nil {
		storage = NewRetryableFileStorage(storage, f.retryConfig)
	}

	return storage, nil
}

// createLocalStorage roots each bucket in its own directory below BasePath
func (f *Factory) createLocalStorage(config *StorageConfig) (FileStorage, error) {
	basePath := config.BasePath
	if basePath == "" {
		basePath = "./storage"
	}
	if config.Bucket != "" {
		basePath = filepath.Join(basePath, config.Bucket)
	}
	return NewLocalFileStorage(basePath)
}

func (f *Factory) createS3Storage(ctx context.Context, config *StorageConfig) (FileStorage, error) {
	usePathStyle, _ := strconv.ParseBool(config.Options["use_path_style"])
	return NewS3FileStorage(ctx, config.Bucket, S3Options{
		Region:       config.Region,
		Endpoint:     config.Options["endpoint"],
		UsePathStyle: usePathStyle,
		AccessKey:    config.Options["access_key"],
		SecretKey:    config.Options["secret_key"],
	})
}

func (f *Factory) createGCSStorage(ctx context.Context, config *StorageConfig) (FileStorage, error) {
	return NewGCSFileStorage(ctx, config.Bucket, config.Options["credentials_file"])
}

// DefaultFactory returns a factory with default retry configuration
func DefaultFactory() *Factory {
	return NewFactory(DefaultRetryConfig())
}
