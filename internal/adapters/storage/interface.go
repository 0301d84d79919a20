package storage

import (
	"context"
)

// StoreOptions provides options for storing objects
type StoreOptions struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Overwrite   bool              `json:"overwrite,omitempty"`
}

// FileStorage is a key-addressed blob store scoped to a single bucket.
// Implementations must report a missing key with an error for which
// IsNotFound returns true.
type FileStorage interface {
	// Store writes data under key. When opts is nil or opts.Overwrite is
	// set, an existing object is replaced in full.
	Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error

	// Retrieve reads the whole object stored under key
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Exists checks if an object exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// Close cleans up any resources used by the storage implementation
	Close() error
}

// StorageConfig represents configuration for storage providers
type StorageConfig struct {
	Type     string            `json:"type" yaml:"type"`           // "local", "s3", "gcs", "mock"
	BasePath string            `json:"base_path" yaml:"base_path"` // For local storage
	Bucket   string            `json:"bucket" yaml:"bucket"`       // For cloud storage
	Region   string            `json:"region" yaml:"region"`       // For cloud storage
	Options  map[string]string `json:"options" yaml:"options"`     // Provider-specific options
}
