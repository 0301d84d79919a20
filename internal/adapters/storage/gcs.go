package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSFileStorage implements FileStorage on one Google Cloud Storage bucket
type GCSFileStorage struct {
	client *gcs.Client
	bucket string
}

// NewGCSFileStorage creates a GCS client for bucket. An empty
// credentialsFile uses application default credentials.
func NewGCSFileStorage(ctx context.Context, bucket, credentialsFile string) (*GCSFileStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSFileStorage{client: client, bucket: bucket}, nil
}

// Store implements FileStorage.Store
func (g *GCSFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if key == "" {
		return newBucketError("Store", g.bucket, key, ErrInvalidKey, false)
	}

	obj := g.client.Bucket(g.bucket).Object(key)
	if opts != nil && !opts.Overwrite {
		obj = obj.If(gcs.Conditions{DoesNotExist: true})
	}

	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	writer.CacheControl = "no-cache, no-store, must-revalidate"
	if opts != nil {
		if opts.ContentType != "" {
			writer.ContentType = opts.ContentType
		}
		writer.Metadata = opts.Metadata
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return g.classify("Store", key, err)
	}
	if err := writer.Close(); err != nil {
		return g.classify("Store", key, err)
	}
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (g *GCSFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, newBucketError("Retrieve", g.bucket, key, ErrInvalidKey, false)
	}

	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, g.classify("Retrieve", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, newBucketError("Retrieve", g.bucket, key, fmt.Errorf("%w: %v", ErrNetworkError, err), true)
	}
	return data, nil
}

// Exists implements FileStorage.Exists
func (g *GCSFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, newBucketError("Exists", g.bucket, key, ErrInvalidKey, false)
	}

	_, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, g.classify("Exists", key, err)
	}
	return true, nil
}

// Close implements FileStorage.Close
func (g *GCSFileStorage) Close() error {
	return g.client.Close()
}

func (g *GCSFileStorage) classify(op, key string, err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return newBucketError(op, g.bucket, key, ErrFileNotFound, false)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return newBucketError(op, g.bucket, key, ErrFileNotFound, false)
		case apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusUnauthorized:
			return newBucketError(op, g.bucket, key, fmt.Errorf("%w: %v", ErrPermissionDenied, err), false)
		case apiErr.Code == http.StatusPreconditionFailed:
			return newBucketError(op, g.bucket, key, ErrFileAlreadyExists, false)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return newBucketError(op, g.bucket, key, fmt.Errorf("%w: %v", ErrStorageUnavailable, err), true)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newBucketError(op, g.bucket, key, fmt.Errorf("%w: %v", ErrTimeout, err), false)
	}

	return newBucketError(op, g.bucket, key, err, false)
}
