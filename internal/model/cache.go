package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"coldstart-inference/internal/adapters/storage"
	"coldstart-inference/internal/metrics"
	"coldstart-inference/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CacheConfig locates the artifact in the model bucket and its local copies
type CacheConfig struct {
	Key       string
	LocalPath string
	ProbePath string
	Decoder   Decoder // nil uses Decode
}

// Cache owns the process-wide model slot. The first EnsureLoaded fetches
// and decodes the artifact; later calls return the cached Model without
// I/O. A failed load leaves the slot empty.
type Cache struct {
	store  storage.FileStorage
	config CacheConfig
	logger *logrus.Logger

	mu       sync.RWMutex
	handle   Model
	loadedAt time.Time
}

// NewCache creates an empty cache reading from the model bucket store
func NewCache(store storage.FileStorage, config CacheConfig, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
	}
	if config.Decoder == nil {
		config.Decoder = Decode
	}
	return &Cache{
		store:  store,
		config: config,
		logger: logger,
	}
}

// EnsureLoaded returns the cached model, loading it on first use. Concurrent
// first callers wait for a single load.
func (c *Cache) EnsureLoaded(ctx context.Context) (Model, error) {
	c.mu.RLock()
	if c.handle != nil {
		handle := c.handle
		c.mu.RUnlock()
		return handle, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have loaded while we waited for the write lock
	if c.handle != nil {
		return c.handle, nil
	}

	ctx, span := tracing.Tracer("model").Start(ctx, "model.cold_load")
	defer span.End()
	span.SetAttributes(attribute.String("model.key", c.config.Key))

	start := time.Now()
	c.logger.WithField("key", c.config.Key).Info("Downloading model from blob store")

	c.probe(ctx)

	handle, err := c.load(ctx)
	if err != nil {
		metrics.ObserveModelLoad(metrics.OutcomeFailure, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "model load failed")
		c.logger.WithFields(logrus.Fields{
			"key":   c.config.Key,
			"error": err.Error(),
		}).Error("Error loading model")
		return nil, err
	}

	c.handle = handle
	c.loadedAt = time.Now()
	metrics.ObserveModelLoad(metrics.OutcomeSuccess, time.Since(start))
	c.logger.WithFields(logrus.Fields{
		"key":         c.config.Key,
		"features":    handle.NumFeatures(),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
	}).Info("Model loaded successfully")

	return handle, nil
}

// IsLoaded reports whether a model is cached
func (c *Cache) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle != nil
}

// LoadedAt returns when the cached model was loaded, zero if it is not
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Reset empties the slot so the next EnsureLoaded performs a cold load
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = nil
	c.loadedAt = time.Time{}
}

// ArtifactExists checks the model bucket for the artifact without loading it
func (c *Cache) ArtifactExists(ctx context.Context) (bool, error) {
	return c.store.Exists(ctx, c.config.Key)
}

// probe checks read access to the model bucket by downloading the artifact
// to a scratch file and discarding it. Failures are only logged.
func (c *Cache) probe(ctx context.Context) {
	if c.config.ProbePath == "" {
		return
	}

	fields := logrus.Fields{"key": c.config.Key, "path": c.config.ProbePath}
	c.logger.WithFields(fields).Info("Attempting test download of model")

	data, err := c.store.Retrieve(ctx, c.config.Key)
	if err == nil {
		err = writeScratch(c.config.ProbePath, data)
	}
	if err != nil {
		fields["error"] = err.Error()
		fields["permission_denied"] = storage.IsPermissionDenied(err)
		c.logger.WithFields(fields).Error("Error testing blob store permissions for model bucket")
		return
	}

	if err := os.Remove(c.config.ProbePath); err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("Failed to remove probe file")
	}
	c.logger.WithFields(fields).Info("Test model download succeeded")
}

func (c *Cache) load(ctx context.Context) (Model, error) {
	key := c.config.Key

	data, err := c.store.Retrieve(ctx, key)
	if err != nil {
		return nil, &LoadError{Key: key, Stage: StageFetch, Err: err}
	}

	if c.config.LocalPath != "" {
		if err := writeScratch(c.config.LocalPath, data); err != nil {
			return nil, &LoadError{Key: key, Stage: StageWrite, Err: err}
		}
		data, err = os.ReadFile(c.config.LocalPath)
		if err != nil {
			return nil, &LoadError{Key: key, Stage: StageRead, Err: err}
		}
	}

	handle, err := c.config.Decoder(data)
	if err != nil {
		return nil, &LoadError{Key: key, Stage: StageDecode, Err: err}
	}
	if handle == nil {
		return nil, &LoadError{Key: key, Stage: StageDecode, Err: fmt.Errorf("%w: decoder returned no model", ErrInvalidArtifact)}
	}
	return handle, nil
}

func writeScratch(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
