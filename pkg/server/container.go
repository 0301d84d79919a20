package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"coldstart-inference/internal/adapters/storage"
	"coldstart-inference/internal/config"
	"coldstart-inference/internal/model"
	"coldstart-inference/internal/telemetry"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies. One container lives for the
// lifetime of the process so the model cache survives warm invocations.
type Container struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Models    *model.Cache
	Telemetry *telemetry.Recorder

	// Internal dependencies
	modelStore storage.FileStorage
	logStore   storage.FileStorage
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := NewLogger(cfg)
	factory := storage.NewFactory(retryConfig(cfg.Storage))

	modelStore, err := factory.Create(ctx, bucketConfig(cfg.Storage, cfg.Model.Bucket))
	if err != nil {
		return nil, fmt.Errorf("failed to create model bucket storage: %w", err)
	}

	logStore, err := factory.Create(ctx, bucketConfig(cfg.Storage, cfg.Telemetry.Bucket))
	if err != nil {
		modelStore.Close()
		return nil, fmt.Errorf("failed to create log bucket storage: %w", err)
	}

	cache := model.NewCache(modelStore, model.CacheConfig{
		Key:       cfg.Model.Key,
		LocalPath: cfg.Model.LocalPath,
		ProbePath: cfg.Model.ProbePath,
	}, logger)

	recorder := telemetry.NewRecorder(logStore, telemetry.RecorderConfig{
		Key:          cfg.Telemetry.Key,
		LocalLogPath: cfg.Telemetry.LocalLogPath,
	}, logger)

	logger.WithFields(logrus.Fields{
		"storage":      cfg.Storage.Type,
		"model_bucket": cfg.Model.Bucket,
		"log_bucket":   cfg.Telemetry.Bucket,
		"mode":         config.GetDeploymentMode(),
	}).Debug("Container initialized")

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Models:     cache,
		Telemetry:  recorder,
		modelStore: modelStore,
		logStore:   logStore,
	}, nil
}

// NewLogger builds the process logger. Lambda gets JSON lines for
// CloudWatch; the local server gets text.
func NewLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if config.IsServerlessMode() || cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// ModelStore returns the model bucket storage
func (c *Container) ModelStore() storage.FileStorage {
	return c.modelStore
}

// LogStore returns the log bucket storage
func (c *Container) LogStore() storage.FileStorage {
	return c.logStore
}

// Close cleans up all resources
func (c *Container) Close() error {
	var errs []error
	if c.modelStore != nil {
		if err := c.modelStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close model storage: %w", err))
		}
	}
	if c.logStore != nil {
		if err := c.logStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func bucketConfig(sc config.StorageConfig, bucket string) *storage.StorageConfig {
	return &storage.StorageConfig{
		Type:     sc.Type,
		BasePath: sc.LocalPath,
		Bucket:   bucket,
		Region:   sc.S3Region,
		Options: map[string]string{
			"endpoint":         sc.S3Endpoint,
			"use_path_style":   strconv.FormatBool(sc.S3UsePathStyle),
			"credentials_file": sc.GCSCredentials,
		},
	}
}

func retryConfig(sc config.StorageConfig) *storage.RetryConfig {
	rc := storage.DefaultRetryConfig()
	if sc.RetryAttempts > 0 {
		rc.MaxAttempts = sc.RetryAttempts
	}
	if sc.RetryBaseDelay > 0 {
		rc.InitialDelay = sc.RetryBaseDelay
	}
	if sc.RetryMaxBackoff > 0 {
		rc.MaxDelay = sc.RetryMaxBackoff
	}
	return rc
}
