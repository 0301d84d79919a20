package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Prediction output formats
const (
	PredictionFormatInteger = "integer"
	PredictionFormatFloat   = "float"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	Storage     StorageConfig
	Model       ModelConfig
	Telemetry   TelemetryConfig
	Server      ServerConfig
	Function    FunctionConfig
}

// StorageConfig holds blob store configuration shared by both buckets
type StorageConfig struct {
	Type            string // "local", "s3", "gcs" or "mock"
	LocalPath       string
	S3Region        string
	S3Endpoint      string
	S3UsePathStyle  bool
	GCSCredentials  string
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	RetryMaxBackoff time.Duration
}

// ModelConfig locates the model artifact and its local scratch copies
type ModelConfig struct {
	Bucket           string
	Key              string
	LocalPath        string
	ProbePath        string
	PredictionFormat string
}

// TelemetryConfig locates the local and durable telemetry logs
type TelemetryConfig struct {
	Bucket       string
	Key          string
	LocalLogPath string
	TraceExport  string // "none" or "stdout"
}

// ServerConfig holds settings for the local HTTP server
type ServerConfig struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// FunctionConfig identifies the function outside of Lambda, where the
// runtime does not provide name and version
type FunctionConfig struct {
	Name    string
	Version string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./data/buckets")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("STORAGE_RETRY_ATTEMPTS", 3)
	v.SetDefault("STORAGE_RETRY_BASE_DELAY", "100ms")
	v.SetDefault("STORAGE_RETRY_MAX_BACKOFF", "2s")
	v.SetDefault("MODEL_BUCKET", "mlp-invscaling-bucket")
	v.SetDefault("MODEL_KEY", "mlp_model.json")
	v.SetDefault("MODEL_LOCAL_PATH", "./data/tmp/mlp_model.json")
	v.SetDefault("MODEL_PROBE_PATH", "./data/tmp/test_model.json")
	v.SetDefault("PREDICTION_FORMAT", PredictionFormatInteger)
	v.SetDefault("LOG_BUCKET", "cold-start-logs")
	v.SetDefault("LOG_KEY", "log.csv")
	v.SetDefault("LOCAL_LOG_PATH", "./data/tmp/log.csv")
	v.SetDefault("TRACE_EXPORTER", "none")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 50.0)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("FUNCTION_NAME", "coldstart-inference-local")
	v.SetDefault("FUNCTION_VERSION", "$LATEST")

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Storage: StorageConfig{
			Type:            v.GetString("STORAGE_TYPE"),
			LocalPath:       v.GetString("STORAGE_LOCAL_PATH"),
			S3Region:        v.GetString("S3_REGION"),
			S3Endpoint:      v.GetString("S3_ENDPOINT"),
			S3UsePathStyle:  v.GetBool("S3_USE_PATH_STYLE"),
			GCSCredentials:  v.GetString("GCS_CREDENTIALS_FILE"),
			RetryAttempts:   v.GetInt("STORAGE_RETRY_ATTEMPTS"),
			RetryBaseDelay:  v.GetDuration("STORAGE_RETRY_BASE_DELAY"),
			RetryMaxBackoff: v.GetDuration("STORAGE_RETRY_MAX_BACKOFF"),
		},
		Model: ModelConfig{
			Bucket:           v.GetString("MODEL_BUCKET"),
			Key:              v.GetString("MODEL_KEY"),
			LocalPath:        v.GetString("MODEL_LOCAL_PATH"),
			ProbePath:        v.GetString("MODEL_PROBE_PATH"),
			PredictionFormat: strings.ToLower(v.GetString("PREDICTION_FORMAT")),
		},
		Telemetry: TelemetryConfig{
			Bucket:       v.GetString("LOG_BUCKET"),
			Key:          v.GetString("LOG_KEY"),
			LocalLogPath: v.GetString("LOCAL_LOG_PATH"),
			TraceExport:  strings.ToLower(v.GetString("TRACE_EXPORTER")),
		},
		Server: ServerConfig{
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Function: FunctionConfig{
			Name:    v.GetString("FUNCTION_NAME"),
			Version: v.GetString("FUNCTION_VERSION"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the settings that cannot be defaulted
func (c *Config) Validate() error {
	if c.Model.Bucket == "" || c.Model.Key == "" {
		return fmt.Errorf("model bucket and key are required")
	}
	if c.Telemetry.Bucket == "" || c.Telemetry.Key == "" {
		return fmt.Errorf("log bucket and key are required")
	}
	switch c.Model.PredictionFormat {
	case PredictionFormatInteger, PredictionFormatFloat:
	default:
		return fmt.Errorf("unsupported prediction format: %s", c.Model.PredictionFormat)
	}
	return nil
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
