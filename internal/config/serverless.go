package config

import (
	"os"
	"path/filepath"
	"sync"
)

// lambdaScratchDir is the only writable directory inside a Lambda sandbox
const lambdaScratchDir = "/tmp"

// ServerlessConfig holds serverless-specific configuration
type ServerlessConfig struct {
	IsLambda     bool
	FunctionName string
	Region       string
	Stage        string
}

// Global serverless configuration
var (
	serverlessConfig *ServerlessConfig
	serverlessOnce   sync.Once
)

// GetServerlessConfig returns the serverless configuration
func GetServerlessConfig() *ServerlessConfig {
	serverlessOnce.Do(func() {
		serverlessConfig = &ServerlessConfig{
			IsLambda:     isRunningInLambda(),
			FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
			Region:       os.Getenv("AWS_REGION"),
			Stage:        GetEnv("STAGE", "dev"),
		}
	})
	return serverlessConfig
}

// isRunningInLambda detects if the application is running in AWS Lambda
func isRunningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// IsServerlessMode returns true if running in serverless mode
func IsServerlessMode() bool {
	return GetServerlessConfig().IsLambda
}

// GetDeploymentMode returns the current deployment mode
func GetDeploymentMode() string {
	if IsServerlessMode() {
		return "serverless"
	}
	return "server"
}

// AdaptConfigForServerless modifies configuration for serverless deployment
func AdaptConfigForServerless(sc *ServerlessConfig, config *Config) *Config {
	if sc == nil || !sc.IsLambda {
		return config
	}

	// Local buckets do not survive a sandbox; force S3 unless a cloud
	// store was chosen explicitly
	if config.Storage.Type == "local" {
		config.Storage.Type = "s3"
	}
	if sc.Region != "" {
		config.Storage.S3Region = sc.Region
	}

	// Scratch files must live under /tmp
	config.Model.LocalPath = inScratchDir(config.Model.LocalPath)
	config.Model.ProbePath = inScratchDir(config.Model.ProbePath)
	config.Telemetry.LocalLogPath = inScratchDir(config.Telemetry.LocalLogPath)

	if sc.FunctionName != "" {
		config.Function.Name = sc.FunctionName
	}
	if version := os.Getenv("AWS_LAMBDA_FUNCTION_VERSION"); version != "" {
		config.Function.Version = version
	}

	return config
}

func inScratchDir(path string) string {
	if filepath.Dir(path) == lambdaScratchDir {
		return path
	}
	return filepath.Join(lambdaScratchDir, filepath.Base(path))
}

// GetOptimizedConfig returns configuration optimized for the current deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	return AdaptConfigForServerless(GetServerlessConfig(), config), nil
}
