package lambda

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"coldstart-inference/internal/config"
	"coldstart-inference/internal/tracing"
	"coldstart-inference/pkg/server"
)

const serviceName = "coldstart-inference"

// ConnectionManager owns the per-process dependency container of a Lambda
// function. The container holds the model cache, so it survives between
// warm invocations of the same execution environment.
type ConnectionManager struct {
	container *server.Container
	mu        sync.RWMutex
	config    *config.Config
	loadCfg   func() (*config.Config, error)

	// set once the tracer provider is installed
	shutdownTracing tracing.ShutdownFunc
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = NewConnectionManager(config.GetOptimizedConfig)
	})
	return globalConnectionManager
}

// NewConnectionManager creates a manager that loads its configuration with
// loadCfg on first use
func NewConnectionManager(loadCfg func() (*config.Config, error)) *ConnectionManager {
	return &ConnectionManager{loadCfg: loadCfg}
}

// GetContainer returns the service container, building it on first use.
// The first build also installs the tracer provider named by
// TRACE_EXPORTER. After a failure the next call tries again.
func (cm *ConnectionManager) GetContainer(ctx context.Context) (*server.Container, error) {
	cm.mu.RLock()
	if cm.container != nil {
		container := cm.container
		cm.mu.RUnlock()
		return container, nil
	}
	cm.mu.RUnlock()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container != nil {
		return cm.container, nil
	}

	cfg := cm.config
	if cfg == nil {
		var err error
		if cfg, err = cm.loadCfg(); err != nil {
			return nil, err
		}
		cm.config = cfg
	}

	if cm.shutdownTracing == nil {
		shutdown, err := tracing.Init(ctx, cfg.Telemetry.TraceExport, serviceName, cfg.Function.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		cm.shutdownTracing = shutdown
	}

	container, err := server.NewContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cm.container = container
	return container, nil
}

// Cleanup closes the container and flushes pending spans. The next
// GetContainer builds everything again.
func (cm *ConnectionManager) Cleanup(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var errs []error
	if cm.container != nil {
		if err := cm.container.Close(); err != nil {
			errs = append(errs, err)
		}
		cm.container = nil
	}
	if cm.shutdownTracing != nil {
		if err := cm.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
		cm.shutdownTracing = nil
	}
	return errors.Join(errs...)
}
