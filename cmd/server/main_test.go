package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coldstart-inference/internal/adapters/storage"
	"coldstart-inference/internal/config"
	"coldstart-inference/pkg/server"

	"github.com/gin-gonic/gin"
)

func newTestContainer(t *testing.T) (*server.Container, *storage.MockFileStorage, *storage.MockFileStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cfg := &config.Config{
		Environment: "test",
		LogLevel:    "error",
		Storage:     config.StorageConfig{Type: "mock", RetryAttempts: 1},
		Model: config.ModelConfig{
			Bucket:           "models",
			Key:              "mlp_model.json",
			LocalPath:        filepath.Join(dir, "mlp_model.json"),
			ProbePath:        filepath.Join(dir, "test_model.json"),
			PredictionFormat: config.PredictionFormatInteger,
		},
		Telemetry: config.TelemetryConfig{
			Bucket:       "logs",
			Key:          "log.csv",
			LocalLogPath: filepath.Join(dir, "log.csv"),
		},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			RateLimitRPS:   100,
			RateLimitBurst: 100,
		},
		Function: config.FunctionConfig{Name: "local-fn", Version: "$LATEST"},
	}

	container, err := server.NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	t.Cleanup(func() { container.Close() })

	return container, unwrapMock(t, container.ModelStore()), unwrapMock(t, container.LogStore())
}

func unwrapMock(t *testing.T, fs storage.FileStorage) *storage.MockFileStorage {
	t.Helper()
	if wrapped, ok := fs.(interface{ Unwrap() storage.FileStorage }); ok {
		fs = wrapped.Unwrap()
	}
	mock, ok := fs.(*storage.MockFileStorage)
	if !ok {
		t.Fatalf("Expected mock storage, got %T", fs)
	}
	return mock
}

func TestRouterPredictFlow(t *testing.T) {
	container, models, logs := newTestContainer(t)
	models.Put("mlp_model.json", []byte(`{"format":"linear","n_features":3,"coef":[1,1,1],"intercept":1.5}`))

	router := newRouter(container)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"features":[1,2,3]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.String() != `{"prediction": 7}` {
			t.Fatalf("Request %d: got %d %s", i, w.Code, w.Body.String())
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("Response should carry a request id")
		}
	}

	// Probe and load on the cold request only
	if got := models.Calls("Retrieve"); got != 2 {
		t.Errorf("Expected 2 model fetches, got %d", got)
	}

	durable, ok := logs.Get("log.csv")
	if !ok {
		t.Fatal("Durable log should exist after a prediction")
	}
	if lines := strings.Count(string(durable), "\n"); lines != 3 {
		t.Errorf("Expected header + 2 rows, got %d lines:\n%s", lines, durable)
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	container, models, _ := newTestContainer(t)
	models.Put("mlp_model.json", []byte(`{"format":"linear","n_features":1,"coef":[1]}`))
	router := newRouter(container)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Health returned %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("Metrics endpoint should expose the default registry")
	}
}

func TestRouterRejectsNonJSON(t *testing.T) {
	container, _, _ := newTestContainer(t)
	router := newRouter(container)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("features=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415, got %d", w.Code)
	}
}
