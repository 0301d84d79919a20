package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coldstart-inference/internal/middleware"
	"coldstart-inference/internal/model"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubStatus struct {
	loaded bool
	exists bool
	err    error
}

func (s stubStatus) IsLoaded() bool { return s.loaded }

func (s stubStatus) LoadedAt() time.Time {
	if s.loaded {
		return time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

func (s stubStatus) ArtifactExists(ctx context.Context) (bool, error) { return s.exists, s.err }

func TestHTTPHandler_Predict(t *testing.T) {
	recorder := &recordingRecorder{}
	predict := NewPredictHandler(&stubProvider{model: &sevenModel{}}, recorder, model.FormatInteger, quietLogger())
	httpHandler := NewHTTPHandler(predict, testFunction, 30*time.Second)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.POST("/predict", httpHandler.Predict)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "valid", body: `{"features":[1,2,3]}`, wantStatus: http.StatusOK, wantBody: `{"prediction": 7}`},
		{name: "invalid", body: `{"features":"x"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Request-ID", "fixed-id")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("Body = %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}

	if len(recorder.requests) != 1 || recorder.requests[0] != "fixed-id" {
		t.Errorf("Telemetry should carry the request id header, got %v", recorder.requests)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		status     stubStatus
		wantCode   int
		wantStatus string
	}{
		{name: "cached", status: stubStatus{loaded: true, exists: true}, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "cold but reachable", status: stubStatus{exists: true}, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "cold and missing", status: stubStatus{}, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
		{name: "unreachable", status: stubStatus{err: errors.New("denied")}, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", NewHealthHandler(tt.status, "test").Health)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, w.Code)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", body["status"], tt.wantStatus)
			}
			if body["model_cached"] != tt.status.loaded {
				t.Errorf("model_cached = %v, want %v", body["model_cached"], tt.status.loaded)
			}
		})
	}
}
