package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"coldstart-inference/internal/config"
	"coldstart-inference/internal/middleware"
	"coldstart-inference/pkg/lambda"

	"github.com/gin-gonic/gin"
)

// HTTPHandler exposes the predict handler on the local gin server
type HTTPHandler struct {
	predict  *PredictHandler
	function config.FunctionConfig
	timeout  time.Duration
}

// NewHTTPHandler creates a new HTTP handler. Invocations get timeout as
// their time budget, reported as remaining time in the telemetry log.
func NewHTTPHandler(predict *PredictHandler, function config.FunctionConfig, timeout time.Duration) *HTTPHandler {
	return &HTTPHandler{
		predict:  predict,
		function: function,
		timeout:  timeout,
	}
}

// Predict godoc
// @Summary Predict a single record
// @Description Runs the model on one feature vector
// @Tags predict
// @Accept json
// @Produce json
// @Param request body PredictInput true "Feature vector"
// @Success 200 {object} map[string]number
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /predict [post]
func (h *HTTPHandler) Predict(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	deadline, _ := ctx.Deadline()

	req := &lambda.Request{
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		Headers:     flattenHeaders(c.Request.Header),
		QueryParams: flattenHeaders(c.Request.URL.Query()),
		Body:        body,
	}
	inv := lambda.NewInvocation(c.GetString(middleware.RequestIDKey), h.function, deadline)

	resp := h.predict.Handle(ctx, req, inv)
	c.Data(resp.StatusCode, resp.Headers["Content-Type"], resp.Body)
}

func flattenHeaders(values map[string][]string) map[string]string {
	flat := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	return flat
}

// ModelStatus reports the state of the model cache
type ModelStatus interface {
	IsLoaded() bool
	LoadedAt() time.Time
	ArtifactExists(ctx context.Context) (bool, error)
}

// HealthHandler reports whether the model is cached and reachable
type HealthHandler struct {
	models  ModelStatus
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(models ModelStatus, version string) *HealthHandler {
	return &HealthHandler{models: models, version: version}
}

// Health godoc
// @Summary Health check
// @Description Reports whether the model is cached and its artifact is reachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := gin.H{
		"status":       "healthy",
		"timestamp":    time.Now().UTC(),
		"version":      h.version,
		"model_cached": h.models.IsLoaded(),
	}
	if loadedAt := h.models.LoadedAt(); !loadedAt.IsZero() {
		response["model_loaded_at"] = loadedAt.UTC()
	}

	status := http.StatusOK
	exists, err := h.models.ArtifactExists(c.Request.Context())
	switch {
	case err != nil:
		response["status"] = "degraded"
		response["model_artifact"] = "unreachable"
		response["error"] = err.Error()
		status = http.StatusServiceUnavailable
	case !exists && !h.models.IsLoaded():
		response["status"] = "degraded"
		response["model_artifact"] = "missing"
		status = http.StatusServiceUnavailable
	case exists:
		response["model_artifact"] = "present"
	default:
		response["model_artifact"] = "missing"
	}

	c.JSON(status, response)
}
