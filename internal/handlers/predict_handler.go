package handlers

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"coldstart-inference/internal/metrics"
	"coldstart-inference/internal/model"
	"coldstart-inference/internal/telemetry"
	"coldstart-inference/internal/tracing"
	"coldstart-inference/pkg/lambda"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ModelProvider returns a ready model, loading it on first use
type ModelProvider interface {
	EnsureLoaded(ctx context.Context) (model.Model, error)
}

// TelemetryRecorder stores the telemetry of a successful invocation
type TelemetryRecorder interface {
	Record(ctx context.Context, latency time.Duration, inv telemetry.InvocationContext)
}

// PredictHandler serves single-record predictions. The same handler backs
// the Lambda function and the local server.
type PredictHandler struct {
	models   ModelProvider
	recorder TelemetryRecorder
	format   string
	logger   *logrus.Logger
	validate *validator.Validate
}

// NewPredictHandler creates a new predict handler
func NewPredictHandler(models ModelProvider, recorder TelemetryRecorder, format string, logger *logrus.Logger) *PredictHandler {
	if logger == nil {
		logger = logrus.New()
	}
	if format == "" {
		format = model.FormatInteger
	}
	return &PredictHandler{
		models:   models,
		recorder: recorder,
		format:   format,
		logger:   logger,
		validate: newValidator(),
	}
}

// Handle runs one invocation and always returns a response
func (h *PredictHandler) Handle(ctx context.Context, req *lambda.Request, inv telemetry.InvocationContext) *lambda.Response {
	ctx, span := tracing.Tracer("handlers").Start(ctx, "predict.invoke")
	defer span.End()

	entry := h.logger.WithField("request_id", requestID(inv))
	entry.Info("Predict handler started")

	result := h.run(ctx, req, inv, entry)

	resp := result.Response()
	status := strconv.Itoa(resp.StatusCode)
	metrics.ObserveInvocation(status)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if !result.IsOK() {
		span.SetStatus(codes.Error, result.Kind.String())
	}
	return resp
}

// run walks model ready, input parsed, predicted and metrics recorded. A
// panic anywhere becomes an unhandled failure.
func (h *PredictHandler) run(ctx context.Context, req *lambda.Request, inv telemetry.InvocationContext, entry *logrus.Entry) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			entry.WithFields(logrus.Fields{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Error("Unhandled exception in handler")
			result = Fail(KindUnhandled, fmt.Sprintf("An unexpected error occurred: %v", r))
		}
	}()

	start := time.Now()

	m, err := h.models.EnsureLoaded(ctx)
	if err != nil {
		entry.WithError(err).Error("Failed to load model")
		if !model.IsLoadError(err) {
			return Fail(KindUnhandled, fmt.Sprintf("An unexpected error occurred: %v", err))
		}
		return Fail(KindLoad, "model unavailable")
	}

	var body []byte
	if req != nil {
		body = req.Body
	}
	features, err := parseInput(h.validate, body)
	if err != nil {
		entry.WithError(err).Warn("Error parsing input JSON or features")
		return Fail(KindInput, err.Error())
	}

	raw, err := model.Predict(m, features)
	if err != nil {
		entry.WithError(err).Error("Prediction failed")
		if !model.IsInferenceError(err) {
			return Fail(KindUnhandled, fmt.Sprintf("An unexpected error occurred: %v", err))
		}
		return Fail(KindInference, err.Error())
	}
	prediction := model.Normalize(raw, h.format)

	latency := time.Since(start)
	metrics.ObserveLatency(latency)
	entry.WithFields(logrus.Fields{
		"prediction": prediction,
		"latency_ms": float64(latency.Microseconds()) / 1000,
	}).Info("Request processed")

	telemetry.BestEffort(h.logger, "record telemetry", func() error {
		h.recorder.Record(ctx, latency, inv)
		return nil
	})

	return Ok(prediction)
}

func requestID(inv telemetry.InvocationContext) string {
	if inv == nil {
		return ""
	}
	return inv.RequestID()
}
