package telemetry

import (
	"context"
	"sync"
	"time"

	"coldstart-inference/internal/adapters/storage"
	"coldstart-inference/internal/metrics"
	"coldstart-inference/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecorderConfig locates the local and durable logs
type RecorderConfig struct {
	Key          string // durable log object in the log bucket
	LocalLogPath string
	Sampler      ResourceSampler  // nil uses HostSampler
	Clock        func() time.Time // nil uses time.Now
}

// Recorder appends invocation telemetry to the local log and merges it into
// the durable log
type Recorder struct {
	store   storage.FileStorage
	local   *LocalLog
	key     string
	sampler ResourceSampler
	clock   func() time.Time
	logger  *logrus.Logger

	// serializes merges from this process only
	mu sync.Mutex
}

// NewRecorder creates a recorder publishing to the log bucket store
func NewRecorder(store storage.FileStorage, config RecorderConfig, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	if config.Sampler == nil {
		config.Sampler = HostSampler{}
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Recorder{
		store:   store,
		local:   NewLocalLog(config.LocalLogPath),
		key:     config.Key,
		sampler: config.Sampler,
		clock:   config.Clock,
		logger:  logger,
	}
}

// LocalLog returns the scratch log the recorder appends to
func (r *Recorder) LocalLog() *LocalLog {
	return r.local
}

// Record stores one telemetry row for the invocation. Failures are logged
// and never returned.
func (r *Recorder) Record(ctx context.Context, latency time.Duration, inv InvocationContext) {
	BestEffort(r.logger, "record telemetry", func() error {
		return r.record(ctx, latency, inv)
	})
}

func (r *Recorder) record(ctx context.Context, latency time.Duration, inv InvocationContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := tracing.Tracer("telemetry").Start(ctx, "telemetry.record")
	defer span.End()

	snapshot, err := r.sampler.Sample(ctx)
	if err != nil {
		return r.fail(span, &TelemetryError{Stage: StageSample, Err: err})
	}

	record := NewRecord(r.clock(), latency, snapshot, inv)
	span.SetAttributes(attribute.String("faas.invocation_id", record.RequestID))

	if err := r.local.Append(record.Row()); err != nil {
		return r.fail(span, &TelemetryError{Stage: StageAppend, Err: err})
	}

	local, err := r.local.Read()
	if err != nil {
		return r.fail(span, &TelemetryError{Stage: StageMerge, Err: err})
	}

	fields := logrus.Fields{"key": r.key, "request_id": record.RequestID}
	r.logger.WithFields(fields).Info("Checking for existing durable log")

	outcome := metrics.OutcomeSuccess
	var content []byte

	durable, err := r.store.Retrieve(ctx, r.key)
	switch {
	case err == nil && len(durable) > 0:
		content, err = Merge(durable, local.Pending())
		if err != nil {
			return r.fail(span, &TelemetryError{Stage: StageMerge, Err: err})
		}
		fields["appended_rows"] = len(local.Pending())
	case err == nil || storage.IsNotFound(err):
		r.logger.WithFields(fields).Info("No existing durable log found, starting fresh")
		outcome = metrics.OutcomeBootstrap
		content = local.Content
		fields["appended_rows"] = len(local.Rows)
	default:
		metrics.ObserveTelemetryPublish(metrics.OutcomeAborted)
		span.RecordError(err)
		span.SetStatus(codes.Error, "durable log fetch failed")
		r.logger.WithFields(fields).WithError(err).Error("Error checking for existing durable log")
		return nil
	}

	err = r.store.Store(ctx, r.key, content, &storage.StoreOptions{
		ContentType: "text/csv",
		Overwrite:   true,
	})
	if err != nil {
		return r.fail(span, &TelemetryError{Stage: StagePublish, Err: err})
	}

	if err := r.local.MarkMerged(len(local.Rows)); err != nil {
		// The rows are published; a stale watermark only duplicates them later
		r.logger.WithFields(fields).WithError(err).Warn("Failed to update merge watermark")
	}

	metrics.ObserveTelemetryPublish(outcome)
	fields["bytes"] = len(content)
	r.logger.WithFields(fields).Info("Durable log uploaded")
	return nil
}

func (r *Recorder) fail(span trace.Span, err *TelemetryError) error {
	metrics.ObserveTelemetryPublish(metrics.OutcomeFailure)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Stage+" failed")
	return err
}
