package telemetry

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Recording stages
const (
	StageSample  = "sample"
	StageAppend  = "append"
	StageMerge   = "merge"
	StagePublish = "publish"
)

// TelemetryError reports a failed recording step. It is logged and never
// returned to the invocation caller.
type TelemetryError struct {
	Stage string
	Err   error
}

func (e *TelemetryError) Error() string {
	return fmt.Sprintf("telemetry %s failed: %v", e.Stage, e.Err)
}

func (e *TelemetryError) Unwrap() error {
	return e.Err
}

// BestEffort runs fn and logs its error or panic as a warning. It never
// fails and never panics.
func BestEffort(logger *logrus.Logger, op string, fn func() error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()

	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": op,
			"error":     err.Error(),
		}).Warn("Best-effort operation failed")
	}
}
