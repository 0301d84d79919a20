package lambda

import (
	"context"
	"time"

	"coldstart-inference/internal/config"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Invocation carries the host metadata of one invocation. It satisfies
// telemetry.InvocationContext.
type Invocation struct {
	requestID       string
	functionName    string
	functionVersion string
	deadline        time.Time
	now             func() time.Time
}

// NewInvocation describes an invocation outside of the Lambda runtime. A
// zero deadline reports no remaining time.
func NewInvocation(requestID string, fn config.FunctionConfig, deadline time.Time) *Invocation {
	return &Invocation{
		requestID:       requestID,
		functionName:    fn.Name,
		functionVersion: fn.Version,
		deadline:        deadline,
		now:             time.Now,
	}
}

// InvocationFromContext reads the request id and function identity that the
// Lambda runtime attaches to ctx, falling back to fn outside of Lambda. The
// remaining time is measured against the context deadline.
func InvocationFromContext(ctx context.Context, fn config.FunctionConfig) *Invocation {
	var requestID string
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}

	if lambdacontext.FunctionName != "" {
		fn.Name = lambdacontext.FunctionName
	}
	if lambdacontext.FunctionVersion != "" {
		fn.Version = lambdacontext.FunctionVersion
	}

	deadline, _ := ctx.Deadline()
	return NewInvocation(requestID, fn, deadline)
}

func (i *Invocation) RequestID() string       { return i.requestID }
func (i *Invocation) FunctionName() string    { return i.functionName }
func (i *Invocation) FunctionVersion() string { return i.functionVersion }

// RemainingTimeMillis returns the time left before the deadline, never
// negative
func (i *Invocation) RemainingTimeMillis() int64 {
	if i.deadline.IsZero() {
		return 0
	}
	remaining := i.deadline.Sub(i.now()).Milliseconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}
