package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrShapeMismatch   = errors.New("feature shape mismatch")
	ErrEmptyOutput     = errors.New("model returned no output")
	ErrNonFinite       = errors.New("model returned a non-finite value")
)

// Load stages
const (
	StageFetch  = "fetch"
	StageWrite  = "write"
	StageRead   = "read"
	StageDecode = "decode"
)

// LoadError reports a failed cold load. The cache slot stays empty after a
// LoadError so the next call starts over.
type LoadError struct {
	Key   string
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("model load failed at %s for key '%s': %v", e.Stage, e.Key, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// InferenceError reports a model that was loaded but could not predict
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// IsLoadError returns true if err is or wraps a *LoadError
func IsLoadError(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr)
}

// IsInferenceError returns true if err is or wraps an *InferenceError
func IsInferenceError(err error) bool {
	var inferenceErr *InferenceError
	return errors.As(err, &inferenceErr)
}
