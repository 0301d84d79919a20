// Package model loads the serialized predictor from the model bucket,
// memoizes it for the lifetime of the process and runs single-record
// inference against it.
package model

import (
	"fmt"
	"math"
)

// Output formats applied by Normalize
const (
	FormatInteger = "integer"
	FormatFloat   = "float"
)

// Model is a deserialized predictor ready for inference
type Model interface {
	// NumFeatures is the width of one input row
	NumFeatures() int

	// Predict returns one output per input row
	Predict(rows [][]float64) ([]float64, error)
}

// Predict runs m on a single record. The flat feature vector becomes one
// row of NumFeatures columns and the first output is returned.
func Predict(m Model, features []float64) (float64, error) {
	if m == nil {
		return 0, &InferenceError{Err: fmt.Errorf("model is not loaded")}
	}
	if len(features) != m.NumFeatures() {
		return 0, &InferenceError{Err: fmt.Errorf("%w: got %d features, model expects %d",
			ErrShapeMismatch, len(features), m.NumFeatures())}
	}

	row := append([]float64(nil), features...)
	out, err := m.Predict([][]float64{row})
	if err != nil {
		return 0, &InferenceError{Err: err}
	}
	if len(out) == 0 {
		return 0, &InferenceError{Err: ErrEmptyOutput}
	}
	if math.IsNaN(out[0]) || math.IsInf(out[0], 0) {
		return 0, &InferenceError{Err: ErrNonFinite}
	}
	return out[0], nil
}

// Normalize shapes a raw prediction for the response body. The integer
// format truncates toward zero.
func Normalize(value float64, format string) float64 {
	if format == FormatInteger {
		truncated := math.Trunc(value)
		if truncated == 0 {
			return 0 // drop negative zero
		}
		return truncated
	}
	return value
}
