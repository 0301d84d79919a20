package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PredictInput is the invocation body. An empty features array is an
// input error; a wrong length is left to inference.
type PredictInput struct {
	Features []*float64 `json:"features" validate:"required,min=1,dive,required"`
}

// InputError reports a body that is not {"features": [number, ...]}
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("Invalid input format: %v", e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// parseInput decodes and validates body into a flat feature vector
func parseInput(validate *validator.Validate, body []byte) ([]float64, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &InputError{Err: errors.New("request body is empty")}
	}

	var input PredictInput
	if err := json.Unmarshal(body, &input); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return nil, &InputError{Err: fmt.Errorf("body must be a JSON object, got %s", typeErr.Value)}
			}
			return nil, &InputError{Err: fmt.Errorf("%s must be an array of numbers, got %s", typeErr.Field, typeErr.Value)}
		}
		return nil, &InputError{Err: err}
	}

	if err := validate.Struct(&input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return nil, &InputError{Err: errors.New(formatValidationErrors(validationErrors))}
		}
		return nil, &InputError{Err: err}
	}

	features := make([]float64, len(input.Features))
	for i, f := range input.Features {
		features[i] = *f
	}
	return features, nil
}

func formatValidationErrors(validationErrors validator.ValidationErrors) string {
	messages := make([]string, 0, len(validationErrors))
	for _, err := range validationErrors {
		var message string

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must contain at least %s value(s)", err.Field(), err.Param())
		default:
			message = fmt.Sprintf("%s is invalid", err.Field())
		}
		messages = append(messages, message)
	}
	return strings.Join(messages, "; ")
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return validate
}
