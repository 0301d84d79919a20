package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"coldstart-inference/pkg/lambda"
)

// ErrorKind classifies a failed invocation
type ErrorKind int

const (
	KindInput ErrorKind = iota + 1
	KindLoad
	KindInference
	KindUnhandled
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLoad:
		return "load"
	case KindInference:
		return "inference"
	case KindUnhandled:
		return "unhandled"
	default:
		return "unknown"
	}
}

// StatusCode maps the kind to its HTTP status
func (k ErrorKind) StatusCode() int {
	if k == KindInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Result is the outcome of one invocation: a prediction or a failure kind
// with its message. It becomes a wire response only in Response.
type Result struct {
	Prediction float64
	Kind       ErrorKind // zero on success
	Message    string
}

// Ok is a successful result
func Ok(prediction float64) Result {
	return Result{Prediction: prediction}
}

// Fail is a failed result
func Fail(kind ErrorKind, message string) Result {
	return Result{Kind: kind, Message: message}
}

// IsOK reports whether the invocation produced a prediction
func (r Result) IsOK() bool {
	return r.Kind == 0
}

// StatusCode returns the HTTP status of the result
func (r Result) StatusCode() int {
	if r.IsOK() {
		return http.StatusOK
	}
	return r.Kind.StatusCode()
}

// Response renders the wire envelope: {"prediction": n} or {"error": msg}
func (r Result) Response() *lambda.Response {
	var body []byte
	if r.IsOK() {
		body = singleField("prediction", r.Prediction)
	} else {
		body = singleField("error", r.Message)
	}

	return &lambda.Response{
		StatusCode: r.StatusCode(),
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

// singleField encodes a one-key object with a space after the colon, the
// format existing clients of this endpoint parse
func singleField(key string, value any) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeJSON(&buf, key)
	buf.WriteString(": ")
	writeJSON(&buf, value)
	buf.WriteByte('}')
	return buf.Bytes()
}

func writeJSON(buf *bytes.Buffer, v any) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.WriteString("null")
		return
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
}
