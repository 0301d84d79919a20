package model

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// Artifact formats
const (
	ArtifactLinear = "linear"
	ArtifactMLP    = "mlp"
)

// Decoder turns a model artifact into a ready Model
type Decoder func(data []byte) (Model, error)

// artifact is the serialized form of a trained model. Weight layout matches
// scikit-learn: Coefs[layer][input][output], Intercepts[layer][output].
type artifact struct {
	Format           string        `json:"format"`
	NFeatures        int           `json:"n_features"`
	Coef             []float64     `json:"coef,omitempty"`
	Intercept        float64       `json:"intercept,omitempty"`
	Coefs            [][][]float64 `json:"coefs,omitempty"`
	Intercepts       [][]float64   `json:"intercepts,omitempty"`
	Activation       string        `json:"activation,omitempty"`
	OutputActivation string        `json:"output_activation,omitempty"`
	Classes          []float64     `json:"classes,omitempty"`
}

// Decode parses a JSON model artifact, gzip-compressed or plain. A model
// is returned only when every layer is consistent with its neighbours.
func Decode(data []byte) (Model, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrInvalidArtifact, err)
		}
		defer zr.Close()
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrInvalidArtifact, err)
		}
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if a.NFeatures <= 0 {
		return nil, fmt.Errorf("%w: n_features must be positive", ErrInvalidArtifact)
	}

	switch a.Format {
	case ArtifactLinear:
		return newLinearModel(&a)
	case ArtifactMLP:
		return newMLP(&a)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidArtifact, a.Format)
	}
}

// linearModel computes coef·x + intercept
type linearModel struct {
	coef      []float64
	intercept float64
}

func newLinearModel(a *artifact) (*linearModel, error) {
	if len(a.Coef) != a.NFeatures {
		return nil, fmt.Errorf("%w: %d coefficients for %d features", ErrInvalidArtifact, len(a.Coef), a.NFeatures)
	}
	return &linearModel{coef: a.Coef, intercept: a.Intercept}, nil
}

func (l *linearModel) NumFeatures() int { return len(l.coef) }

func (l *linearModel) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(l.coef) {
			return nil, fmt.Errorf("%w: row %d has %d values", ErrShapeMismatch, i, len(row))
		}
		sum := l.intercept
		for j, x := range row {
			sum += l.coef[j] * x
		}
		out[i] = sum
	}
	return out, nil
}

type activation func([]float64)

var hiddenActivations = map[string]activation{
	"identity": func([]float64) {},
	"relu": func(v []float64) {
		for i := range v {
			if v[i] < 0 {
				v[i] = 0
			}
		}
	},
	"tanh": func(v []float64) {
		for i := range v {
			v[i] = math.Tanh(v[i])
		}
	},
	"logistic": logistic,
}

func logistic(v []float64) {
	for i := range v {
		v[i] = 1 / (1 + math.Exp(-v[i]))
	}
}

func softmax(v []float64) {
	peak := math.Inf(-1)
	for _, x := range v {
		if x > peak {
			peak = x
		}
	}
	var sum float64
	for i := range v {
		v[i] = math.Exp(v[i] - peak)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

// mlp is a feed-forward network. Regressors return the first output unit;
// classifiers map the output layer onto classes.
type mlp struct {
	weights    [][][]float64
	biases     [][]float64
	hidden     activation
	outputKind string
	classes    []float64
}

func newMLP(a *artifact) (*mlp, error) {
	if len(a.Coefs) == 0 || len(a.Coefs) != len(a.Intercepts) {
		return nil, fmt.Errorf("%w: %d weight layers and %d intercept layers",
			ErrInvalidArtifact, len(a.Coefs), len(a.Intercepts))
	}

	hiddenName := a.Activation
	if hiddenName == "" {
		hiddenName = "relu"
	}
	hidden, ok := hiddenActivations[hiddenName]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported activation %q", ErrInvalidArtifact, a.Activation)
	}

	width := a.NFeatures
	for layer, w := range a.Coefs {
		if len(w) != width {
			return nil, fmt.Errorf("%w: layer %d expects %d inputs, has %d rows",
				ErrInvalidArtifact, layer, width, len(w))
		}
		out := len(a.Intercepts[layer])
		if out == 0 {
			return nil, fmt.Errorf("%w: layer %d has no units", ErrInvalidArtifact, layer)
		}
		for r, row := range w {
			if len(row) != out {
				return nil, fmt.Errorf("%w: layer %d row %d has %d columns, want %d",
					ErrInvalidArtifact, layer, r, len(row), out)
			}
		}
		width = out
	}

	outputKind := a.OutputActivation
	if outputKind == "" {
		outputKind = "identity"
	}
	switch outputKind {
	case "identity":
	case "logistic":
		if len(a.Classes) > 0 && (len(a.Classes) != 2 || width != 1) {
			return nil, fmt.Errorf("%w: logistic output needs 1 unit and 2 classes", ErrInvalidArtifact)
		}
	case "softmax":
		if len(a.Classes) != width || width < 2 {
			return nil, fmt.Errorf("%w: softmax output has %d units for %d classes",
				ErrInvalidArtifact, width, len(a.Classes))
		}
	default:
		return nil, fmt.Errorf("%w: unsupported output activation %q", ErrInvalidArtifact, a.OutputActivation)
	}

	return &mlp{
		weights:    a.Coefs,
		biases:     a.Intercepts,
		hidden:     hidden,
		outputKind: outputKind,
		classes:    a.Classes,
	}, nil
}

func (m *mlp) NumFeatures() int { return len(m.weights[0]) }

func (m *mlp) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != m.NumFeatures() {
			return nil, fmt.Errorf("%w: row %d has %d values", ErrShapeMismatch, i, len(row))
		}
		out[i] = m.decide(m.forward(row))
	}
	return out, nil
}

func (m *mlp) forward(row []float64) []float64 {
	act := row
	last := len(m.weights) - 1
	for layer, w := range m.weights {
		next := append([]float64(nil), m.biases[layer]...)
		for in, x := range act {
			for o, weight := range w[in] {
				next[o] += x * weight
			}
		}
		if layer < last {
			m.hidden(next)
		}
		act = next
	}
	return act
}

// decide applies the output activation and, for classifiers, picks a class
func (m *mlp) decide(out []float64) float64 {
	switch m.outputKind {
	case "logistic":
		logistic(out)
		if len(m.classes) == 2 {
			if out[0] > 0.5 {
				return m.classes[1]
			}
			return m.classes[0]
		}
	case "softmax":
		softmax(out)
		best := 0
		for i := range out {
			if out[i] > out[best] {
				best = i
			}
		}
		return m.classes[best]
	}
	return out[0]
}
