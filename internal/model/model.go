// Package model decodes model artifacts and evaluates them.
//
// An artifact is a logistic classifier over a pooled image: the input image
// is resized to Input.Width x Input.Height, normalized to [0,1], and averaged
// over a Grid x Grid lattice of cells, giving Grid*Grid*3 features in
// row-major cell order with interleaved RGB. The score is
// sigmoid(weights . features + bias).
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Extensions lists the artifact encodings in lookup order.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

const (
	KindLogistic     = "logistic"
	defaultThreshold = 0.5
	defaultPositive  = "prediabet"
	defaultNegative  = "non_diabet"
)

// Input describes the image geometry a model expects.
type Input struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Grid   int `json:"grid"`
}

// Labels names the two classes.
type Labels struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Artifact is the serialized form of a model.
type Artifact struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Kind          string    `json:"kind"`
	Input         Input     `json:"input"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	Threshold     *float64  `json:"threshold"`
	PositiveBelow bool      `json:"positive_below"`
	Labels        Labels    `json:"labels"`
}

// Model is a validated, immutable artifact ready for prediction. It is safe
// for concurrent use.
type Model struct {
	Name          string
	Description   string
	Kind          string
	Input         Input
	Threshold     float64
	PositiveBelow bool
	Labels        Labels
	Source        string

	weights []float64
	bias    float64
}

// ErrShape is wrapped when a feature vector does not match the model input.
var ErrShape = errors.New("shape mismatch")

// FeatureLen is the number of features the model consumes.
func (m *Model) FeatureLen() int { return m.Input.Grid * m.Input.Grid * 3 }

// Score returns the sigmoid output for features.
func (m *Model) Score(features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, fmt.Errorf("%w: model %s expects %d features, got %d", ErrShape, m.Name, len(m.weights), len(features))
	}
	z := m.bias
	for i, w := range m.weights {
		z += w * features[i]
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, fmt.Errorf("model %s produced a non-finite activation", m.Name)
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Decision is the class chosen for a score.
type Decision struct {
	Positive   bool
	Label      string
	Confidence float64
	Threshold  float64
}

// Decide maps a score to a class. A threshold outside (0,1) uses the model default.
// Confidence is the probability of the decided class.
func (m *Model) Decide(score, threshold float64) Decision {
	if threshold <= 0 || threshold >= 1 {
		threshold = m.Threshold
	}
	above := score >= threshold
	d := Decision{Threshold: threshold}
	d.Positive = above != m.PositiveBelow
	if above {
		d.Confidence = score
	} else {
		d.Confidence = 1 - score
	}
	if d.Positive {
		d.Label = m.Labels.Positive
	} else {
		d.Label = m.Labels.Negative
	}
	return d
}

// Summary renders a short human-readable description.
func (m *Model) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: %s (%s)\n", m.Name, m.Kind)
	if m.Description != "" {
		fmt.Fprintf(&b, "  %s\n", m.Description)
	}
	fmt.Fprintf(&b, "  input:     %dx%d RGB, %dx%d pooling grid\n", m.Input.Width, m.Input.Height, m.Input.Grid, m.Input.Grid)
	fmt.Fprintf(&b, "  features:  %d\n", m.FeatureLen())
	side := "at or above"
	if m.PositiveBelow {
		side = "below"
	}
	fmt.Fprintf(&b, "  threshold: %.3f (positive %s)\n", m.Threshold, side)
	fmt.Fprintf(&b, "  labels:    %s / %s\n", m.Labels.Positive, m.Labels.Negative)
	if m.Source != "" {
		fmt.Fprintf(&b, "  source:    %s\n", m.Source)
	}
	return b.String()
}

// Load reads and validates the artifact at path.
func Load(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(b, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	m.Source = path
	return m, nil
}

// Decode parses raw artifact bytes in the encoding named by ext, validates
// them against the artifact schema and builds a Model.
func Decode(raw []byte, ext string) (*Model, error) {
	var doc any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		var m map[string]any
		if err := toml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		doc = m
	default:
		return nil, fmt.Errorf("unsupported artifact extension: %q", ext)
	}

	res, err := gojsonschema.Validate(gojsonschema.NewStringLoader(artifactSchema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid artifact: %s", strings.Join(msgs, "; "))
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(normalized, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return FromArtifact(a)
}

// FromArtifact checks the cross-field constraints the schema cannot express.
func FromArtifact(a Artifact) (*Model, error) {
	if a.Kind != KindLogistic {
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if a.Input.Grid > a.Input.Width || a.Input.Grid > a.Input.Height {
		return nil, fmt.Errorf("grid %d exceeds input %dx%d", a.Input.Grid, a.Input.Width, a.Input.Height)
	}
	want := a.Input.Grid * a.Input.Grid * 3
	if len(a.Weights) != want {
		return nil, fmt.Errorf("%w: %d weights for a %dx%dx3 input grid (want %d)", ErrShape, len(a.Weights), a.Input.Grid, a.Input.Grid, want)
	}
	m := &Model{
		Name:          a.Name,
		Description:   a.Description,
		Kind:          a.Kind,
		Input:         a.Input,
		Threshold:     defaultThreshold,
		PositiveBelow: a.PositiveBelow,
		Labels:        a.Labels,
		weights:       append([]float64(nil), a.Weights...),
		bias:          a.Bias,
	}
	if a.Threshold != nil {
		if *a.Threshold <= 0 || *a.Threshold >= 1 {
			return nil, fmt.Errorf("threshold %v outside (0,1)", *a.Threshold)
		}
		m.Threshold = *a.Threshold
	}
	if m.Labels.Positive == "" {
		m.Labels.Positive = defaultPositive
	}
	if m.Labels.Negative == "" {
		m.Labels.Negative = defaultNegative
	}
	return m, nil
}
