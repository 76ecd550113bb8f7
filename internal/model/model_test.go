package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const jsonArtifact = `{
  "name": "demo",
  "kind": "logistic",
  "input": {"width": 8, "height": 8, "grid": 1},
  "weights": [1, 1, 1],
  "bias": -1.5,
  "labels": {"positive": "yes", "negative": "no"}
}`

const yamlArtifact = `
kind: logistic
description: tongue screening
input: {width: 4, height: 4, grid: 2}
weights: [0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1]
threshold: 0.4
positive_below: true
`

const tomlArtifact = `
kind = "logistic"
weights = [0.5, -0.5, 0.25]
bias = 0.0

[input]
width = 2
height = 2
grid = 1
`

func TestDecodeJSON(t *testing.T) {
	m, err := Decode([]byte(jsonArtifact), ".json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Name != "demo" || m.FeatureLen() != 3 || m.Threshold != 0.5 {
		t.Fatalf("unexpected model: %+v", m)
	}
	if m.Labels.Positive != "yes" || m.Labels.Negative != "no" {
		t.Fatalf("labels not applied: %+v", m.Labels)
	}
}

func TestDecodeYAMLDefaults(t *testing.T) {
	m, err := Decode([]byte(yamlArtifact), ".yml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.FeatureLen() != 12 || m.Threshold != 0.4 || !m.PositiveBelow {
		t.Fatalf("unexpected model: %+v", m)
	}
	if m.Labels.Positive != "prediabet" || m.Labels.Negative != "non_diabet" {
		t.Fatalf("default labels not applied: %+v", m.Labels)
	}
}

func TestDecodeTOML(t *testing.T) {
	m, err := Decode([]byte(tomlArtifact), ".TOML")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Input.Width != 2 || m.FeatureLen() != 3 {
		t.Fatalf("unexpected model: %+v", m)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]struct {
		raw, ext, want string
	}{
		"unknown ext":    {jsonArtifact, ".h5", "unsupported artifact extension"},
		"bad json":       {`{"kind":`, ".json", "parse json"},
		"bad kind":       {strings.Replace(jsonArtifact, `"logistic"`, `"cnn"`, 1), ".json", "invalid artifact"},
		"missing input":  {`{"kind":"logistic","weights":[1]}`, ".json", "invalid artifact"},
		"weight count":   {strings.Replace(jsonArtifact, "[1, 1, 1]", "[1, 1]", 1), ".json", "shape mismatch"},
		"grid too large": {strings.Replace(jsonArtifact, `"grid": 1`, `"grid": 9`, 1), ".json", "exceeds input"},
		"bad threshold":  {strings.Replace(jsonArtifact, `"bias"`, `"threshold": 2, "bias"`, 1), ".json", "invalid artifact"},
		"zero threshold": {strings.Replace(jsonArtifact, `"bias"`, `"threshold": 0, "bias"`, 1), ".json", "threshold 0 outside (0,1)"},
		"unit threshold": {strings.Replace(jsonArtifact, `"bias"`, `"threshold": 1, "bias"`, 1), ".json", "threshold 1 outside (0,1)"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw), tc.ext)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestScore(t *testing.T) {
	m, err := Decode([]byte(jsonArtifact), ".json")
	if err != nil {
		t.Fatal(err)
	}
	s, err := m.Score([]float64{0.5, 0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s-0.5) > 1e-9 {
		t.Fatalf("score = %v, want 0.5", s)
	}
	if _, err := m.Score([]float64{1}); !errors.Is(err, ErrShape) {
		t.Fatalf("want ErrShape, got %v", err)
	}
}

func TestDecide(t *testing.T) {
	m, _ := Decode([]byte(jsonArtifact), ".json")
	d := m.Decide(0.8, 0)
	if !d.Positive || d.Label != "yes" || math.Abs(d.Confidence-0.8) > 1e-9 {
		t.Fatalf("unexpected decision: %+v", d)
	}
	d = m.Decide(0.2, 0)
	if d.Positive || d.Label != "no" || math.Abs(d.Confidence-0.8) > 1e-9 {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d = m.Decide(0.2, 0.1); !d.Positive || d.Threshold != 0.1 {
		t.Fatalf("threshold override ignored: %+v", d)
	}

	m.PositiveBelow = true
	if d = m.Decide(0.2, 0); !d.Positive || d.Label != "yes" {
		t.Fatalf("positive_below not honored: %+v", d)
	}
	if d = m.Decide(0.5, 0); d.Positive {
		t.Fatalf("score equal to threshold is not below it: %+v", d)
	}
}

func TestLoadNamesFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "kuku_model.toml")
	if err := os.WriteFile(p, []byte(tomlArtifact), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "kuku_model" || m.Source != p {
		t.Fatalf("unexpected name/source: %q %q", m.Name, m.Source)
	}
	if s := m.Summary(); !strings.Contains(s, "kuku_model") || !strings.Contains(s, "features:  3") {
		t.Fatalf("summary missing fields:\n%s", s)
	}
}
