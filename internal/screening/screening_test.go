package screening

import (
	"math/rand/v2"
	"testing"

	"predictd/pkg/types"
)

func TestLevelTable(t *testing.T) {
	cases := []struct {
		tongue, nail bool
		level        Level
		min, max     float64
	}{
		{true, true, LevelHigh, 75, 95},
		{true, false, LevelModerate, 45, 70},
		{false, true, LevelModerate, 45, 70},
		{false, false, LevelLow, 5, 25},
	}
	a := NewAssessor(rand.New(rand.NewPCG(1, 2)))
	for _, tc := range cases {
		got := a.Assess(&types.Detection{DetectionType: types.DetectionTongue, IsDiabetic: tc.tongue},
			&types.Detection{DetectionType: types.DetectionNail, IsDiabetic: tc.nail})
		if got.RiskLevel != string(tc.level) {
			t.Fatalf("%v/%v: level %s, want %s", tc.tongue, tc.nail, got.RiskLevel, tc.level)
		}
		for i := 0; i < 50; i++ {
			p := a.Percentage(tc.level)
			if p < tc.min || p > tc.max {
				t.Fatalf("%s: percentage %v outside [%v, %v]", tc.level, p, tc.min, tc.max)
			}
		}
		if got.Recommendation != Recommendation(tc.level) || got.Recommendation == "" {
			t.Fatalf("%s: unexpected recommendation %q", tc.level, got.Recommendation)
		}
		if len(got.RiskFactors) != FactorCount {
			t.Fatalf("%s: %d factors", tc.level, len(got.RiskFactors))
		}
	}
}

func TestFactorsNormalWhenNothingPositive(t *testing.T) {
	a := NewAssessor(nil)
	got := a.Factors(false, false)
	for i := range normalFactors {
		if got[i] != normalFactors[i] {
			t.Fatalf("factors = %v", got)
		}
	}
	got[0] = "mutated"
	if normalFactors[0] == "mutated" {
		t.Fatalf("Factors returned the shared slice")
	}
}

func TestFactorsSampledFromOrgan(t *testing.T) {
	a := NewAssessor(rand.New(rand.NewPCG(7, 7)))
	inTongue := make(map[string]bool)
	for _, f := range tongueFactors {
		inTongue[f] = true
	}
	for i := 0; i < 20; i++ {
		got := a.Factors(true, false)
		seen := make(map[string]bool)
		for _, f := range got {
			if !inTongue[f] {
				t.Fatalf("factor %q is not a tongue factor", f)
			}
			if seen[f] {
				t.Fatalf("duplicate factor %q in %v", f, got)
			}
			seen[f] = true
		}
	}
}

func TestAssessMissingDetectionIsNegative(t *testing.T) {
	a := NewAssessor(nil)
	got := a.Assess(nil, &types.Detection{DetectionType: types.DetectionNail, IsDiabetic: true})
	if got.RiskLevel != string(LevelModerate) || got.LidahResult != nil || got.KukuResult == nil {
		t.Fatalf("unexpected analysis: %+v", got)
	}
}

func TestDetectionFromPrediction(t *testing.T) {
	d := Detection(types.DetectionTongue, types.Prediction{Label: "prediabet", Positive: true, Confidence: 0.8})
	if d.DetectionType != types.DetectionTongue || !d.IsDiabetic || d.Confidence != 0.8 || d.Label != "prediabet" {
		t.Fatalf("unexpected detection: %+v", d)
	}
	if Recommendation("unknown") == "" {
		t.Fatalf("fallback recommendation empty")
	}
}
