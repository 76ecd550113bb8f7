// Package screening turns tongue and nail detections into a diabetes risk
// assessment.
package screening

import (
	"math"
	"math/rand/v2"
	"sync"

	"predictd/pkg/types"
)

// Level is a risk bucket.
type Level string

const (
	LevelHigh     Level = "tinggi"
	LevelModerate Level = "sedang"
	LevelLow      Level = "rendah"
)

// FactorCount is the number of risk factors in every assessment.
const FactorCount = 3

var tongueFactors = []string{
	"Tongue coating thickness abnormality",
	"Color changes in tongue surface",
	"Texture pattern irregularities",
	"Surface moisture level changes",
	"Papillae distribution abnormality",
	"Edge scalloping patterns detected",
}

var nailFactors = []string{
	"Nail discoloration patterns",
	"Texture irregularities detected",
	"Surface changes observed",
	"Yellow nail syndrome indicators",
	"Nail bed color variations",
	"Onycholysis early signs",
	"Paronychia-like inflammation",
	"Brittle nail characteristics",
	"Growth pattern abnormalities",
}

var generalFactors = []string{
	"Possible early stage indicators",
	"Minor variations from baseline",
	"Requires further monitoring",
}

var normalFactors = []string{
	"No significant abnormalities detected",
	"Normal appearance observed",
	"Healthy indicators present",
}

var recommendations = map[Level]string{
	LevelHigh: "High risk detected. We strongly recommend immediate consultation with a healthcare " +
		"professional for comprehensive diabetes screening and blood glucose testing. " +
		"Early intervention is crucial for better health outcomes.",
	LevelModerate: "Moderate risk detected. Please schedule a medical check-up within the next few weeks. " +
		"Consider monitoring your blood sugar levels and maintaining a healthy lifestyle with " +
		"balanced diet and regular exercise.",
	LevelLow: "Low risk detected. Continue maintaining a healthy lifestyle with regular exercise, " +
		"balanced nutrition, and adequate sleep. Regular health check-ups are still recommended " +
		"for prevention and early detection.",
}

// percentRange is the [min, max) risk percentage for each level.
var percentRange = map[Level][2]float64{
	LevelHigh:     {75, 95},
	LevelModerate: {45, 70},
	LevelLow:      {5, 25},
}

// Recommendation returns the advice text for level.
func Recommendation(level Level) string {
	if r, ok := recommendations[level]; ok {
		return r
	}
	return "Please consult with a healthcare professional."
}

// LevelFor buckets the number of positive detections.
func LevelFor(tonguePositive, nailPositive bool) Level {
	switch {
	case tonguePositive && nailPositive:
		return LevelHigh
	case tonguePositive || nailPositive:
		return LevelModerate
	default:
		return LevelLow
	}
}

// Assessor draws the random parts of an assessment. Safe for concurrent use.
type Assessor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAssessor uses rng, or a randomly seeded source when rng is nil.
func NewAssessor(rng *rand.Rand) *Assessor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Assessor{rng: rng}
}

// Percentage draws a risk percentage in the range of level, rounded to two
// decimals.
func (a *Assessor) Percentage(level Level) float64 {
	r, ok := percentRange[level]
	if !ok {
		r = percentRange[LevelLow]
	}
	a.mu.Lock()
	v := r[0] + a.rng.Float64()*(r[1]-r[0])
	a.mu.Unlock()
	return math.Round(v*100) / 100
}

// Factors returns exactly FactorCount risk factors for the detections.
func (a *Assessor) Factors(tonguePositive, nailPositive bool) []string {
	var pool []string
	if tonguePositive {
		pool = append(pool, tongueFactors...)
	}
	if nailPositive {
		pool = append(pool, nailFactors...)
	}
	if len(pool) == 0 {
		return append([]string(nil), normalFactors...)
	}
	if len(pool) > FactorCount {
		a.mu.Lock()
		a.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		a.mu.Unlock()
		return pool[:FactorCount]
	}
	return append(pool, generalFactors[:FactorCount-len(pool)]...)
}

// Assess combines the available detections. A missing detection counts as
// negative.
func (a *Assessor) Assess(tongue, nail *types.Detection) types.Analysis {
	tp := tongue != nil && tongue.IsDiabetic
	np := nail != nil && nail.IsDiabetic
	level := LevelFor(tp, np)
	return types.Analysis{
		RiskLevel:      string(level),
		RiskPercentage: a.Percentage(level),
		LidahResult:    tongue,
		KukuResult:     nail,
		RiskFactors:    a.Factors(tp, np),
		Recommendation: Recommendation(level),
	}
}

// Detection converts a single-model prediction into a screening detection.
func Detection(kind types.DetectionType, p types.Prediction) *types.Detection {
	return &types.Detection{
		DetectionType: kind,
		IsDiabetic:    p.Positive,
		Confidence:    p.Confidence,
		Label:         p.Label,
	}
}
