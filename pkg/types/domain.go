package types

// ModelStatus describes a model known to the server, either cached in the
// registry or discovered in the models directory.
type ModelStatus struct {
	// Model identifier (artifact file name without extension).
	// example: lidah_model
	ID string `json:"id" example:"lidah_model"`
	// Registry state: unloaded, loading, ready or failed.
	// example: ready
	State string `json:"state" example:"ready"`
	// Model kind declared by the artifact.
	// example: logistic
	Kind string `json:"kind,omitempty" example:"logistic"`
	// Input image size expected by the model.
	// example: 224
	InputWidth int `json:"input_width,omitempty" example:"224"`
	// example: 224
	InputHeight int `json:"input_height,omitempty" example:"224"`
	// Time the model finished loading (unix seconds).
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix,omitempty" example:"1700000000"`
	// Last time the model was resolved for a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix,omitempty" example:"1700000000"`
	// Load error for failed models.
	Error string `json:"error,omitempty"`
}

// Prediction is the payload returned for a single-model prediction.
type Prediction struct {
	// example: lidah_model
	Model string `json:"model" example:"lidah_model"`
	// Label of the decided class.
	// example: prediabet
	Label string `json:"label" example:"prediabet"`
	// True when the decided class is the model's positive class.
	// example: true
	Positive bool `json:"positive" example:"true"`
	// Raw sigmoid output of the model.
	// example: 0.18
	Score float64 `json:"score" example:"0.18"`
	// Probability of the decided class.
	// example: 0.82
	Confidence float64 `json:"confidence" example:"0.82"`
	// Decision threshold applied to the score.
	// example: 0.5
	Threshold float64 `json:"threshold" example:"0.5"`
	// example: 12
	DurationMS int64 `json:"duration_ms" example:"12"`
}

// DetectionType names the organ a screening model looks at.
type DetectionType string

const (
	DetectionTongue DetectionType = "lidah"
	DetectionNail   DetectionType = "kuku"
)

// Detection is the result of one screening model.
type Detection struct {
	// example: lidah
	DetectionType DetectionType `json:"detection_type" example:"lidah"`
	// example: true
	IsDiabetic bool `json:"is_diabetic" example:"true"`
	// example: 0.82
	Confidence float64 `json:"confidence" example:"0.82"`
	// example: prediabet
	Label string `json:"label" example:"prediabet"`
}

// Analysis combines tongue and nail detections into a risk assessment.
type Analysis struct {
	// example: sedang
	RiskLevel string `json:"risk_level" example:"sedang"`
	// example: 57.3
	RiskPercentage float64    `json:"risk_percentage" example:"57.3"`
	LidahResult    *Detection `json:"lidah_result"`
	KukuResult     *Detection `json:"kuku_result"`
	// Exactly three factors.
	RiskFactors    []string `json:"risk_factors_identified"`
	Recommendation string   `json:"recommendation"`
}
