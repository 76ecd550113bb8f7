package types

// Response status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// PredictResponse is the envelope returned by every prediction endpoint and
// by error responses.
type PredictResponse struct {
	// ok or error.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Prediction or Analysis payload on success.
	Result any `json:"result,omitempty"`
	// Error message on failure.
	// example: model not found: demo
	Error string `json:"error,omitempty" example:"model not found: demo"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	// Models discovered on disk merged with registry state.
	Models []ModelStatus `json:"models"`
}

// HealthResponse is returned by GET / and GET /health.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: API is running
	Message string `json:"message" example:"API is running"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Models cached by the registry.
	Models []ModelStatus `json:"models"`
	// Staged uploads currently on disk.
	// example: 0
	ActiveUploads int `json:"active_uploads" example:"0"`
	// Inference workers.
	// example: 4
	Workers int `json:"workers" example:"4"`
	// Jobs queued or running on the inference pool.
	// example: 1
	QueueLen int `json:"queue_len" example:"1"`
	// Maximum jobs admitted before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Jobs currently executing.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Total completed model loads.
	// example: 2
	LoadsTotal uint64 `json:"loads_total" example:"2"`
	// Total failed model loads.
	// example: 0
	LoadFailuresTotal uint64 `json:"load_failures_total" example:"0"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// HistoryEntry is one recorded prediction.
type HistoryEntry struct {
	ID         int64   `json:"id"`
	RequestID  string  `json:"request_id,omitempty"`
	ModelID    string  `json:"model_id"`
	Status     string  `json:"status"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
	CreatedAt  int64   `json:"created_at_unix"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
