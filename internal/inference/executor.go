// Package inference turns a staged image upload into a model prediction and
// runs that work on a bounded worker pool.
package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/registry"
	"predictd/internal/staging"
	"predictd/pkg/types"
)

// ParamThreshold overrides the model decision threshold for one request.
const ParamThreshold = "threshold"

// InferenceError reports a failure while executing a model on an input:
// undecodable image, shape mismatch, invalid parameters or a runtime panic.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %s: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// IsInference reports whether err is an InferenceError.
func IsInference(err error) bool {
	var t *InferenceError
	return errors.As(err, &t)
}

// Options configures an Executor.
type Options struct {
	// MaxPixels caps the decoded image area; zero uses DefaultMaxPixels.
	MaxPixels int
	Logger    zerolog.Logger
}

// Executor runs ready models on staged uploads. It holds no per-request
// state and is safe for concurrent use.
type Executor struct {
	maxPixels int
	log       zerolog.Logger
}

func NewExecutor(opts Options) *Executor {
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	return &Executor{maxPixels: opts.MaxPixels, log: opts.Logger}
}

// Run decodes the image at up.Path, preprocesses it for h.Model and returns
// the prediction. Context errors are returned unwrapped.
func (x *Executor) Run(ctx context.Context, h *registry.Handle, up *staging.Upload, params map[string]string) (pred types.Prediction, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = &InferenceError{Model: h.ID, Err: fmt.Errorf("panic: %v", rec)}
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		runDuration.WithLabelValues(h.ID, result).Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return pred, err
	}
	m := h.Model

	threshold := 0.0
	if s, ok := params[ParamThreshold]; ok && s != "" {
		v, perr := strconv.ParseFloat(s, 64)
		if perr != nil || v <= 0 || v >= 1 {
			return pred, &InferenceError{Model: h.ID, Err: fmt.Errorf("invalid threshold %q: must be in (0, 1)", s)}
		}
		threshold = v
	}

	f, err := os.Open(up.Path)
	if err != nil {
		return pred, &staging.StorageError{Op: "open", Path: up.Path, Err: err}
	}
	defer f.Close()

	img, format, err := decodeImage(f, x.maxPixels)
	if err != nil {
		return pred, &InferenceError{Model: h.ID, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return pred, err
	}

	resized := resize(img, m.Input.Width, m.Input.Height)
	features := gridFeatures(resized, m.Input.Grid)
	score, err := m.Score(features)
	if err != nil {
		return pred, &InferenceError{Model: h.ID, Err: err}
	}
	d := m.Decide(score, threshold)

	pred = types.Prediction{
		Model:      h.ID,
		Label:      d.Label,
		Positive:   d.Positive,
		Score:      score,
		Confidence: d.Confidence,
		Threshold:  d.Threshold,
		DurationMS: time.Since(start).Milliseconds(),
	}
	x.log.Debug().
		Str("model", h.ID).
		Str("format", format).
		Int("src_w", img.Bounds().Dx()).
		Int("src_h", img.Bounds().Dy()).
		Float64("score", score).
		Str("label", d.Label).
		Msg("inference done")
	return pred, nil
}
