// Package pipeline drives a prediction request through its stages:
// stage the upload, resolve the model, run inference, respond. The staged
// upload is released on every exit path.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"predictd/internal/history"
	"predictd/internal/inference"
	"predictd/internal/registry"
	"predictd/internal/screening"
	"predictd/internal/staging"
	"predictd/pkg/types"
)

// State is a request lifecycle state.
type State string

const (
	StateReceived   State = "received"
	StateStaging    State = "staging"
	StateResolving  State = "resolving"
	StateInferring  State = "inferring"
	StateResponding State = "responding"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Request is one single-model prediction.
type Request struct {
	RequestID string
	ModelID   string
	FileName  string
	Body      io.Reader
	Params    map[string]string
}

// Image is one upload for a screening request.
type Image struct {
	FileName string
	Body     io.Reader
}

// ScreenRequest carries the tongue and nail images; either may be nil.
type ScreenRequest struct {
	RequestID string
	Tongue    *Image
	Nail      *Image
	Params    map[string]string
}

// Catalog lists the model ids available on disk.
type Catalog interface {
	Available() ([]string, error)
}

// Options wires a Pipeline. Staging, Registry, Executor and Pool are
// required.
type Options struct {
	Staging  *staging.Manager
	Registry *registry.Registry
	Executor *inference.Executor
	Pool     *inference.Pool
	Catalog  Catalog
	Assessor *screening.Assessor
	// History is optional; nil disables recording.
	History *history.Store

	TongueModel string
	NailModel   string
	// RequiredModels must be ready for Ready to report true.
	RequiredModels []string
	InferTimeout   time.Duration

	Logger zerolog.Logger
	// OnTransition observes every state change.
	OnTransition func(requestID string, from, to State)
}

// Pipeline is safe for concurrent use; it holds no per-request state.
type Pipeline struct {
	staging  *staging.Manager
	registry *registry.Registry
	exec     *inference.Executor
	pool     *inference.Pool
	catalog  Catalog
	assessor *screening.Assessor
	history  *history.Store

	tongueModel  string
	nailModel    string
	required     []string
	inferTimeout time.Duration
	log          zerolog.Logger
	onTransition func(string, State, State)
	started      time.Time
}

// New builds a Pipeline from opts.
func New(opts Options) *Pipeline {
	a := opts.Assessor
	if a == nil {
		a = screening.NewAssessor(nil)
	}
	return &Pipeline{
		staging:      opts.Staging,
		registry:     opts.Registry,
		exec:         opts.Executor,
		pool:         opts.Pool,
		catalog:      opts.Catalog,
		assessor:     a,
		history:      opts.History,
		tongueModel:  opts.TongueModel,
		nailModel:    opts.NailModel,
		required:     opts.RequiredModels,
		inferTimeout: opts.InferTimeout,
		log:          opts.Logger,
		onTransition: opts.OnTransition,
		started:      time.Now(),
	}
}

// tracker records the state machine of one request.
type tracker struct {
	p     *Pipeline
	rid   string
	state State
	since time.Time
}

func (p *Pipeline) track(rid string) *tracker {
	return &tracker{p: p, rid: rid, state: StateReceived, since: time.Now()}
}

func (t *tracker) to(next State) {
	now := time.Now()
	stageDuration.WithLabelValues(string(t.state)).Observe(now.Sub(t.since).Seconds())
	if t.p.onTransition != nil {
		t.p.onTransition(t.rid, t.state, next)
	}
	t.p.log.Debug().Str("req_id", t.rid).Str("from", string(t.state)).Str("to", string(next)).Msg("pipeline transition")
	t.state, t.since = next, now
}

func (t *tracker) fail(err error) error {
	t.to(StateFailed)
	outcome := "error"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = "canceled"
	}
	predictionsTotal.WithLabelValues(outcome).Inc()
	return err
}

// Predict runs one prediction. On failure the returned response carries
// status "error" alongside the error, which callers map to a status code.
func (p *Pipeline) Predict(ctx context.Context, req Request) (types.PredictResponse, error) {
	pred, err := p.run(ctx, req)
	if err != nil {
		return ErrorResponse(err), err
	}
	return types.PredictResponse{Status: types.StatusOK, Result: pred}, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (types.Prediction, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	t := p.track(req.RequestID)

	t.to(StateStaging)
	up, err := p.staging.Stage(ctx, req.RequestID, req.FileName, req.Body)
	if err != nil {
		return types.Prediction{}, t.fail(err)
	}
	defer p.release(up)

	t.to(StateResolving)
	h, err := p.registry.Resolve(ctx, req.ModelID)
	if err != nil {
		return types.Prediction{}, t.fail(err)
	}

	t.to(StateInferring)
	pred, err := p.infer(ctx, h, up, req.Params)
	if inference.IsInference(err) {
		// The model rejected the input: an error result, not a failed request.
		t.to(StateResponding)
		p.record(ctx, &types.HistoryEntry{RequestID: req.RequestID, ModelID: req.ModelID, Status: types.StatusError, Error: err.Error()})
		t.to(StateDone)
		predictionsTotal.WithLabelValues("inference_error").Inc()
		return types.Prediction{}, err
	}
	if err != nil {
		return types.Prediction{}, t.fail(err)
	}

	t.to(StateResponding)
	p.record(ctx, &types.HistoryEntry{
		RequestID:  req.RequestID,
		ModelID:    req.ModelID,
		Status:     types.StatusOK,
		Label:      pred.Label,
		Confidence: pred.Confidence,
	})
	t.to(StateDone)
	predictionsTotal.WithLabelValues("ok").Inc()
	return pred, nil
}

func (p *Pipeline) infer(ctx context.Context, h *registry.Handle, up *staging.Upload, params map[string]string) (types.Prediction, error) {
	if p.inferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.inferTimeout)
		defer cancel()
	}
	var pred types.Prediction
	err := p.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		pred, err = p.exec.Run(ctx, h, up, params)
		return err
	})
	if err != nil {
		// pred may still be written by an abandoned job.
		return types.Prediction{}, err
	}
	return pred, nil
}

func (p *Pipeline) release(up *staging.Upload) {
	if err := p.staging.Release(up); err != nil {
		p.log.Error().Err(err).Str("upload", up.ID).Str("path", up.Path).Msg("release staged upload")
	}
}

func (p *Pipeline) record(ctx context.Context, e *types.HistoryEntry) {
	if p.history == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.history.Record(rctx, e); err != nil {
		p.log.Warn().Err(err).Str("req_id", e.RequestID).Msg("history record failed")
	}
}

// Screen predicts the supplied tongue and nail images concurrently and
// combines the detections into a risk assessment.
func (p *Pipeline) Screen(ctx context.Context, req ScreenRequest) (types.PredictResponse, error) {
	if req.Tongue == nil && req.Nail == nil {
		return ErrorResponse(ErrNoImages), ErrNoImages
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	var tongue, nail *types.Detection
	g, gctx := errgroup.WithContext(ctx)
	if req.Tongue != nil {
		img := req.Tongue
		g.Go(func() error {
			pred, err := p.run(gctx, Request{RequestID: req.RequestID, ModelID: p.tongueModel, FileName: img.FileName, Body: img.Body, Params: req.Params})
			if err != nil {
				return err
			}
			tongue = screening.Detection(types.DetectionTongue, pred)
			return nil
		})
	}
	if req.Nail != nil {
		img := req.Nail
		g.Go(func() error {
			pred, err := p.run(gctx, Request{RequestID: req.RequestID, ModelID: p.nailModel, FileName: img.FileName, Body: img.Body, Params: req.Params})
			if err != nil {
				return err
			}
			nail = screening.Detection(types.DetectionNail, pred)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ErrorResponse(err), err
	}
	return types.PredictResponse{Status: types.StatusOK, Result: p.assessor.Assess(tongue, nail)}, nil
}

// ErrorResponse wraps err in the error envelope.
func ErrorResponse(err error) types.PredictResponse {
	return types.PredictResponse{Status: types.StatusError, Error: err.Error()}
}
