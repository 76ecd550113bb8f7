// Package registry resolves model identifiers to loaded models. Each id is
// loaded lazily on first use, at most once; results, including failures,
// stay cached for the life of the process.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/events"
	"predictd/internal/model"
	"predictd/pkg/types"
)

// State is the lifecycle state of a cached entry.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Handle is a ready model. Model is read-only and safe for concurrent use.
type Handle struct {
	ID       string
	Model    *model.Model
	LoadedAt time.Time
}

type entry struct {
	state    State
	handle   *Handle
	err      error
	done     chan struct{}
	lastUsed time.Time
	started  time.Time
}

// Options configures a Registry.
type Options struct {
	// BaseContext parents every load. Loads are detached from the context of
	// the caller that triggered them.
	BaseContext context.Context
	// LoadTimeout bounds a single load; zero means no limit.
	LoadTimeout time.Duration
	Publisher   events.Publisher
	Logger      zerolog.Logger
}

// Registry caches model handles by identifier.
type Registry struct {
	loader  Loader
	base    context.Context
	timeout time.Duration
	pub     events.Publisher
	log     zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	loads    atomic.Int64
	failures atomic.Int64
}

// New returns a Registry backed by loader.
func New(loader Loader, opts Options) *Registry {
	base := opts.BaseContext
	if base == nil {
		base = context.Background()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = events.Noop{}
	}
	return &Registry{
		loader:  loader,
		base:    base,
		timeout: opts.LoadTimeout,
		pub:     pub,
		log:     opts.Logger,
		entries: make(map[string]*entry),
	}
}

// Resolve returns the handle for id, loading it if this is the first
// request for it. Concurrent callers share one load. A failed load is
// cached and returned to every later caller without retrying. Cancelling
// ctx abandons the wait but not the load.
func (r *Registry) Resolve(ctx context.Context, id string) (*Handle, error) {
	if !ValidID(id) {
		// Not cached: arbitrary client input must not grow the map.
		return nil, &ModelNotFoundError{ID: id}
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if ok && e.state == StateReady {
		e.lastUsed = time.Now()
		h := e.handle
		r.mu.Unlock()
		return h, nil
	}
	if !ok {
		e = &entry{state: StateLoading, done: make(chan struct{}), started: time.Now()}
		r.entries[id] = e
		go r.load(id, e)
	}
	r.mu.Unlock()

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.state == StateFailed {
		return nil, e.err
	}
	e.lastUsed = time.Now()
	return e.handle, nil
}

func (r *Registry) load(id string, e *entry) {
	ctx := r.base
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.loads.Add(1)
	r.log.Info().Str("model", id).Msg("model load start")
	r.pub.Publish(events.Event{Name: "load_start", ModelID: id, Timestamp: time.Now()})

	m, err := r.safeLoad(ctx, id)
	dur := time.Since(e.started)
	loadDuration.Observe(dur.Seconds())

	r.mu.Lock()
	if err != nil {
		e.state = StateFailed
		e.err = err
	} else {
		e.state = StateReady
		e.handle = &Handle{ID: id, Model: m, LoadedAt: time.Now()}
	}
	close(e.done)
	r.mu.Unlock()

	if err != nil {
		r.failures.Add(1)
		loadsTotal.WithLabelValues("failed").Inc()
		r.log.Warn().Str("model", id).Err(err).Dur("dur", dur).Msg("model load failed")
		r.pub.Publish(events.Event{Name: "load_failed", ModelID: id, Timestamp: time.Now(),
			Fields: map[string]any{"error": err.Error()}})
		return
	}
	loadsTotal.WithLabelValues("ready").Inc()
	r.log.Info().Str("model", id).Dur("dur", dur).Msg("model ready")
	r.pub.Publish(events.Event{Name: "load_ready", ModelID: id, Timestamp: time.Now(),
		Fields: map[string]any{"dur_ms": dur.Milliseconds()}})
}

// safeLoad converts a loader panic into a load error.
func (r *Registry) safeLoad(ctx context.Context, id string) (m *model.Model, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ModelLoadError{ID: id, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	m, err = r.loader.Load(ctx, id)
	if err == nil && m == nil {
		err = &ModelLoadError{ID: id, Err: fmt.Errorf("loader returned no model")}
	}
	if err != nil && !IsModelNotFound(err) && !IsModelLoad(err) {
		err = &ModelLoadError{ID: id, Err: err}
	}
	return m, err
}

// Preload resolves each id and returns the first error. Every id is
// attempted.
func (r *Registry) Preload(ctx context.Context, ids ...string) error {
	var first error
	for _, id := range ids {
		if _, err := r.Resolve(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Snapshot lists cached entries sorted by id.
func (r *Registry) Snapshot() []types.ModelStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ModelStatus, 0, len(r.entries))
	for id, e := range r.entries {
		st := types.ModelStatus{ID: id, State: string(e.state)}
		if !e.lastUsed.IsZero() {
			st.LastUsed = e.lastUsed.Unix()
		}
		switch e.state {
		case StateReady:
			st.Kind = e.handle.Model.Kind
			st.InputWidth = e.handle.Model.Input.Width
			st.InputHeight = e.handle.Model.Input.Height
			st.LoadedAt = e.handle.LoadedAt.Unix()
		case StateFailed:
			st.Error = e.err.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// State reports the cache state of id.
func (r *Registry) State(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.state
	}
	return StateUnloaded
}

// Ready reports whether every listed id is loaded. With no ids it reports
// whether at least one model is ready.
func (r *Registry) Ready(ids ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ids) == 0 {
		for _, e := range r.entries {
			if e.state == StateReady {
				return true
			}
		}
		return false
	}
	for _, id := range ids {
		if e, ok := r.entries[id]; !ok || e.state != StateReady {
			return false
		}
	}
	return true
}

// Counters returns the number of loads started and failed.
func (r *Registry) Counters() (loads, failures int64) {
	return r.loads.Load(), r.failures.Load()
}
