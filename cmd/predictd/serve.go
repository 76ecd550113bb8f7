package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/config"
	"predictd/internal/events"
	"predictd/internal/history"
	"predictd/internal/httpapi"
	"predictd/internal/inference"
	"predictd/internal/pipeline"
	"predictd/internal/registry"
	"predictd/internal/staging"
)

const shutdownGrace = 15 * time.Second

// app owns the long-lived components behind the HTTP handler.
type app struct {
	handler  http.Handler
	pipeline *pipeline.Pipeline
	registry *registry.Registry
	staging  *staging.Manager
	pool     *inference.Pool
	closers  []func() error
	log      zerolog.Logger
}

// newApp wires staging, the registry, the worker pool and the optional
// history store and event sink. base parents model loads and request
// contexts; cancelling it aborts in-flight work.
func newApp(base context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	a := &app{log: log}

	st, err := staging.New(cfg.TempDir, staging.Options{
		MaxBytes: cfg.MaxUploadBytes(),
		Logger:   log.With().Str("component", "staging").Logger(),
	})
	if err != nil {
		return nil, err
	}
	// Nothing is tracked yet, so everything in the root is a leftover.
	if _, err := st.Sweep(0); err != nil {
		log.Warn().Err(err).Msg("sweep temp dir")
	}
	a.staging = st

	loader, err := registry.NewFileLoader(cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("models dir: %w", err)
	}

	var pub events.Publisher = events.Noop{}
	if cfg.RedisAddr != "" {
		client, err := events.NewRedisClient(base, events.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, registry events disabled")
		} else {
			rp := events.NewRedis(client, cfg.RedisChannel, log.With().Str("component", "events").Logger())
			pub = rp
			a.closers = append(a.closers, client.Close, rp.Close)
		}
	}

	a.registry = registry.New(loader, registry.Options{
		BaseContext: base,
		LoadTimeout: cfg.LoadTimeout(),
		Publisher:   pub,
		Logger:      log.With().Str("component", "registry").Logger(),
	})
	a.pool = inference.NewPool(inference.PoolOptions{
		Workers:    cfg.Workers,
		QueueDepth: cfg.QueueDepth,
		MaxWait:    cfg.MaxWait(),
	})
	a.closers = append(a.closers, func() error { a.pool.Close(); return nil })

	var hist *history.Store
	if cfg.HistoryDSN != "" {
		hist, err = history.Open(cfg.HistoryDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, hist.Close)
	}

	a.pipeline = pipeline.New(pipeline.Options{
		Staging:        st,
		Registry:       a.registry,
		Executor:       inference.NewExecutor(inference.Options{Logger: log.With().Str("component", "inference").Logger()}),
		Pool:           a.pool,
		Catalog:        loader,
		History:        hist,
		TongueModel:    cfg.TongueModel,
		NailModel:      cfg.NailModel,
		RequiredModels: []string{cfg.TongueModel, cfg.NailModel},
		InferTimeout:   cfg.InferTimeout(),
		Logger:         log.With().Str("component", "pipeline").Logger(),
	})

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(base)
	// Two images plus form overhead.
	httpapi.SetMaxBodyBytes(2*cfg.MaxUploadBytes() + 1<<20)
	httpapi.SetInferTimeoutSeconds(int64(cfg.InferTimeoutSeconds))
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
	a.handler = httpapi.NewMux(a.pipeline)
	return a, nil
}

// preload loads ids in the background so startup does not block on them.
func (a *app) preload(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	go func() {
		if err := a.registry.Preload(ctx, ids...); err != nil {
			a.log.Warn().Err(err).Strs("models", ids).Msg("preload incomplete")
			return
		}
		a.log.Info().Strs("models", ids).Msg("models preloaded")
	}()
}

// sweepLoop periodically removes staged files nothing tracks any more.
func (a *app) sweepLoop(ctx context.Context, age time.Duration) {
	if age <= 0 {
		return
	}
	t := time.NewTicker(age / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := a.staging.Sweep(age); err != nil {
				a.log.Warn().Err(err).Msg("sweep temp dir")
			}
		}
	}
}

// Close releases every component in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// runServe serves until ctx is cancelled, then drains in-flight requests.
func runServe(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	a, err := newApp(base, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	preload := cfg.Preload
	if len(preload) == 0 {
		preload = []string{cfg.TongueModel, cfg.NailModel}
	}
	a.preload(base, preload)
	go a.sweepLoop(base, cfg.StaleUploadAge())

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", ln.Addr().String()).
			Str("models_dir", cfg.ModelsDir).
			Str("temp_dir", a.staging.Root()).
			Int("workers", cfg.Workers).
			Msg("predictd listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		// Grace period over: abort what is still running.
		cancelBase()
		log.Warn().Err(err).Msg("graceful shutdown error")
		return srv.Close()
	}
	return nil
}
