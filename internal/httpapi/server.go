package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"predictd/internal/pipeline"
	"predictd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Predict(ctx context.Context, req pipeline.Request) (types.PredictResponse, error)
	Screen(ctx context.Context, req pipeline.ScreenRequest) (types.PredictResponse, error)
	Models() (types.ModelsResponse, error)
	Status() types.StatusResponse
	History(ctx context.Context, limit int) (types.HistoryResponse, error)
	Ready() bool
}

// Multipart field names.
const (
	fieldFile   = "file"
	fieldImage  = "image"
	fieldModel  = "model"
	fieldTongue = "lidah_image"
	fieldNail   = "kuku_image"
)

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		opts := cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}
		if len(opts.AllowedMethods) == 0 {
			opts.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
		}
		if len(opts.AllowedHeaders) == 0 {
			opts.AllowedHeaders = []string{"*"}
		}
		r.Use(cors.Handler(opts))
	}

	h := &handlers{svc: svc}
	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/models", h.models)
	r.Get("/status", h.status)
	r.Get("/history", h.history)

	r.Post("/predict", h.predictFlexible)
	r.Post("/predict/lidah", h.predictTongue)
	r.Post("/predict/kuku", h.predictNail)
	r.Post("/predict/both", h.predictBoth)
	r.Post("/predict/{model}", h.predictModel)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/openapi.json", openAPI)
	MountSwagger(r)

	return r
}

type handlers struct {
	svc Service
}

// root godoc
// @Summary  Liveness message
// @Tags     health
// @Produce  json
// @Success  200 {object} types.HealthResponse
// @Router   / [get]
func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", Message: "Diabetes Detection API is running"})
}

// health godoc
// @Summary  Readiness of the required models
// @Tags     health
// @Produce  json
// @Success  200 {object} types.HealthResponse
// @Failure  503 {object} types.PredictResponse
// @Router   /health [get]
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		writeJSONError(w, http.StatusServiceUnavailable, "Models not loaded")
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", Message: "All models loaded and ready"})
}

// models godoc
// @Summary  List models on disk and their registry state
// @Tags     models
// @Produce  json
// @Success  200 {object} types.ModelsResponse
// @Router   /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Models()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// status godoc
// @Summary  Registry, staging and worker pool status
// @Tags     models
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// history godoc
// @Summary  Recent predictions
// @Tags     models
// @Produce  json
// @Param    limit query int false "Maximum entries (default 50)"
// @Success  200 {object} types.HistoryResponse
// @Failure  404 {object} types.PredictResponse "History disabled"
// @Router   /history [get]
func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	resp, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// predictModel godoc
// @Summary  Predict with one model
// @Tags     predict
// @Accept   multipart/form-data
// @Produce  json
// @Param    model path string true "Model id"
// @Param    file formData file true "Image (JPEG, PNG, GIF, BMP, WebP or TIFF)"
// @Param    threshold formData number false "Decision threshold override in (0,1)"
// @Success  200 {object} types.PredictResponse{result=types.Prediction}
// @Failure  400 {object} types.PredictResponse
// @Failure  404 {object} types.PredictResponse
// @Failure  413 {object} types.PredictResponse
// @Failure  422 {object} types.PredictResponse
// @Failure  429 {object} types.PredictResponse
// @Router   /predict/{model} [post]
func (h *handlers) predictModel(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	h.predictSingle(w, r, chi.URLParam(r, "model"), f)
}

func (h *handlers) predictSingle(w http.ResponseWriter, r *http.Request, model string, f *form) {
	up := f.fileOrFirst(fieldFile, fieldImage)
	if up == nil {
		writeJSONError(w, http.StatusBadRequest, "an image file is required in field \"file\"")
		return
	}
	params := make(map[string]string, len(f.values))
	for k, v := range f.values {
		if k != fieldModel {
			params[k] = v
		}
	}
	h.serve(w, r, model, func(ctx context.Context) (types.PredictResponse, error) {
		return h.svc.Predict(ctx, pipeline.Request{
			RequestID: middleware.GetReqID(r.Context()),
			ModelID:   model,
			FileName:  up.name,
			Body:      bytes.NewReader(up.data),
			Params:    params,
		})
	})
}

// predictFlexible godoc
// @Summary  Predict with a named model, or screen tongue and/or nail images
// @Description With a "model" field the request is a single prediction on "file".
// @Description Otherwise "lidah_image" and/or "kuku_image" are screened; at least one is required.
// @Tags     predict
// @Accept   multipart/form-data
// @Produce  json
// @Param    model formData string false "Model id for a single prediction"
// @Param    file formData file false "Image for a single prediction"
// @Param    lidah_image formData file false "Tongue image"
// @Param    kuku_image formData file false "Nail image"
// @Success  200 {object} types.PredictResponse{result=types.Analysis}
// @Failure  400 {object} types.PredictResponse
// @Router   /predict [post]
func (h *handlers) predictFlexible(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	if model := f.values[fieldModel]; model != "" {
		h.predictSingle(w, r, model, f)
		return
	}
	h.screen(w, r, f, f.file(fieldTongue), f.file(fieldNail))
}

// predictTongue godoc
// @Summary  Screen a tongue image
// @Tags     predict
// @Accept   multipart/form-data
// @Produce  json
// @Param    lidah_image formData file true "Tongue image"
// @Success  200 {object} types.PredictResponse{result=types.Analysis}
// @Router   /predict/lidah [post]
func (h *handlers) predictTongue(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	up := f.fileOrFirst(fieldTongue, fieldFile, fieldImage)
	if up == nil {
		writeJSONError(w, http.StatusBadRequest, "field \"lidah_image\" is required")
		return
	}
	h.screen(w, r, f, up, nil)
}

// predictNail godoc
// @Summary  Screen a nail image
// @Tags     predict
// @Accept   multipart/form-data
// @Produce  json
// @Param    kuku_image formData file true "Nail image"
// @Success  200 {object} types.PredictResponse{result=types.Analysis}
// @Router   /predict/kuku [post]
func (h *handlers) predictNail(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	up := f.fileOrFirst(fieldNail, fieldFile, fieldImage)
	if up == nil {
		writeJSONError(w, http.StatusBadRequest, "field \"kuku_image\" is required")
		return
	}
	h.screen(w, r, f, nil, up)
}

// predictBoth godoc
// @Summary  Screen a tongue and a nail image together
// @Tags     predict
// @Accept   multipart/form-data
// @Produce  json
// @Param    lidah_image formData file true "Tongue image"
// @Param    kuku_image formData file true "Nail image"
// @Success  200 {object} types.PredictResponse{result=types.Analysis}
// @Router   /predict/both [post]
func (h *handlers) predictBoth(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	tongue, nail := f.file(fieldTongue), f.file(fieldNail)
	if tongue == nil || nail == nil {
		writeJSONError(w, http.StatusBadRequest, "fields \"lidah_image\" and \"kuku_image\" are required")
		return
	}
	h.screen(w, r, f, tongue, nail)
}

func (h *handlers) screen(w http.ResponseWriter, r *http.Request, f *form, tongue, nail *upload) {
	req := pipeline.ScreenRequest{
		RequestID: middleware.GetReqID(r.Context()),
		Params:    f.values,
	}
	if tongue != nil {
		req.Tongue = &pipeline.Image{FileName: tongue.name, Body: bytes.NewReader(tongue.data)}
	}
	if nail != nil {
		req.Nail = &pipeline.Image{FileName: nail.name, Body: bytes.NewReader(nail.data)}
	}
	h.serve(w, r, "", func(ctx context.Context) (types.PredictResponse, error) {
		return h.svc.Screen(ctx, req)
	})
}

// serve runs a prediction under the joined request context and writes the
// envelope with the status mapped from the error.
func (h *handlers) serve(w http.ResponseWriter, r *http.Request, model string, run func(context.Context) (types.PredictResponse, error)) {
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, model)

	ctx, cancel := requestContext(r)
	defer cancel()
	resp, err := run(ctx)
	if err != nil {
		// Client went away or the server is shutting down: nobody to answer.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			logEnd(r, lvl, 499, start, err)
			return
		}
		code := statusFor(err)
		if code == http.StatusTooManyRequests {
			IncrementBackpressure("queue_full")
		}
		if resp.Status == "" {
			resp = types.PredictResponse{Status: types.StatusError, Error: err.Error()}
		}
		writeJSON(w, code, resp)
		logEnd(r, lvl, code, start, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	logEnd(r, lvl, http.StatusOK, start, nil)
}
