package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/stopmotion-pipeline/internal/encoder"
	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/internal/session"
	"github.com/tendant/stopmotion-pipeline/internal/steps"
	"github.com/tendant/stopmotion-pipeline/internal/workflows"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
	"github.com/tendant/stopmotion-pipeline/pkg/runner"
)

// maxUploadBytes caps one multipart upload request
const maxUploadBytes = 256 << 20

// APIHandler serves the session over HTTP
type APIHandler struct {
	runner   *runner.Runner
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// NewAPIHandler creates a new API handler. A nil gatherer disables /metrics.
func NewAPIHandler(r *runner.Runner, logger *slog.Logger, gatherer prometheus.Gatherer) *APIHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &APIHandler{
		runner:   r,
		logger:   logging.NewComponentLogger(logger, "http"),
		gatherer: gatherer,
	}
}

// Routes returns the router for every endpoint
func (h *APIHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", h.HandleHealth)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", h.HandleSession)
		r.Post("/images", h.HandleUpload)
		r.Delete("/images/{id}", h.HandleRemove)
		r.Put("/order", h.HandleReorder)
		r.Post("/steps/next", h.HandleNext)
		r.Post("/steps/back", h.HandleBack)
		r.Put("/frame-rate", h.HandleFrameRate)
		r.Post("/preview/toggle", h.HandlePreviewToggle)
		r.Post("/encoder/load", h.HandleLoadEncoder)
		r.Post("/process", h.HandleProcessAsync)
		r.Get("/runs/{runID}", h.HandleStatus)
		r.Get("/artifact", h.HandleArtifact)
		r.Get("/blobs/{handle}", h.HandleBlob)
	})
	return r
}

func (h *APIHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(start)),
			logging.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, pipeline.ErrorResponse{Error: message})
}

// writeFailure maps domain errors onto HTTP status codes
func (h *APIHandler) writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, session.ErrInvalidPermutation):
		status = http.StatusBadRequest
	case errors.Is(err, runner.ErrStepGated),
		errors.Is(err, steps.ErrTransition),
		errors.Is(err, workflows.ErrNotReady),
		errors.Is(err, workflows.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, workflows.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, encoder.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", logging.Error(err))
	}
	h.writeError(w, status, err.Error())
}

// HandleHealth handles GET /health
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"encoder_ready": h.runner.EncoderReady(),
	})
}

// HandleSession handles GET /v1/session
func (h *APIHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.runner.Snapshot())
}
