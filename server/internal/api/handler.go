package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/engagestory/engagestory/pkg/types"
	"github.com/engagestory/engagestory/server/internal/auth"
	"github.com/engagestory/engagestory/server/internal/compute"
	"github.com/engagestory/engagestory/server/internal/config"
	"github.com/engagestory/engagestory/server/internal/content"
	"github.com/engagestory/engagestory/server/internal/metrics"
	"github.com/engagestory/engagestory/server/internal/orchestrator"
)

// maxBodyBytes caps a predict request body.
const maxBodyBytes = 4 << 10

// Predictor runs submissions. *orchestrator.Orchestrator implements it.
type Predictor interface {
	Orchestrate(ctx context.Context, in types.PredictionInput) (types.PredictionResult, error)
	Current() orchestrator.Lifecycle
	Availability() float64
}

// Content serves presentation artifacts. *content.Provider implements it.
type Content interface {
	Insights(ctx context.Context) (json.RawMessage, error)
	Chart(name string) (content.Chart, error)
}

// Stats reports prediction totals. *metrics.Recorder implements it.
type Stats interface {
	Summary() (metrics.Summary, error)
}

// Deps are the collaborators the API serves from.
type Deps struct {
	Predictor Predictor
	Content   Content
	Stats     Stats
	Server    config.ServerConfig
}

// Handler is the HTTP handler for the API routes.
type Handler struct {
	predictor Predictor
	content   Content
	stats     Stats
	router    chi.Router
}

// New creates a Handler wired to deps and registers all routes.
func New(deps Deps) http.Handler {
	h := &Handler{
		predictor: deps.Predictor,
		content:   deps.Content,
		stats:     deps.Stats,
	}

	limit := rateLimit(deps.Server.RateLimit)
	apiKey := auth.APIKey(
		deps.Server.Auth.Mode,
		deps.Server.Auth.EffectiveHeader(),
		deps.Server.Auth.Key(),
	)

	r := chi.NewRouter()
	r.Use(requestID, middleware.Recoverer, cors)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", h.root)
	r.Get("/api/insights", h.insights)
	r.Get("/api/assets/*", h.asset)
	r.With(apiKey, limit).Post("/api/predict", h.predict)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKey)
		r.Get("/health", h.health)
		r.With(limit).Post("/predict", h.predict)
		r.Get("/lifecycle", h.lifecycle)
		r.Get("/stats", h.statsSummary)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, RootResponse{Message: "Data Story API is running."})
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	lc := h.predictor.Current()
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:                "ok",
		State:                 lc.State,
		Generation:            lc.Generation,
		RemoteAvailabilityPct: h.predictor.Availability(),
	})
}

// predict handles POST /api/v1/predict. The body is clamped, not rejected,
// when values fall outside the input ranges.
func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	var in types.PredictionInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		jsonErr(w, http.StatusBadRequest, "malformed prediction input: "+err.Error())
		return
	}

	res, err := h.predictor.Orchestrate(r.Context(), in)
	switch {
	case err == nil:
		jsonResp(w, http.StatusOK, compute.Present(res))
	case errors.Is(err, orchestrator.ErrSuperseded):
		jsonErr(w, http.StatusConflict, "superseded by a newer submission")
	default:
		slog.Error("api: predict failed", "err", err,
			"request_id", middleware.GetReqID(r.Context()))
		jsonErr(w, http.StatusInternalServerError, "prediction failed")
	}
}

// lifecycle returns GET /api/v1/lifecycle.
func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.predictor.Current())
}

// statsSummary returns GET /api/v1/stats.
func (h *Handler) statsSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Summary()
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, s)
}

// insights returns GET /api/insights.
func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	doc, err := h.content.Insights(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, content.ErrNotFound) {
			code = http.StatusNotFound
		}
		jsonErr(w, code, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// asset returns GET /api/assets/{name}.
func (h *Handler) asset(w http.ResponseWriter, r *http.Request) {
	ch, err := h.content.Chart(chi.URLParam(r, "*"))
	switch {
	case errors.Is(err, content.ErrInvalidName):
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, content.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "asset not found")
		return
	case err != nil:
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", ch.ContentType)
	http.ServeContent(w, r, ch.Name, ch.ModTime, bytes.NewReader(ch.Data))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// drain discards what is left of a request body so the connection can be
// reused.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxBodyBytes))
}
