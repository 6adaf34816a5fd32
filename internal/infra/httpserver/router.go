// Package httpserver exposes the read-only query surface plus the AI
// triage endpoint over chi.
package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"

	appai "github.com/bryanwahyu/codeaudit/internal/application/ai"
	appexport "github.com/bryanwahyu/codeaudit/internal/application/export"
	domai "github.com/bryanwahyu/codeaudit/internal/domain/ai"
	errdomain "github.com/bryanwahyu/codeaudit/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
	"github.com/bryanwahyu/codeaudit/internal/middleware"
)

type Router struct {
	repo    domain.Repository
	errs    errdomain.Repository
	exports *appexport.Service
	aiSvc   *appai.Service
}

// NewRouter builds the HTTP handler. aiSvc may be nil when no API key is
// configured; the endpoint then answers 503.
func NewRouter(repo domain.Repository, errs errdomain.Repository, exports *appexport.Service, aiSvc *appai.Service, health http.HandlerFunc, log hclog.Logger) http.Handler {
	r := &Router{repo: repo, errs: errs, exports: exports, aiSvc: aiSvc}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(log))
	mux.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	mux.Get("/health", health)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/scans/latest", r.wrap(r.handleLatest))
		rt.Get("/scans/{id}", r.wrap(r.handleGet))
		rt.Get("/scans/{id}/errors", r.wrap(r.handleScanErrors))
		rt.Get("/roots", r.wrap(r.handleRoots))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Post("/ai/analyze", r.wrap(r.handleAIAnalyze))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domai.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			case errors.Is(err, domai.ErrNotConfigured):
				http.Error(w, "ai analyst not configured", http.StatusServiceUnavailable)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /v1/scans/latest?limit=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	scans, err := r.repo.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, scans)
}

// GET /v1/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	scan, err := r.repo.Get(req.Context(), domain.ScanID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, scan)
}

// GET /v1/scans/{id}/errors?limit=
func (r *Router) handleScanErrors(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.errs.ListByScan(req.Context(), chi.URLParam(req, "id"), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*errdomain.ScanError{}
	}
	return writeJSON(w, list)
}

// GET /v1/roots
func (r *Router) handleRoots(w http.ResponseWriter, req *http.Request) error {
	roots, err := r.repo.Roots(req.Context())
	if err != nil {
		return err
	}
	if roots == nil {
		roots = []string{}
	}
	return writeJSON(w, roots)
}

// GET /v1/summary?root=
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	rep, err := r.exports.Build(req.Context(), req.URL.Query().Get("root"))
	if err != nil {
		return err
	}
	return writeJSON(w, rep)
}

// POST /v1/ai/analyze
// Body: {"root": "<root label>"}; empty root analyzes everything.
func (r *Router) handleAIAnalyze(w http.ResponseWriter, req *http.Request) error {
	if r.aiSvc == nil {
		return domai.ErrNotConfigured
	}
	var body struct {
		Root string `json:"root"`
	}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}
	report, err := r.aiSvc.AnalyzeRoot(req.Context(), body.Root)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write([]byte(report))
	return err
}
