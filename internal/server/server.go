// Package server exposes the advisor over HTTP: a paste form for browsers and
// a JSON endpoint for tooling. Each request triggers exactly one analysis;
// the advisor itself is stateless and safe for concurrent use.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pgadvise/pgadvise/internal/advisor"
	"github.com/pgadvise/pgadvise/internal/config"
	"github.com/pgadvise/pgadvise/internal/model"
	"github.com/pgadvise/pgadvise/internal/render/html"
)

// New builds the HTTP handler with routing and middleware applied.
func New(cfg config.ServerConfig) http.Handler {
	mux := chi.NewRouter()

	mux.Use(requestIDMiddleware)
	mux.Use(loggingMiddleware)

	if len(cfg.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/", handleIndex)
	mux.Post("/", handleAnalyzeForm)
	mux.Post("/api/analyze", handleAnalyzeJSON)

	return mux
}

// NewHTTPServer wraps the handler in an http.Server with the configured
// listener settings.
func NewHTTPServer(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      New(cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// GET /
func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = html.Render(w, nil, html.Options{
		Title:         "pgadvise",
		IncludeStyles: true,
		ShowForm:      true,
	})
}

// POST / with form fields query_plan and query.
func handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	planText := r.PostFormValue("query_plan")
	sqlText := r.PostFormValue("query")

	report := advisor.Analyze(planText, sqlText)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = html.Render(w, report, html.Options{
		Title:         "pgadvise",
		IncludeStyles: true,
		ShowForm:      true,
		Analyzed:      true,
		PlanText:      planText,
		SQLText:       sqlText,
	})
}

type analyzeRequest struct {
	PlanText string `json:"plan_text"`
	SQLText  string `json:"sql_text,omitempty"`
}

type analyzeResponse struct {
	Findings  []model.Finding `json:"findings"`
	NodeCount int             `json:"node_count"`
}

// POST /api/analyze
func handleAnalyzeJSON(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	report := advisor.Analyze(req.PlanText, req.SQLText)

	resp := analyzeResponse{
		Findings:  report.Findings,
		NodeCount: report.NodeCount,
	}
	if resp.Findings == nil {
		resp.Findings = []model.Finding{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
