// Package server exposes the aggregation core over HTTP: one combined ranked
// list plus a per-source endpoint for each configured backend.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"headsup/internal/aggregate"
	"headsup/internal/logger"
	"headsup/internal/model"
)

// Server wires the engine and its pipelines into HTTP handlers.
type Server struct {
	engine        *aggregate.Engine
	pipelines     map[model.Source]aggregate.Pipeline
	sourceTimeout time.Duration
	log           *zap.Logger
}

func New(engine *aggregate.Engine, pipelines []aggregate.Pipeline, sourceTimeout time.Duration, log *zap.Logger) *Server {
	bySource := make(map[model.Source]aggregate.Pipeline, len(pipelines))
	for _, p := range pipelines {
		bySource[p.Source()] = p
	}
	return &Server{
		engine:        engine,
		pipelines:     bySource,
		sourceTimeout: sourceTimeout,
		log:           log,
	}
}

// Router builds the chi mux with the standard middleware chain.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/combined/analyzed-items", s.handleCombined)
	r.Get("/github/prs", s.handleSource(model.SourceCodeReview))
	r.Get("/jira/issues", s.handleSource(model.SourceIssueTracker))
	r.Get("/slack/analyzed-messages", s.handleSource(model.SourceChat))

	return r
}

// sourceResponse wraps one source's items with per-request accounting.
type sourceResponse struct {
	Source                model.Source         `json:"source"`
	UserIdentifier        string               `json:"user_identifier"`
	TotalItemsFound       int                  `json:"total_items_found"`
	ItemsNeedingAttention int                  `json:"items_needing_attention"`
	AnalyzedItems         []model.ActivityItem `json:"analyzed_items"`
	AnalysisTimestamp     string               `json:"analysis_timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.log, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleCombined runs the full aggregation and returns the ranked list. The
// engine isolates source failures, so this handler only fails on a missing
// user parameter.
func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeJSON(w, s.log, http.StatusBadRequest, errorResponse{Error: "user query parameter is required"})
		return
	}

	result := s.engine.Aggregate(r.Context(), user)
	writeJSON(w, s.log, http.StatusOK, result.Items)
}

// handleSource runs a single pipeline outside the engine, with the same
// per-source timeout.
func (s *Server) handleSource(src model.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			writeJSON(w, s.log, http.StatusBadRequest, errorResponse{Error: "user query parameter is required"})
			return
		}

		p, ok := s.pipelines[src]
		if !ok {
			writeJSON(w, s.log, http.StatusNotFound, errorResponse{Error: "source not configured: " + string(src)})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.sourceTimeout)
		defer cancel()

		items, err := p.Run(ctx, user, func(aggregate.State) {})
		if err != nil {
			s.log.Error("source pipeline failed",
				zap.String("source", string(src)), zap.Error(err))
			writeJSON(w, s.log, http.StatusBadGateway, errorResponse{Error: "source unavailable: " + string(src)})
			return
		}
		if items == nil {
			items = []model.ActivityItem{}
		}

		writeJSON(w, s.log, http.StatusOK, sourceResponse{
			Source:                src,
			UserIdentifier:        user,
			TotalItemsFound:       len(items),
			ItemsNeedingAttention: len(items),
			AnalyzedItems:         items,
			AnalysisTimestamp:     model.FormatTimestamp(time.Now()),
		})
	}
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("failed to encode response", zap.Error(err))
	}
}
