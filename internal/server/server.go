// Package server provides a local preview of a rendered study report. It
// serves a single already-computed study; it is not a service layer.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shahhaard47/latenteq/domain/study"
	"github.com/shahhaard47/latenteq/internal/report"
)

// Server serves the HTML and JSON renderings of one study result.
type Server struct {
	router *chi.Mux
	result *study.Result
	logger *slog.Logger
	addr   string
}

// New creates a preview server for the given result.
func New(addr string, result *study.Result, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		result: result,
		logger: logger,
		addr:   addr,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleReport)
	s.router.Get("/report.json", s.handleReportJSON)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails or the process exits.
func (s *Server) Start() error {
	s.logger.Info("serving study report",
		"addr", s.addr,
		"study", s.result.Manifest.StudyID.String())
	return http.ListenAndServe(s.addr, s.router)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := report.NewHTMLWriter(w).Write(s.result); err != nil {
		s.logger.Error("failed to render report", "error", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
	}
}

func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := report.NewJSONWriter(w, report.WithPrettyPrint()).Write(s.result); err != nil {
		s.logger.Error("failed to render report", "error", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
	}
}
