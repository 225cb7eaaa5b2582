// Package api serves the tracking dashboard over HTTP. Every request is one
// load, transform, render cycle against the tracker.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visa-tracker/internal/common/config"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/documents"
	"visa-tracker/internal/models"
	"visa-tracker/internal/notify"
	"visa-tracker/internal/query"
	"visa-tracker/internal/rules"
	"visa-tracker/internal/store"
)

// Service is what the handlers need from the tracker.
type Service interface {
	Ready(ctx context.Context) error
	Tables() []string
	List(ctx context.Context, f query.Filter) ([]models.Applicant, error)
	Get(ctx context.Context, name string) (models.Applicant, error)
	Add(ctx context.Context, table, first, last, school string) (store.AppendResult, error)
	Update(ctx context.Context, table, name string, rec models.Applicant) (models.Applicant, error)
	ReplaceTable(ctx context.Context, table string, recs []models.Applicant) error
	FilterOptions(ctx context.Context) (query.FilterOptions, error)
	Alerts(ctx context.Context) (rules.Report, error)
	Alert(ctx context.Context, ruleID string) (rules.Result, error)
	AgentSuggestions(ctx context.Context) ([]query.Suggestion, error)
	Documents(ctx context.Context, name string) (documents.Checklist, error)
	SendDigest(ctx context.Context) (*notify.Result, error)
	Now() time.Time
}

type Server struct {
	svc      Service
	validate *validator.Validate
	logger   logger.Logger
	router   chi.Router
}

func NewServer(cfg config.HTTPConfig, svc Service, log logger.Logger) *Server {
	s := &Server{
		svc:      svc,
		validate: validator.New(),
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/applicants", s.handleListApplicants)
		r.Post("/applicants", s.handleAddApplicant)
		r.Get("/applicants/{name}", s.handleGetApplicant)
		r.Put("/applicants/{name}", s.handleUpdateApplicant)
		r.Get("/applicants/{name}/documents", s.handleDocuments)
		r.Put("/tables/{table}", s.handleReplaceTable)
		r.Get("/filters", s.handleFilters)
		r.Get("/alerts", s.handleAlerts)
		r.Post("/alerts/digest", s.handleSendDigest)
		r.Get("/alerts/{rule}", s.handleAlert)
		r.Get("/agents/suggestions", s.handleAgentSuggestions)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"address": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", map[string]interface{}{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"bytes":     ww.BytesWritten(),
			"duration":  time.Since(start).String(),
			"requestId": middleware.GetReqID(r.Context()),
		})
	})
}
