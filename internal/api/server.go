package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/metrics"
	"github.com/JakeFAU/booking-crawler/internal/orchestrator"
)

// Runner executes crawl runs and reports their progress.
type Runner interface {
	Run(ctx context.Context) (crawler.RunSummary, error)
	Snapshot() orchestrator.Status
}

// Config tunes the server.
type Config struct {
	// APIKey protects every route except the health checks when set.
	APIKey         string
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the orchestrator.
type Server struct {
	router  chi.Router
	runner  Runner
	logger  *zap.Logger
	baseCtx context.Context

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer constructs a Server with middleware and routes. Background runs
// inherit baseCtx, so canceling it stops them.
func NewServer(
	baseCtx context.Context,
	runner Runner,
	recorder *metrics.Recorder,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		runner:  runner,
		logger:  logger.Named("api"),
		baseCtx: baseCtx,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(recorder.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Group(func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Use(timeoutMiddleware(cfg.RequestTimeout))
		r.Handle("/metrics", recorder.Handler())
		r.Route("/v1", func(r chi.Router) {
			r.Get("/status", s.status)
			r.Post("/runs", s.startRun)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until background runs started through the API finish.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Snapshot())
}

func (s *Server) startRun(w http.ResponseWriter, _ *http.Request) {
	if err := s.StartRun(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// StartRun launches a crawl in the background. It returns
// orchestrator.ErrRunInProgress while another run is active, whether or not
// that run was started through the Server.
func (s *Server) StartRun() error {
	if !s.running.CompareAndSwap(false, true) {
		return orchestrator.ErrRunInProgress
	}
	if s.runner.Snapshot().Running {
		s.running.Store(false)
		return orchestrator.ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		summary, err := s.runner.Run(s.baseCtx)
		switch {
		case errors.Is(err, orchestrator.ErrRunInProgress):
			s.logger.Warn("run rejected", zap.Error(err))
		case errors.Is(err, context.Canceled):
			s.logger.Info("run canceled", zap.String("run_id", summary.RunID), zap.Int("rows", summary.Rows))
		case err != nil:
			s.logger.Error("run failed", zap.String("run_id", summary.RunID), zap.Error(err))
		default:
			s.logger.Info("run completed", zap.String("run_id", summary.RunID), zap.Int("rows", summary.Rows))
		}
	}()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
