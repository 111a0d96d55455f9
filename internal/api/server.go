// Package api serves check results and kit usage over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"conprog/internal/checks"
	"conprog/internal/model"
)

// Checker runs checks on demand and remembers the latest run.
type Checker interface {
	RunNow(ctx context.Context) (*checks.Run, error)
	RunCheck(ctx context.Context, name string) (checks.Output, error)
	Last() *checks.Run
}

// RunStore reads runs published by other processes.
type RunStore interface {
	Latest(ctx context.Context) (*checks.Run, error)
	Get(ctx context.Context, runID string) (*checks.Run, error)
}

// ReadyFunc reports whether a dependency is usable.
type ReadyFunc func(ctx context.Context) error

// HTTPServer exposes the check engine.
type HTTPServer struct {
	server   *http.Server
	checker  Checker
	registry *checks.Registry
	repo     model.Repository
	store    RunStore
	limiter  *rate.Limiter
	logger   *zerolog.Logger

	mu    sync.RWMutex
	ready map[string]ReadyFunc
}

// NewHTTPServer builds a server on port. store may be nil when no cache is
// configured; runsPerMinute limits manual runs.
func NewHTTPServer(port int, checker Checker, registry *checks.Registry, repo model.Repository, store RunStore, runsPerMinute int, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if runsPerMinute <= 0 {
		runsPerMinute = 1
	}
	s := &HTTPServer{
		checker:  checker,
		registry: registry,
		repo:     repo,
		store:    store,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(runsPerMinute)), runsPerMinute),
		ready:    make(map[string]ReadyFunc),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/checks", s.handleChecks)
	mux.HandleFunc("/api/checks/", s.handleCheck)
	mux.HandleFunc("/api/runs/", s.handleRun)
	mux.HandleFunc("/api/kit/usage", s.handleKitUsage)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// AddReadyCheck registers a dependency probed by /readyz.
func (s *HTTPServer) AddReadyCheck(name string, fn ReadyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[name] = fn
}

// Handler returns the request router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, fn := range s.ready {
		if err := fn(ctx); err != nil {
			http.Error(w, name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
