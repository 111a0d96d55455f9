package api

import (
	"errors"
	"net/http"
	"strings"

	"conprog/internal/cache"
	"conprog/internal/checks"
	"conprog/internal/kit"
	"conprog/internal/metrics"
)

// handleChecks lists registered checks.
// GET /api/checks
func (s *HTTPServer) handleChecks(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checks")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.List())
}

// handleCheck serves the latest run, triggers a manual run or runs one
// check by name.
// GET  /api/checks/latest
// POST /api/checks/run
// GET  /api/checks/{name}
func (s *HTTPServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/checks/")
	switch name {
	case "":
		s.handleChecks(w, r)
	case "latest":
		s.handleLatest(w, r)
	case "run":
		s.handleRunNow(w, r)
	default:
		s.handleSingleCheck(w, r, name)
	}
}

func (s *HTTPServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checks_latest")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if run := s.checker.Last(); run != nil {
		writeJSON(w, http.StatusOK, run)
		return
	}
	if s.store != nil {
		run, err := s.store.Latest(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, run)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Error().Err(err).Msg("read latest run from cache")
		}
	}
	writeError(w, http.StatusNotFound, "no check run yet")
}

func (s *HTTPServer) handleRunNow(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("checks_run")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many manual runs; try again later")
		return
	}

	run, err := s.checker.RunNow(r.Context())
	if run == nil {
		s.logger.Error().Err(err).Msg("manual check run failed")
		writeError(w, http.StatusInternalServerError, "check run failed")
		return
	}
	// Individual check failures are listed in the run itself.
	writeJSON(w, http.StatusOK, run)
}

func (s *HTTPServer) handleSingleCheck(w http.ResponseWriter, r *http.Request, name string) {
	metrics.IncHTTP("check")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	out, err := s.checker.RunCheck(r.Context(), name)
	switch {
	case errors.Is(err, checks.ErrUnknownCheck):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error().Err(err).Str("check", name).Msg("check failed")
		writeError(w, http.StatusInternalServerError, "check failed")
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

// handleRun returns a cached run by id.
// GET /api/runs/{id}
func (s *HTTPServer) handleRun(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("run")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	if last := s.checker.Last(); last != nil && last.ID == id {
		writeJSON(w, http.StatusOK, last)
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	run, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, cache.ErrMiss):
		writeError(w, http.StatusNotFound, "run not found")
	case err != nil:
		s.logger.Error().Err(err).Str("run_id", id).Msg("read run from cache")
		writeError(w, http.StatusInternalServerError, "cache unavailable")
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// handleKitUsage lists every kit thing with its assignment counts.
// GET /api/kit/usage
func (s *HTTPServer) handleKitUsage(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("kit_usage")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := s.repo.LoadSnapshot(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load snapshot")
		writeError(w, http.StatusInternalServerError, "programme unavailable")
		return
	}
	writeJSON(w, http.StatusOK, kit.Summarize(snap))
}
