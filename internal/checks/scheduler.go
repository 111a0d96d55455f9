package checks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"conprog/internal/model"
)

// Scheduler loads a fresh snapshot and runs the enabled checks on an interval.
type Scheduler struct {
	repo     model.Repository
	runner   *Runner
	interval time.Duration
	logger   *zerolog.Logger

	noAvailMeansAlwaysAvail atomic.Bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	last    *Run
	hooks   []RunHook
}

// RunHook is called after every scheduled or manual run with the snapshot
// the run was computed from.
type RunHook func(run *Run, snap *model.Snapshot)

// NewScheduler creates a scheduler. A non-positive interval defaults to 15 minutes.
func NewScheduler(repo model.Repository, runner *Runner, interval time.Duration, noAvailMeansAlwaysAvail bool, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Scheduler{
		repo:     repo,
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
	s.noAvailMeansAlwaysAvail.Store(noAvailMeansAlwaysAvail)
	return s
}

// SetPolicy changes the availability policy used by later runs.
func (s *Scheduler) SetPolicy(noAvailMeansAlwaysAvail bool) {
	s.noAvailMeansAlwaysAvail.Store(noAvailMeansAlwaysAvail)
}

// OnRun registers a hook called after each run.
func (s *Scheduler) OnRun(hook RunHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Start runs the checks once, then on every tick until ctx is done or Stop
// is called. A stopped scheduler may be started again.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.interval).Msg("check scheduler started")

	if _, err := s.RunNow(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial check run failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("check scheduler stopped by context")
			s.markStopped(stopCh)
			return
		case <-stopCh:
			s.logger.Info().Msg("check scheduler stopped")
			s.markStopped(stopCh)
			return
		case <-ticker.C:
			if _, err := s.RunNow(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled check run failed")
			}
		}
	}
}

// Stop ends the loop started by Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
}

// markStopped clears the running flag unless a newer Start owns it.
func (s *Scheduler) markStopped(stopCh chan struct{}) {
	s.mu.Lock()
	if s.stopCh == stopCh {
		s.running = false
	}
	s.mu.Unlock()
}

// RunNow loads a snapshot and runs the enabled checks against it. The run is
// returned even when some checks failed.
func (s *Scheduler) RunNow(ctx context.Context) (*Run, error) {
	snap, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	env := NewEnv(snap, s.noAvailMeansAlwaysAvail.Load())
	run, err := s.runner.RunEnabled(ctx, env)
	if run != nil {
		s.mu.Lock()
		s.last = run
		hooks := append([]RunHook(nil), s.hooks...)
		s.mu.Unlock()

		for _, hook := range hooks {
			hook(run, snap)
		}
	}
	return run, err
}

// RunCheck runs a single check, enabled or not, against a fresh snapshot.
// The result is not recorded as a run and hooks are not called.
func (s *Scheduler) RunCheck(ctx context.Context, name string) (Output, error) {
	snap, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s.runner.RunCheck(ctx, name, NewEnv(snap, s.noAvailMeansAlwaysAvail.Load()))
}

// Last returns the most recent run, or nil.
func (s *Scheduler) Last() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
