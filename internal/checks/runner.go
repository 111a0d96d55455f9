package checks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"conprog/internal/events"
)

// Recorder receives per-check measurements.
type Recorder interface {
	ObserveCheck(name string, violations int, took time.Duration, err error)
}

// Publisher receives runner events.
type Publisher interface {
	Publish(event events.Event)
}

// Failure records a rule that errored during a run.
type Failure struct {
	Check string `json:"check"`
	Error string `json:"error"`
}

// Run is the result of running the enabled checks once.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outputs    []Output  `json:"outputs"`
	Failures   []Failure `json:"failures"`
}

// Total returns the number of violations across all outputs.
func (r *Run) Total() int {
	n := 0
	for _, o := range r.Outputs {
		n += o.Count
	}
	return n
}

// CheckEvent is the payload of check.completed and check.failed events.
type CheckEvent struct {
	RunID string `json:"run_id"`
	Check string `json:"check"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// Runner executes checks from a registry, logging and recording each one.
type Runner struct {
	registry  *Registry
	recorder  Recorder
	publisher Publisher
	logger    *zerolog.Logger

	mu      sync.RWMutex
	enabled map[string]bool // nil means all
}

// NewRunner creates a runner. recorder and publisher may be nil.
func NewRunner(registry *Registry, recorder Recorder, publisher Publisher, logger *zerolog.Logger) *Runner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Runner{
		registry:  registry,
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
	}
}

// Registry returns the runner's registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// SetEnabled restricts RunEnabled to the named checks. An empty list enables
// every registered check. Unknown names are rejected and nothing changes.
func (r *Runner) SetEnabled(names []string) error {
	if len(names) == 0 {
		r.mu.Lock()
		r.enabled = nil
		r.mu.Unlock()
		return nil
	}

	set := make(map[string]bool, len(names))
	var errs []error
	for _, name := range names {
		if _, err := r.registry.Lookup(name); err != nil {
			errs = append(errs, err)
			continue
		}
		set[name] = true
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.mu.Lock()
	r.enabled = set
	r.mu.Unlock()
	return nil
}

// Enabled returns the enabled check names in registry order.
func (r *Runner) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.registry.Names()
	if r.enabled == nil {
		return names
	}
	out := make([]string, 0, len(r.enabled))
	for _, name := range names {
		if r.enabled[name] {
			out = append(out, name)
		}
	}
	return out
}

// RunCheck runs a single check by name, enabled or not.
func (r *Runner) RunCheck(ctx context.Context, name string, env *Env) (Output, error) {
	return r.runOne(ctx, "", name, env)
}

func (r *Runner) runOne(ctx context.Context, runID, name string, env *Env) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	start := time.Now()
	out, err := r.registry.RunCheck(name, env)
	took := time.Since(start)

	if r.recorder != nil && !errors.Is(err, ErrUnknownCheck) {
		r.recorder.ObserveCheck(name, out.Count, took, err)
	}

	if err != nil {
		r.logger.Error().Err(err).Str("check", name).Str("run_id", runID).Msg("check failed")
		r.publish(events.CheckFailed, CheckEvent{RunID: runID, Check: name, Error: err.Error()})
		return Output{}, err
	}

	r.logger.Debug().
		Str("check", name).
		Str("run_id", runID).
		Int("count", out.Count).
		Dur("duration", took).
		Msg("check completed")
	r.publish(events.CheckCompleted, CheckEvent{RunID: runID, Check: name, Count: out.Count})
	return out, nil
}

// RunEnabled runs every enabled check against env. A failing check does not
// stop the others; it is listed in Failures and its error joined into the
// returned error. Cancellation stops the run between checks.
func (r *Runner) RunEnabled(ctx context.Context, env *Env) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Outputs:   []Output{},
		Failures:  []Failure{},
	}

	var errs []error
	for _, name := range r.Enabled() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s interrupted: %w", run.ID, err)
		}
		out, err := r.runOne(ctx, run.ID, name, env)
		if err != nil {
			run.Failures = append(run.Failures, Failure{Check: name, Error: err.Error()})
			errs = append(errs, err)
			continue
		}
		run.Outputs = append(run.Outputs, out)
	}
	run.FinishedAt = time.Now()

	r.logger.Info().
		Str("run_id", run.ID).
		Int("checks", len(run.Outputs)).
		Int("failed", len(run.Failures)).
		Int("violations", run.Total()).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("check run finished")
	r.publish(events.RunCompleted, run)

	return run, errors.Join(errs...)
}

func (r *Runner) publish(eventType string, payload any) {
	if r.publisher == nil {
		return
	}
	ev, err := events.New(eventType, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("type", eventType).Msg("encode event")
		return
	}
	r.publisher.Publish(ev)
}
