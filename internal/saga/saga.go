// Package saga runs a sequence of steps and compensates the completed ones in
// reverse order when a later step fails.
package saga

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Step is a single unit of work with a compensating action that undoes it.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

type funcStep struct {
	name       string
	execute    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

func (s funcStep) Name() string { return s.name }

func (s funcStep) Execute(ctx context.Context) error { return s.execute(ctx) }

func (s funcStep) Compensate(ctx context.Context) error {
	if s.compensate == nil {
		return nil
	}
	return s.compensate(ctx)
}

// Func builds a Step from closures. A nil compensate is a no-op.
func Func(name string, execute, compensate func(ctx context.Context) error) Step {
	return funcStep{name: name, execute: execute, compensate: compensate}
}

// CompensationError is returned when a step failed and at least one of the
// compensations for the preceding steps failed too. Unwrap yields the
// original step failure.
type CompensationError struct {
	Step     string
	Cause    error
	Failures map[string]error
}

func (e *CompensationError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	return fmt.Sprintf("step %s: %v (compensation failed for %s)", e.Step, e.Cause, strings.Join(names, ", "))
}

func (e *CompensationError) Unwrap() error { return e.Cause }

// Orchestrator executes steps sequentially.
type Orchestrator struct {
	steps []Step
}

// New creates an Orchestrator over steps.
func New(steps ...Step) *Orchestrator {
	return &Orchestrator{steps: steps}
}

// Add appends a step.
func (o *Orchestrator) Add(s Step) {
	o.steps = append(o.steps, s)
}

// Run executes every step in order. When one fails, the completed steps are
// compensated in LIFO order and the step error is returned. Compensation runs
// on a context detached from ctx cancellation so a client disconnect cannot
// leave reservations behind.
func (o *Orchestrator) Run(ctx context.Context) error {
	lg := zctx.From(ctx)
	done := make([]Step, 0, len(o.steps))

	for _, step := range o.steps {
		if err := step.Execute(ctx); err != nil {
			lg.Debug("Saga step failed, compensating",
				zap.String("step", step.Name()),
				zap.Int("completed", len(done)),
				zap.Error(err),
			)
			if failures := o.rollback(context.WithoutCancel(ctx), done); len(failures) > 0 {
				return &CompensationError{Step: step.Name(), Cause: err, Failures: failures}
			}
			return err
		}
		done = append(done, step)
	}

	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, done []Step) map[string]error {
	lg := zctx.From(ctx)
	var failures map[string]error

	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if err := step.Compensate(ctx); err != nil {
			lg.Error("Compensation failed", zap.String("step", step.Name()), zap.Error(err))
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[step.Name()] = err
		}
	}

	return failures
}
