// Package engine runs the fixed, ordered step list of a release
// pipeline. It is deliberately not a DAG scheduler: steps execute
// sequentially, declared dependencies are checked, and the first
// failure aborts the run.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shipper-ci/shipper/module/release/run"
)

// StepFunc executes one pipeline step against the shared run context.
type StepFunc func(ctx context.Context, rc *run.Context) error

// Step is one named entry of the pipeline. Needs lists the names of
// steps that must have completed before this one may start; the runner
// enforces the declaration against the fixed order.
type Step struct {
	Name  string
	Needs []string
	Run   StepFunc
}

// Runner executes steps in order under a single run timeout.
type Runner struct {
	timeout time.Duration
	steps   []Step
}

// NewRunner creates a Runner. A zero timeout means no bound.
func NewRunner(timeout time.Duration, steps ...Step) *Runner {
	return &Runner{
		timeout: timeout,
		steps:   steps,
	}
}

// Execute runs every step. It returns the first step error; a run
// exceeding the timeout is aborted and reported failed with no
// partial-completion state kept for resumption.
func (r *Runner) Execute(ctx context.Context, rc *run.Context) error {
	traceID := uuid.New().String()
	runLogger := log.With().
		Str("trace_id", traceID).
		Int("total_steps", len(r.steps)).
		Logger()

	if len(r.steps) == 0 {
		runLogger.Info().Msg("No steps to execute")
		return nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	runLogger.Info().Dur("timeout", r.timeout).Msg("Starting pipeline run")
	runStart := time.Now()

	done := make(map[string]bool, len(r.steps))
	for i, step := range r.steps {
		stepLogger := runLogger.With().
			Int("step_index", i).
			Str("step", step.Name).
			Logger()

		for _, need := range step.Needs {
			if !done[need] {
				return fmt.Errorf("step %s declared before its dependency %s completed", step.Name, need)
			}
		}

		if err := ctx.Err(); err != nil {
			stepLogger.Error().Err(err).Msg("Run aborted before step")
			return fmt.Errorf("run aborted before step %s: %w", step.Name, err)
		}

		stepLogger.Info().Msg("Starting step")
		rc.Reporter.Step(step.Name)
		stepStart := time.Now()

		if err := step.Run(ctx, rc); err != nil {
			stepLogger.Error().
				Err(err).
				Dur("duration", time.Since(stepStart)).
				Msg("Step failed")
			rc.Reporter.Error(fmt.Sprintf("%s failed", step.Name))
			return fmt.Errorf("step %s: %w", step.Name, err)
		}

		stepLogger.Info().
			Dur("duration", time.Since(stepStart)).
			Msg("Step completed")
		done[step.Name] = true
	}

	runLogger.Info().
		Dur("duration", time.Since(runStart)).
		Msg("Pipeline run completed")
	rc.Reporter.Success("release pipeline completed")
	return nil
}
