package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"remuxkit/internal/logging"
	"remuxkit/internal/services"
)

// Step is one unit of pipeline work. Steps run in a fixed order; a step
// reporting itself disabled is skipped without note.
type Step interface {
	Name() string
	Enabled(pctx *Context) bool
	Run(ctx context.Context, pctx *Context) error
}

// Outcome is the terminal state of a title run.
type Outcome string

const (
	// OutcomeDone means the output container was produced and validated.
	OutcomeDone Outcome = "done"
	// OutcomeFailed means a step failed; the error says which.
	OutcomeFailed Outcome = "failed"
	// OutcomeStopped means the run was cancelled, not broken.
	OutcomeStopped Outcome = "stopped"
)

// Result is the report of one title run.
type Result struct {
	Outcome    Outcome
	Err        error
	OutputPath string
	Findings   []Finding
}

// Orchestrator drives the step sequence for one title at a time.
type Orchestrator struct {
	steps  []Step
	logger *slog.Logger
}

// NewOrchestrator builds an orchestrator over the default step sequence.
func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	return NewOrchestratorWithSteps(logger, DefaultSteps())
}

// NewOrchestratorWithSteps injects a custom step sequence (primarily for
// tests).
func NewOrchestratorWithSteps(logger *slog.Logger, steps []Step) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{steps: steps, logger: logger}
}

// DefaultSteps returns the production step sequence.
func DefaultSteps() []Step {
	return []Step{
		navStep{},
		metadataStep{},
		telecineStep{},
		extractStep{},
		captionsStep{},
		chaptersStep{},
		finalizeStep{},
	}
}

// Run executes the sequence. The working directory is removed when the run
// ends, whatever the outcome; only the validated output file and the
// optional metadata artifact survive outside it.
func (o *Orchestrator) Run(ctx context.Context, pctx *Context) Result {
	if pctx.Diagnostics == nil {
		pctx.Diagnostics = NewDiagnostics()
	}
	if pctx.Logger == nil {
		pctx.Logger = o.logger
	}
	if pctx.WorkDir != "" {
		if err := os.MkdirAll(pctx.WorkDir, 0o755); err != nil {
			return o.finish(pctx, Result{Outcome: OutcomeFailed,
				Err: fmt.Errorf("create staging directory: %w", err)})
		}
	}
	defer func() {
		if pctx.WorkDir != "" {
			if err := os.RemoveAll(pctx.WorkDir); err != nil {
				pctx.Logger.Warn("staging cleanup failed",
					logging.String("dir", pctx.WorkDir), logging.Error(err))
			}
		}
	}()

	for _, step := range o.steps {
		if err := ctx.Err(); err != nil {
			return o.finish(pctx, Result{Outcome: OutcomeStopped, Err: err})
		}
		if !step.Enabled(pctx) {
			continue
		}
		logger := pctx.Logger.With(logging.String(logging.FieldStep, step.Name()))
		logger.Info("step started")
		pctx.progress(step.Name(), "")
		if err := step.Run(logging.WithStep(ctx, step.Name()), pctx); err != nil {
			if services.IsCancellation(err) {
				logger.Info("step interrupted")
				return o.finish(pctx, Result{Outcome: OutcomeStopped, Err: err})
			}
			logger.Error("step failed", logging.Error(err))
			return o.finish(pctx, Result{Outcome: OutcomeFailed, Err: err})
		}
		logger.Info("step finished")
	}
	return o.finish(pctx, Result{Outcome: OutcomeDone, OutputPath: pctx.OutputPath})
}

func (o *Orchestrator) finish(pctx *Context, result Result) Result {
	result.Findings = pctx.Diagnostics.Findings()
	for _, finding := range pctx.Diagnostics.Warnings() {
		pctx.Logger.Warn("diagnostic", logging.String("finding", finding.String()))
	}
	return result
}
