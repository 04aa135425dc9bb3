package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/stealthping/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the report as left by
// the previous ones.
type Step interface {
	// Do executes the step. Non-critical problems should be logged and
	// return nil.
	Do(ctx context.Context, report *model.CaptureReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in the order they were added.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps running later steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	for _, step := range steps {
		p.AddStep(step)
	}
}

// Execute runs all steps in sequence. Cancellation is checked before each
// step. It returns the first step error unless continueOnError is set; the
// last error message is recorded in report.Error either way.
func (p *Pipeline) Execute(ctx context.Context, report *model.CaptureReport) error {
	var firstErr error

	p.logger.Debug("running pipeline",
		"source", report.Source,
		"steps", p.StepNames(),
	)

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"source", report.Source,
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"source", report.Source,
				"error", err,
			)
			report.Error = err.Error()

			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		report.Steps = append(report.Steps, step.Name())
	}

	return firstErr
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
