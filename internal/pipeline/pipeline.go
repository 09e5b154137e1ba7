package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitecapture/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the capture
// state accumulated by previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; per-item failures are
	// logged by the step and return nil.
	Do(ctx context.Context, c *model.Capture) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and the first error is
// returned after the remaining steps have run.
//
// Design decision: The default is to stop on error because every step
// consumes the output of the previous one; writing a replica of a crawl
// that failed outright produces an empty directory.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
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
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Design decision: We check the context before each step rather than
// during, because steps handle their own cancellation. A cancelled context
// stops the pipeline before the next step, so an interrupted crawl never
// reaches the materializer and nothing partial is written.
func (p *Pipeline) Execute(ctx context.Context, c *model.Capture) error {
	var firstErr error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"url", c.BaseURL,
		)

		if err := step.Do(ctx, c); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", c.BaseURL,
				"error", err,
			)

			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"url", c.BaseURL,
		)
	}

	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
