package assertion

import (
	"context"
	"fmt"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
)

type Runner struct {
	sandbox  secondary.Sandbox
	defaults domain.Limits
	logger   primary.Logger
}

func NewRunner(sandbox secondary.Sandbox, defaults domain.Limits, logger primary.Logger) *Runner {
	return &Runner{
		sandbox:  sandbox,
		defaults: defaults.WithDefaults(),
		logger:   logger,
	}
}

// RunAll evaluates each assertion in order against its own render. It
// returns exactly one result per assertion and never retries.
func (r *Runner) RunAll(ctx context.Context, source, entryPoint string, assertions []Assertion) []domain.TestResult {
	results := make([]domain.TestResult, 0, len(assertions))
	for i, a := range assertions {
		if err := r.check(ctx, source, entryPoint, a); err != nil {
			r.logger.Debug("Assertion failed", "case", i+1, "description", a.Description(), "error", err)
			results = append(results, domain.TestResult{
				Pass:    false,
				Message: fmt.Sprintf("Error running test: %s - %v", a.Description(), err),
			})
			continue
		}
		results = append(results, domain.TestResult{
			Pass:    true,
			Message: fmt.Sprintf("Test %d passed: %s", i+1, a.Description()),
		})
	}
	return results
}

func (r *Runner) check(ctx context.Context, source, entryPoint string, a Assertion) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("assertion panicked: %v", rec)
		}
	}()
	return a.Check(ctx, r.sandbox, source, entryPoint, r.defaults)
}
