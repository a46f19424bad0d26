// Package algorithm grades pure-function challenges against input and
// expected-output pairs.
package algorithm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
)

type Engine struct {
	sandbox     secondary.Sandbox
	comparator  Comparator
	concurrency int
	defaults    domain.Limits
	logger      primary.Logger
}

type Option func(*Engine)

// WithConcurrency lets up to n cases run at once, each in its own runtime
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithComparator(c Comparator) Option {
	return func(e *Engine) {
		e.comparator = c
	}
}

func WithDefaultLimits(l domain.Limits) Option {
	return func(e *Engine) {
		e.defaults = l.WithDefaults()
	}
}

func NewEngine(sandbox secondary.Sandbox, logger primary.Logger, opts ...Option) *Engine {
	e := &Engine{
		sandbox:     sandbox,
		comparator:  NewComparator(DefaultTolerance),
		concurrency: 1,
		defaults:    domain.Limits{}.WithDefaults(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteAll runs every case in a fresh sandbox and returns one result per
// case in input order. A failing case never stops the others.
func (e *Engine) ExecuteAll(ctx context.Context, source, functionName string, cases []*domain.TestCase) []domain.TestResult {
	results := make([]domain.TestResult, len(cases))
	if e.concurrency <= 1 {
		for i, tc := range cases {
			results[i] = e.execute(ctx, source, functionName, i+1, tc)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, tc := range cases {
		g.Go(func() error {
			results[i] = e.execute(ctx, source, functionName, i+1, tc)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) limits(tc *domain.TestCase) domain.Limits {
	l := domain.Limits{TimeLimitMs: tc.TimeLimitMs, MemoryLimitMb: tc.MemoryLimitMb}
	if l.TimeLimitMs <= 0 {
		l.TimeLimitMs = e.defaults.TimeLimitMs
	}
	if l.MemoryLimitMb <= 0 {
		l.MemoryLimitMb = e.defaults.MemoryLimitMb
	}
	return l
}

func (e *Engine) execute(ctx context.Context, source, functionName string, n int, tc *domain.TestCase) domain.TestResult {
	args, err := tc.Args()
	if err != nil {
		return failed(n, tc, fmt.Sprintf("invalid test input: %v", err))
	}
	expected, err := tc.Expected()
	if err != nil {
		return failed(n, tc, fmt.Sprintf("invalid expected output: %v", err))
	}

	out := e.sandbox.Call(ctx, source, functionName, args, e.limits(tc))
	if out.IsFailed() {
		e.logger.Debug("Algorithm case failed to run", "case", n, "failure", out.Failure.String(), "reason", out.Reason)
		return failed(n, tc, out.Reason)
	}

	equal := e.comparator.Equal(out.Value, expected)
	if tc.Unordered {
		equal = e.comparator.EqualUnordered(out.Value, expected)
	}
	if !equal {
		return failed(n, tc, fmt.Sprintf("expected %s, got %s", Describe(expected), Describe(out.Value)))
	}
	return domain.TestResult{
		Pass:    true,
		Message: fmt.Sprintf("Test %d passed: %s", n, tc.Description),
	}
}

func failed(n int, tc *domain.TestCase, reason string) domain.TestResult {
	return domain.TestResult{
		Pass:    false,
		Message: fmt.Sprintf("Test %d failed: %s - %s", n, tc.Description, reason),
	}
}
