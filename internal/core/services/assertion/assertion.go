// Package assertion runs behavioral checks against freshly rendered
// component submissions.
package assertion

import (
	"context"
	"errors"

	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/dom"
	"gitlab.com/codegrader.net/internal/domain"
)

// Assertion is one independent check. Every Check call starts from a new
// render of the submission.
type Assertion interface {
	Description() string
	Check(ctx context.Context, sb secondary.Sandbox, source, entryPoint string, limits domain.Limits) error
}

// Script is a stored JavaScript assertion evaluated after the render in the
// same runtime
type Script struct {
	description string
	code        string
	limits      domain.Limits
}

func NewScript(description, code string, limits domain.Limits) *Script {
	return &Script{description: description, code: code, limits: limits}
}

func (s *Script) Description() string {
	return s.description
}

func (s *Script) Check(ctx context.Context, sb secondary.Sandbox, source, entryPoint string, limits domain.Limits) error {
	if s.limits.TimeLimitMs > 0 {
		limits.TimeLimitMs = s.limits.TimeLimitMs
	}
	if s.limits.MemoryLimitMb > 0 {
		limits.MemoryLimitMb = s.limits.MemoryLimitMb
	}
	out := sb.Evaluate(ctx, source, entryPoint, s.code, limits)
	if out.IsFailed() {
		return errors.New(out.Reason)
	}
	return nil
}

// Predicate is a Go check over the rendered tree
type Predicate struct {
	description string
	check       func(root *dom.Node) error
}

func NewPredicate(description string, check func(root *dom.Node) error) *Predicate {
	return &Predicate{description: description, check: check}
}

func (p *Predicate) Description() string {
	return p.description
}

func (p *Predicate) Check(ctx context.Context, sb secondary.Sandbox, source, entryPoint string, limits domain.Limits) error {
	out := sb.Render(ctx, source, entryPoint, limits)
	if out.IsFailed() {
		return errors.New(out.Reason)
	}
	if out.Tree == nil {
		return errors.New("nothing was rendered")
	}
	return p.check(out.Tree)
}

// FromTestCases turns stored behavioral cases into script assertions,
// keeping their order
func FromTestCases(cases []*domain.TestCase) []Assertion {
	out := make([]Assertion, 0, len(cases))
	for _, tc := range cases {
		limits := domain.Limits{TimeLimitMs: tc.TimeLimitMs, MemoryLimitMb: tc.MemoryLimitMb}
		out = append(out, NewScript(tc.Description, tc.AssertionCode, limits))
	}
	return out
}
