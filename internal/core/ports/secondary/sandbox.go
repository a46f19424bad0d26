package secondary

import (
	"context"

	"gitlab.com/codegrader.net/internal/domain"
)

// Validator checks source syntax without executing it
type Validator interface {
	Validate(source string) domain.ValidationResult
}

// Sandbox runs untrusted source in a fresh, single-use execution context
// per call.
type Sandbox interface {
	Validator
	// Render compiles source and renders the component exposed as entryPoint
	Render(ctx context.Context, source, entryPoint string, limits domain.Limits) domain.Outcome
	// Call compiles source and invokes functionName with args
	Call(ctx context.Context, source, functionName string, args []any, limits domain.Limits) domain.Outcome
	// Evaluate renders the component and then runs script against the
	// rendered page inside the same context. A script that throws or
	// returns false yields a failed outcome.
	Evaluate(ctx context.Context, source, entryPoint, script string, limits domain.Limits) domain.Outcome
}
