package domain

import (
	"time"

	"gitlab.com/codegrader.net/internal/dom"
)

// Limits bounds a single sandbox invocation
type Limits struct {
	TimeLimitMs   int
	MemoryLimitMb int
}

func (l Limits) WithDefaults() Limits {
	if l.TimeLimitMs <= 0 {
		l.TimeLimitMs = DefaultTimeLimitMs
	}
	if l.MemoryLimitMb <= 0 {
		l.MemoryLimitMb = DefaultMemoryLimitMb
	}
	return l
}

func (l Limits) Timeout() time.Duration {
	return time.Duration(l.TimeLimitMs) * time.Millisecond
}

func (l Limits) MemoryBytes() uint64 {
	return uint64(l.MemoryLimitMb) << 20
}

// FailureKind classifies why a sandbox run did not produce a value
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureCompile
	FailureRender
	FailureCall
	FailureTimeout
	FailureMemoryLimit
	FailureMissingEntryPoint
	FailureAssertion
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureCompile:
		return "compile"
	case FailureRender:
		return "render"
	case FailureCall:
		return "call"
	case FailureTimeout:
		return "timeout"
	case FailureMemoryLimit:
		return "memory_limit"
	case FailureMissingEntryPoint:
		return "missing_entry_point"
	case FailureAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}

const (
	ReasonTimeLimit     = "time limit exceeded"
	ReasonMemoryLimit   = "memory limit exceeded"
	ReasonMissingFunc   = "missing function"
	ReasonMissingEntry  = "missing component"
	ReasonModuleMissing = "module not available"
)

// OutcomeKind tags the variant held by an Outcome
type OutcomeKind int

const (
	OutcomeRendered OutcomeKind = iota + 1
	OutcomeReturned
	OutcomeFailed
)

// Outcome is the result of one sandbox invocation: a rendered tree, a
// returned value, or a failure with its reason.
type Outcome struct {
	Kind    OutcomeKind
	Tree    *dom.Node
	Value   any
	Reason  string
	Failure FailureKind
	Logs    []string
}

func Rendered(tree *dom.Node) Outcome {
	return Outcome{Kind: OutcomeRendered, Tree: tree}
}

func Returned(value any) Outcome {
	return Outcome{Kind: OutcomeReturned, Value: value}
}

func Failed(reason string, kind FailureKind) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, Failure: kind}
}

func (o Outcome) IsFailed() bool {
	return o.Kind == OutcomeFailed
}

// ValidationResult is the output of the static validator
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}
