package grading

import (
	"context"

	"gitlab.com/codegrader.net/internal/domain"
)

// GradeRequest is one submission to grade. UserID is optional; without it
// nothing is persisted.
type GradeRequest struct {
	ChallengeID string
	SourceCode  string
	UserID      string
}

type IGradingService interface {
	// Grade produces a verdict for the submission. Only metadata failures
	// are returned as errors; problems with the submitted code are reported
	// inside the verdict.
	Grade(ctx context.Context, req GradeRequest) (*domain.Verdict, error)

	// Validate checks the syntax of source without running it
	Validate(source string) domain.ValidationResult

	// Refresh evicts cached metadata for challengeID, or for every
	// challenge when challengeID is empty
	Refresh(ctx context.Context, challengeID string) error

	// HasCompleted reports whether userID has a completion for challengeID
	HasCompleted(ctx context.Context, userID, challengeID string) (bool, error)
}
