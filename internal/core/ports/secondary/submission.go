package secondary

import (
	"context"

	"gitlab.com/codegrader.net/internal/domain"
)

// SubmissionWriter persists graded submissions and completions
type SubmissionWriter interface {
	SaveSubmission(ctx context.Context, submission *domain.Submission, verdict *domain.Verdict) error
	// UpsertCompletion is idempotent per (userID, challengeID)
	UpsertCompletion(ctx context.Context, completion *domain.Completion) error
	CountCompletions(ctx context.Context, userID, challengeID string) (int, error)
}
