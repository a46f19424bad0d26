package secondary

import (
	"context"

	"gitlab.com/codegrader.net/internal/domain"
)

// ChallengeReader is the read-only metadata collaborator. GetChallenge
// returns errs.ErrChallengeNotFound for unknown ids.
type ChallengeReader interface {
	GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error)
	GetTestCases(ctx context.Context, challengeID string) ([]*domain.TestCase, error)
}

// ChallengeCache is a ChallengeReader that can drop cached entries
type ChallengeCache interface {
	ChallengeReader
	Refresh(ctx context.Context, challengeID string) error
}
