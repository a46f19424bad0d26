// Package memory holds process-local adapters used by the CLI and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/static/errs"
)

var (
	_ secondary.ChallengeReader  = (*ChallengeStore)(nil)
	_ secondary.SubmissionWriter = (*SubmissionStore)(nil)
)

type ChallengeStore struct {
	challenges *xsync.MapOf[string, *domain.Challenge]
	testCases  *xsync.MapOf[string, []*domain.TestCase]
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		challenges: xsync.NewMapOf[string, *domain.Challenge](),
		testCases:  xsync.NewMapOf[string, []*domain.TestCase](),
	}
}

// Put stores challenge with its cases, replacing any previous entry
func (s *ChallengeStore) Put(challenge *domain.Challenge, cases []*domain.TestCase) {
	sorted := append([]*domain.TestCase(nil), cases...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	s.challenges.Store(challenge.ID, challenge)
	s.testCases.Store(challenge.ID, sorted)
}

func (s *ChallengeStore) IDs() []string {
	var ids []string
	s.challenges.Range(func(id string, _ *domain.Challenge) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

func (s *ChallengeStore) GetChallenge(_ context.Context, challengeID string) (*domain.Challenge, error) {
	c, ok := s.challenges.Load(challengeID)
	if !ok {
		return nil, errs.ErrChallengeNotFound
	}
	return c, nil
}

func (s *ChallengeStore) GetTestCases(_ context.Context, challengeID string) ([]*domain.TestCase, error) {
	cases, _ := s.testCases.Load(challengeID)
	return cases, nil
}

type completionKey struct {
	userID      string
	challengeID string
}

// SubmissionStore keeps every submission and at most one completion per
// user and challenge
type SubmissionStore struct {
	mu          sync.Mutex
	submissions []StoredSubmission
	completions *xsync.MapOf[completionKey, *domain.Completion]
}

type StoredSubmission struct {
	Submission *domain.Submission
	Verdict    *domain.Verdict
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		completions: xsync.NewMapOf[completionKey, *domain.Completion](),
	}
}

func (s *SubmissionStore) SaveSubmission(_ context.Context, submission *domain.Submission, verdict *domain.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, StoredSubmission{Submission: submission, Verdict: verdict})
	return nil
}

func (s *SubmissionStore) UpsertCompletion(_ context.Context, completion *domain.Completion) error {
	s.completions.LoadOrStore(completionKey{completion.UserID, completion.ChallengeID}, completion)
	return nil
}

func (s *SubmissionStore) CountCompletions(_ context.Context, userID, challengeID string) (int, error) {
	if _, ok := s.completions.Load(completionKey{userID, challengeID}); ok {
		return 1, nil
	}
	return 0, nil
}

func (s *SubmissionStore) Submissions() []StoredSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredSubmission(nil), s.submissions...)
}

func (s *SubmissionStore) CompletionCount() int {
	return s.completions.Size()
}
