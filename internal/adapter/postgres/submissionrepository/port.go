// Package submissionrepository persists graded submissions and challenge
// completions in PostgreSQL.
package submissionrepository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
	querybuilder "gitlab.com/codegrader.net/internal/utils"
)

var _ secondary.SubmissionWriter = &submissionRepo{}

type submissionRepo struct {
	db     *sqlx.DB
	logger primary.Logger
	schema string
}

func New(db *sqlx.DB, logger primary.Logger, schema string) secondary.SubmissionWriter {
	if schema == "" {
		schema = "public"
	}
	return &submissionRepo{
		db:     db,
		logger: logger,
		schema: schema,
	}
}

// SaveSubmission stores the submission together with its verdict summary.
// Results are kept as jsonb.
func (s *submissionRepo) SaveSubmission(ctx context.Context, submission *domain.Submission, verdict *domain.Verdict) error {
	results, err := json.Marshal(verdict.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal test results: %w", err)
	}

	tbl := domain.GetSubmissionTable()
	query, args := querybuilder.NewQueryBuilder(s.schema).
		Insert(
			tbl.ID, tbl.UserID, tbl.ChallengeID,
			tbl.SourceCode, tbl.SourceDigest, tbl.SubmittedAt,
			tbl.IsCorrect, tbl.Tier, tbl.PassedTests, tbl.TotalTests, tbl.Results,
		).
		Into(tbl.TableName()).
		Values(
			submission.ID, submission.UserID, submission.ChallengeID,
			submission.SourceCode, submission.SourceDigest, submission.SubmittedAt,
			verdict.IsCorrect, string(verdict.Tier), verdict.PassedTests, verdict.TotalTests, results,
		).
		Build()

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.Debug("Saved submission", "submissionId", submission.ID, "challengeId", submission.ChallengeID)
	return nil
}

// UpsertCompletion inserts the completion unless the user already completed
// the challenge
func (s *submissionRepo) UpsertCompletion(ctx context.Context, completion *domain.Completion) error {
	tbl := domain.GetCompletionTable()
	query, args := querybuilder.NewQueryBuilder(s.schema).
		Insert(tbl.UserID, tbl.ChallengeID, tbl.SubmissionID).
		Into(tbl.TableName()).
		Values(completion.UserID, completion.ChallengeID, completion.SubmissionID).
		OnConflict(tbl.UserID, tbl.ChallengeID).
		DoNothing().
		Build()

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert completion: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("Completion already recorded", "userId", completion.UserID, "challengeId", completion.ChallengeID)
	}
	return nil
}

func (s *submissionRepo) CountCompletions(ctx context.Context, userID, challengeID string) (int, error) {
	tbl := domain.GetCompletionTable()
	query, args := querybuilder.NewQueryBuilder(s.schema).
		Select("COUNT(*)").
		From(tbl.TableName()).
		Where(fmt.Sprintf("%s = ?", tbl.UserID), userID).
		And(fmt.Sprintf("%s = ?", tbl.ChallengeID), challengeID).
		Build()

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}
