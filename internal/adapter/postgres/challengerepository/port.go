// Package challengerepository reads challenge metadata and test cases from
// PostgreSQL.
package challengerepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/static/errs"
	querybuilder "gitlab.com/codegrader.net/internal/utils"
)

var _ secondary.ChallengeReader = &challengeRepo{}

type challengeRepo struct {
	db     *sqlx.DB
	logger primary.Logger
	schema string
}

func New(db *sqlx.DB, logger primary.Logger, schema string) secondary.ChallengeReader {
	if schema == "" {
		schema = "public"
	}
	return &challengeRepo{
		db:     db,
		logger: logger,
		schema: schema,
	}
}

type challengeRow struct {
	ID             string         `db:"id"`
	Type           string         `db:"challenge_type"`
	SolutionMarker sql.NullString `db:"solution_marker"`
	FunctionName   sql.NullString `db:"function_name"`
	EntryPoint     sql.NullString `db:"entry_point"`
	Keywords       pq.StringArray `db:"keywords"`
}

func (r challengeRow) toDomain() *domain.Challenge {
	return &domain.Challenge{
		ID:             r.ID,
		Type:           domain.ChallengeType(r.Type),
		SolutionMarker: r.SolutionMarker.String,
		FunctionName:   r.FunctionName.String,
		EntryPoint:     r.EntryPoint.String,
		Keywords:       []string(r.Keywords),
	}
}

// testCaseRow keeps the jsonb columns as raw bytes so NULL scans cleanly
type testCaseRow struct {
	ID             string         `db:"id"`
	ChallengeID    string         `db:"challenge_id"`
	Description    sql.NullString `db:"description"`
	AssertionCode  sql.NullString `db:"assertion_code"`
	InputData      []byte         `db:"input_data"`
	ExpectedOutput []byte         `db:"expected_output"`
	TimeLimitMs    sql.NullInt64  `db:"time_limit_ms"`
	MemoryLimitMb  sql.NullInt64  `db:"memory_limit_mb"`
	Order          int            `db:"sort_order"`
	Unordered      bool           `db:"unordered"`
}

func (r testCaseRow) toDomain() *domain.TestCase {
	return &domain.TestCase{
		ID:             r.ID,
		ChallengeID:    r.ChallengeID,
		Description:    r.Description.String,
		AssertionCode:  r.AssertionCode.String,
		InputData:      r.InputData,
		ExpectedOutput: r.ExpectedOutput,
		TimeLimitMs:    int(r.TimeLimitMs.Int64),
		MemoryLimitMb:  int(r.MemoryLimitMb.Int64),
		Order:          r.Order,
		Unordered:      r.Unordered,
	}
}

func (c *challengeRepo) GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	tbl := domain.GetChallengeTable()
	query, args := querybuilder.NewQueryBuilder(c.schema).
		Select(
			tbl.ID, tbl.Type, tbl.SolutionMarker,
			tbl.FunctionName, tbl.EntryPoint, tbl.Keywords,
		).
		From(tbl.TableName()).
		Where(fmt.Sprintf("%s = ?", tbl.ID), challengeID).
		Build()

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	var row challengeRow
	if err := c.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrChallengeNotFound
		}
		c.logger.Error("Failed to get challenge", "challengeId", challengeID, "error", err)
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	return row.toDomain(), nil
}

func (c *challengeRepo) GetTestCases(ctx context.Context, challengeID string) ([]*domain.TestCase, error) {
	tbl := domain.GetTestCaseTable()
	query, args := querybuilder.NewQueryBuilder(c.schema).
		Select(
			tbl.ID, tbl.ChallengeID, tbl.Description, tbl.AssertionCode,
			tbl.InputData, tbl.ExpectedOutput,
			tbl.TimeLimitMs, tbl.MemoryLimitMb, tbl.Order, tbl.Unordered,
		).
		From(tbl.TableName()).
		Where(fmt.Sprintf("%s = ?", tbl.ChallengeID), challengeID).
		OrderBy(tbl.Order, true).
		OrderBy(tbl.ID, true).
		Build()

	query = sqlx.Rebind(sqlx.DOLLAR, query)
	var rows []testCaseRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		c.logger.Error("Failed to get test cases", "challengeId", challengeID, "error", err)
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}

	cases := make([]*domain.TestCase, 0, len(rows))
	for _, row := range rows {
		cases = append(cases, row.toDomain())
	}
	return cases, nil
}
