package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Submission represents a code submission to be graded
type Submission struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId,omitempty"`
	ChallengeID  string    `db:"challenge_id" json:"challengeId"`
	SourceCode   string    `db:"source_code" json:"code"`
	SourceDigest string    `db:"source_digest" json:"sourceDigest"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submittedAt"`
}

type SubmissionTable struct {
	ID           string
	UserID       string
	ChallengeID  string
	SourceCode   string
	SourceDigest string
	SubmittedAt  string
	IsCorrect    string
	Tier         string
	PassedTests  string
	TotalTests   string
	Results      string
}

func GetSubmissionTable() SubmissionTable {
	return SubmissionTable{
		ID:           "id",
		UserID:       "user_id",
		ChallengeID:  "challenge_id",
		SourceCode:   "source_code",
		SourceDigest: "source_digest",
		SubmittedAt:  "submitted_at",
		IsCorrect:    "is_correct",
		Tier:         "tier",
		PassedTests:  "passed_tests",
		TotalTests:   "total_tests",
		Results:      "results",
	}
}

func (SubmissionTable) TableName() string {
	return "submissions"
}

// NewSubmission creates a new submission
func NewSubmission(userID, challengeID, code string) *Submission {
	return &Submission{
		ID:           uuid.New(),
		UserID:       userID,
		ChallengeID:  challengeID,
		SourceCode:   code,
		SourceDigest: SourceDigest(code),
		SubmittedAt:  time.Now(),
	}
}

// HasUser reports whether the submission carries a user identity
func (s *Submission) HasUser() bool {
	return s.UserID != ""
}

// SourceDigest returns the hex BLAKE2b-256 digest of the source code
func SourceDigest(code string) string {
	sum := blake2b.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
