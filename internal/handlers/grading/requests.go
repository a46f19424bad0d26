package grading

import "gitlab.com/codegrader.net/internal/domain"

// GradeRequest is the body of POST /api/grade. Code is a pointer so an
// absent field can be told apart from an empty submission.
type GradeRequest struct {
	ChallengeID string  `json:"challengeId"`
	Code        *string `json:"code"`
	UserID      string  `json:"userId,omitempty"`
}

// GradeResponse mirrors the verdict
type GradeResponse struct {
	IsCorrect   bool                `json:"isCorrect"`
	TestResults []domain.TestResult `json:"testResults"`
	TotalTests  int                 `json:"totalTests"`
	PassedTests int                 `json:"passedTests"`
	Tier        domain.Tier         `json:"tier"`
}

type ValidateRequest struct {
	Code *string `json:"code"`
}

type CompletionResponse struct {
	ChallengeID string `json:"challengeId"`
	UserID      string `json:"userId"`
	Completed   bool   `json:"completed"`
}

func newGradeResponse(v *domain.Verdict) GradeResponse {
	results := v.Results
	if results == nil {
		results = []domain.TestResult{}
	}
	return GradeResponse{
		IsCorrect:   v.IsCorrect,
		TestResults: results,
		TotalTests:  v.TotalTests,
		PassedTests: v.PassedTests,
		Tier:        v.Tier,
	}
}
