package domain

// TestResult is the outcome of a single test case. Never mutated after creation.
type TestResult struct {
	Pass    bool   `json:"pass"`
	Message string `json:"message"`
}

// Tier identifies which grading strategy produced a verdict
type Tier string

const (
	TierStored    Tier = "stored"
	TierBuiltin   Tier = "builtin"
	TierMarker    Tier = "marker"
	TierHeuristic Tier = "heuristic"
	TierCompile   Tier = "compile"
)

// Verdict is the final correctness determination for a submission
type Verdict struct {
	IsCorrect   bool         `json:"isCorrect"`
	Results     []TestResult `json:"testResults"`
	Tier        Tier         `json:"tier"`
	TotalTests  int          `json:"totalTests"`
	PassedTests int          `json:"passedTests"`
}

// NewVerdict aggregates results with the all-must-pass rule. An empty result
// set is never correct.
func NewVerdict(tier Tier, results []TestResult) *Verdict {
	passed := CountPassed(results)
	return &Verdict{
		IsCorrect:   len(results) > 0 && passed == len(results),
		Results:     results,
		Tier:        tier,
		TotalTests:  len(results),
		PassedTests: passed,
	}
}

// NewThresholdVerdict aggregates results requiring at least minPassing passes
func NewThresholdVerdict(tier Tier, results []TestResult, minPassing int) *Verdict {
	if minPassing < 1 {
		minPassing = 1
	}
	passed := CountPassed(results)
	return &Verdict{
		IsCorrect:   len(results) > 0 && passed >= minPassing,
		Results:     results,
		Tier:        tier,
		TotalTests:  len(results),
		PassedTests: passed,
	}
}

func CountPassed(results []TestResult) int {
	n := 0
	for _, r := range results {
		if r.Pass {
			n++
		}
	}
	return n
}

// Completion records that a user solved a challenge. Unique per (UserID, ChallengeID).
type Completion struct {
	UserID       string `db:"user_id"`
	ChallengeID  string `db:"challenge_id"`
	SubmissionID string `db:"submission_id"`
}

type CompletionTable struct {
	UserID       string
	ChallengeID  string
	SubmissionID string
	CompletedAt  string
}

func GetCompletionTable() CompletionTable {
	return CompletionTable{
		UserID:       "user_id",
		ChallengeID:  "challenge_id",
		SubmissionID: "submission_id",
		CompletedAt:  "completed_at",
	}
}

func (CompletionTable) TableName() string {
	return "completions"
}
