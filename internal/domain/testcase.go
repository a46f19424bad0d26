package domain

import "encoding/json"

const (
	DefaultTimeLimitMs   = 5000
	DefaultMemoryLimitMb = 128
)

// TestCase is either a behavioral assertion or an input/expected-output pair
type TestCase struct {
	ID             string          `db:"id" json:"id" yaml:"id"`
	ChallengeID    string          `db:"challenge_id" json:"challengeId" yaml:"-"`
	Description    string          `db:"description" json:"description" yaml:"description"`
	AssertionCode  string          `db:"assertion_code" json:"assertionCode,omitempty" yaml:"assertionCode"`
	InputData      json.RawMessage `db:"input_data" json:"inputData,omitempty" yaml:"-"`
	ExpectedOutput json.RawMessage `db:"expected_output" json:"expectedOutput,omitempty" yaml:"-"`
	TimeLimitMs    int             `db:"time_limit_ms" json:"timeLimitMs" yaml:"timeLimitMs"`
	MemoryLimitMb  int             `db:"memory_limit_mb" json:"memoryLimitMb" yaml:"memoryLimitMb"`
	Order          int             `db:"sort_order" json:"order" yaml:"order"`
	Unordered      bool            `db:"unordered" json:"unordered,omitempty" yaml:"unordered"`
}

type TestCaseTable struct {
	ID             string
	ChallengeID    string
	Description    string
	AssertionCode  string
	InputData      string
	ExpectedOutput string
	TimeLimitMs    string
	MemoryLimitMb  string
	Order          string
	Unordered      string
}

func GetTestCaseTable() TestCaseTable {
	return TestCaseTable{
		ID:             "id",
		ChallengeID:    "challenge_id",
		Description:    "description",
		AssertionCode:  "assertion_code",
		InputData:      "input_data",
		ExpectedOutput: "expected_output",
		TimeLimitMs:    "time_limit_ms",
		MemoryLimitMb:  "memory_limit_mb",
		Order:          "sort_order",
		Unordered:      "unordered",
	}
}

func (TestCaseTable) TableName() string {
	return "test_cases"
}

// IsAlgorithmic reports whether the case carries input/expected-output data
func (t *TestCase) IsAlgorithmic() bool {
	return len(t.InputData) > 0 || len(t.ExpectedOutput) > 0
}

// Limits returns the execution limits for the case with defaults applied
func (t *TestCase) Limits() Limits {
	return Limits{TimeLimitMs: t.TimeLimitMs, MemoryLimitMb: t.MemoryLimitMb}.WithDefaults()
}

// Args decodes InputData into call arguments. A JSON array is spread, any
// other value is passed as the single argument.
func (t *TestCase) Args() ([]any, error) {
	if len(t.InputData) == 0 {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(t.InputData, &raw); err != nil {
		return nil, err
	}
	if args, ok := raw.([]any); ok {
		return args, nil
	}
	return []any{raw}, nil
}

// Expected decodes ExpectedOutput
func (t *TestCase) Expected() (any, error) {
	if len(t.ExpectedOutput) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(t.ExpectedOutput, &out); err != nil {
		return nil, err
	}
	return out, nil
}
