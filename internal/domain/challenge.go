package domain

// ChallengeType is the execution shape of a challenge
type ChallengeType string

const (
	ChallengeTypeComponent ChallengeType = "component"
	ChallengeTypeAlgorithm ChallengeType = "algorithm"
)

// DefaultEntryPoint is the symbol a component submission is expected to expose
const DefaultEntryPoint = "App"

// Challenge is the read-only grading metadata owned by the content service
type Challenge struct {
	ID             string        `db:"id" json:"id" yaml:"id"`
	Type           ChallengeType `db:"challenge_type" json:"challengeType" yaml:"type"`
	SolutionMarker string        `db:"solution_marker" json:"solutionMarker,omitempty" yaml:"solutionMarker"`
	FunctionName   string        `db:"function_name" json:"functionName,omitempty" yaml:"functionName"`
	EntryPoint     string        `db:"entry_point" json:"entryPoint,omitempty" yaml:"entryPoint"`
	Keywords       []string      `db:"-" json:"keywords,omitempty" yaml:"keywords"`
}

type ChallengeTable struct {
	ID             string
	Type           string
	SolutionMarker string
	FunctionName   string
	EntryPoint     string
	Keywords       string
}

func GetChallengeTable() ChallengeTable {
	return ChallengeTable{
		ID:             "id",
		Type:           "challenge_type",
		SolutionMarker: "solution_marker",
		FunctionName:   "function_name",
		EntryPoint:     "entry_point",
		Keywords:       "keywords",
	}
}

func (ChallengeTable) TableName() string {
	return "challenges"
}

// IsAlgorithm reports whether submissions are graded as pure functions
func (c *Challenge) IsAlgorithm() bool {
	return c.Type == ChallengeTypeAlgorithm
}

// Entry returns the component symbol to render, falling back to DefaultEntryPoint
func (c *Challenge) Entry() string {
	if c.EntryPoint != "" {
		return c.EntryPoint
	}
	return DefaultEntryPoint
}
