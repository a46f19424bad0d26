package grading

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codegrader.net/internal/adapter/jsruntime"
	"gitlab.com/codegrader.net/internal/adapter/logging"
	"gitlab.com/codegrader.net/internal/adapter/memory"
	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/static/errs"
)

const twoSum = `
function twoSum(nums, target) {
  const seen = {};
  for (let i = 0; i < nums.length; i++) {
    const need = target - nums[i];
    if (need in seen) return [seen[need], i];
    seen[nums[i]] = i;
  }
  return [];
}
`

const twoSumReversed = `
function twoSum(nums, target) {
  for (let i = 0; i < nums.length; i++)
    for (let j = i + 1; j < nums.length; j++)
      if (nums[i] + nums[j] === target) return [j, i];
  return [];
}
`

const counter = `
export default function Counter() {
  const [count, setCount] = React.useState(0);
  return (
    <div>
      <p>Count: {count}</p>
      <button onClick={() => setCount(count + 1)}>Increment</button>
    </div>
  );
}
`

// countingSandbox records how often code was executed
type countingSandbox struct {
	secondary.Sandbox
	runs atomic.Int32
}

func (s *countingSandbox) Render(ctx context.Context, source, entryPoint string, limits domain.Limits) domain.Outcome {
	s.runs.Add(1)
	return s.Sandbox.Render(ctx, source, entryPoint, limits)
}

func (s *countingSandbox) Call(ctx context.Context, source, fn string, args []any, limits domain.Limits) domain.Outcome {
	s.runs.Add(1)
	return s.Sandbox.Call(ctx, source, fn, args, limits)
}

func (s *countingSandbox) Evaluate(ctx context.Context, source, entryPoint, script string, limits domain.Limits) domain.Outcome {
	s.runs.Add(1)
	return s.Sandbox.Evaluate(ctx, source, entryPoint, script, limits)
}

type fixture struct {
	challenges  *memory.ChallengeStore
	submissions *memory.SubmissionStore
	sandbox     *countingSandbox
	service     *GradingService
}

func testConfig() *config.GradingConfig {
	return &config.GradingConfig{
		DefaultTimeLimitMs:   1000,
		DefaultMemoryLimitMb: 64,
		HeuristicMinPassing:  2,
		PlaceholderPatterns:  []string{`TODO`, `(?i)placeholder`, `expect\(\s*true\s*\)\.toBe\(\s*true\s*\)`},
		AlgoConcurrency:      1,
		FloatTolerance:       1e-9,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewNopLogger()
	f := &fixture{
		challenges:  memory.NewChallengeStore(),
		submissions: memory.NewSubmissionStore(),
		sandbox:     &countingSandbox{Sandbox: jsruntime.New(logger)},
	}
	svc, err := NewGradingService(f.challenges, f.submissions, f.sandbox, testConfig(), logger)
	require.NoError(t, err)
	f.service = svc

	f.challenges.Put(&domain.Challenge{
		ID:           "two-sum",
		Type:         domain.ChallengeTypeAlgorithm,
		FunctionName: "twoSum",
	}, []*domain.TestCase{{
		ID:             "1",
		Description:    "basic pair",
		InputData:      json.RawMessage(`[[2,7,11,15],9]`),
		ExpectedOutput: json.RawMessage(`[0,1]`),
		TimeLimitMs:    1000,
	}})
	f.challenges.Put(&domain.Challenge{
		ID:             "button",
		Type:           domain.ChallengeTypeComponent,
		SolutionMarker: "variant",
	}, nil)
	return f
}

func (f *fixture) grade(t *testing.T, challengeID, code, userID string) *domain.Verdict {
	t.Helper()
	v, err := f.service.Grade(context.Background(), GradeRequest{ChallengeID: challengeID, SourceCode: code, UserID: userID})
	require.NoError(t, err)
	return v
}

func TestGrade_CompileErrorSkipsSandbox(t *testing.T) {
	f := newFixture(t)

	v := f.grade(t, "two-sum", "function twoSum( {", "u1")

	require.Len(t, v.Results, 1)
	assert.False(t, v.IsCorrect)
	assert.Equal(t, domain.TierCompile, v.Tier)
	assert.Contains(t, v.Results[0].Message, "Compilation error: ")
	assert.Zero(t, f.sandbox.runs.Load())
	assert.Len(t, f.submissions.Submissions(), 1)
}

func TestGrade_TwoSum(t *testing.T) {
	f := newFixture(t)

	v := f.grade(t, "two-sum", twoSum, "")
	assert.True(t, v.IsCorrect)
	assert.Equal(t, domain.TierStored, v.Tier)
	assert.Equal(t, 1, v.PassedTests)

	v = f.grade(t, "two-sum", twoSumReversed, "")
	assert.False(t, v.IsCorrect)
	assert.Contains(t, v.Results[0].Message, "expected [0,1], got [1,0]")
}

func TestGrade_UnorderedCase(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "pair", Type: domain.ChallengeTypeAlgorithm, FunctionName: "twoSum"},
		[]*domain.TestCase{{
			Description:    "any order",
			InputData:      json.RawMessage(`[[2,7,11,15],9]`),
			ExpectedOutput: json.RawMessage(`[0,1]`),
			Unordered:      true,
		}})

	assert.True(t, f.grade(t, "pair", twoSumReversed, "").IsCorrect)
}

func TestGrade_Deterministic(t *testing.T) {
	f := newFixture(t)

	first := f.grade(t, "two-sum", twoSumReversed, "")
	second := f.grade(t, "two-sum", twoSumReversed, "")

	assert.Equal(t, first, second)
}

func TestGrade_InfiniteLoopTimesOut(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "spin", Type: domain.ChallengeTypeAlgorithm, FunctionName: "spin"},
		[]*domain.TestCase{{Description: "spins", InputData: json.RawMessage(`1`), ExpectedOutput: json.RawMessage(`1`), TimeLimitMs: 200}})

	start := time.Now()
	v := f.grade(t, "spin", `function spin(n) { while (true) {} }`, "")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, v.IsCorrect)
	assert.Equal(t, "Test 1 failed: spins - time limit exceeded", v.Results[0].Message)
}

func TestGrade_MarkerTier(t *testing.T) {
	f := newFixture(t)

	v := f.grade(t, "button", `export default () => <button className={variant}>Go</button>;`, "")

	require.Len(t, v.Results, 1)
	assert.True(t, v.IsCorrect)
	assert.Equal(t, domain.TierMarker, v.Tier)

	v = f.grade(t, "button", `export default () => <button>Go</button>;`, "")
	assert.False(t, v.IsCorrect)
}

func TestGrade_PlaceholderFallsThrough(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "button", Type: domain.ChallengeTypeComponent, SolutionMarker: "variant"},
		[]*domain.TestCase{
			{Description: "real", AssertionCode: `expect(screen.getByRole('button')).toBeInTheDocument();`},
			{Description: "stub", AssertionCode: `expect(true).toBe(true);`},
		})

	v := f.grade(t, "button", `export default () => <button className={variant}>Go</button>;`, "")

	assert.Equal(t, domain.TierMarker, v.Tier)
	assert.Zero(t, f.sandbox.runs.Load())
}

func TestGrade_AlgorithmPlaceholderFallsThrough(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "sum", Type: domain.ChallengeTypeAlgorithm, FunctionName: "sum", SolutionMarker: "reduce"},
		[]*domain.TestCase{{Description: "empty", InputData: json.RawMessage(`null`)}})

	v := f.grade(t, "sum", `const sum = (xs) => xs.reduce((a, b) => a + b, 0);`, "")

	assert.Equal(t, domain.TierMarker, v.Tier)
	assert.True(t, v.IsCorrect)
}

func TestGrade_StoredComponentTests(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "my-counter", Type: domain.ChallengeTypeComponent},
		[]*domain.TestCase{
			{Description: "starts at zero", AssertionCode: `expect(screen.getByText('Count: 0')).toBeInTheDocument();`},
			{Description: "increments", AssertionCode: `fireEvent.click(screen.getByText('Increment')); expect(screen.getByText('Count: 1')).toBeInTheDocument();`},
		})

	v := f.grade(t, "my-counter", counter, "")

	assert.Equal(t, domain.TierStored, v.Tier)
	assert.True(t, v.IsCorrect, v.Results)
	assert.Equal(t, int32(2), f.sandbox.runs.Load())
}

func TestGrade_BuiltinSuite(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "counter", Type: domain.ChallengeTypeComponent, SolutionMarker: "never-used"}, nil)

	v := f.grade(t, "counter", counter, "")

	assert.Equal(t, domain.TierBuiltin, v.Tier)
	assert.True(t, v.IsCorrect, v.Results)
}

func TestGrade_HeuristicThreshold(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "weather-widget", Type: domain.ChallengeTypeComponent}, nil)

	v := f.grade(t, "weather-widget", `export default () => <div className="weather">Sunny</div>;`, "")
	assert.Equal(t, domain.TierHeuristic, v.Tier)
	assert.Equal(t, 6, v.TotalTests)
	assert.Equal(t, 2, v.PassedTests)
	assert.True(t, v.IsCorrect)

	v = f.grade(t, "weather-widget", `const x = 1;`, "")
	assert.False(t, v.IsCorrect)
}

func TestGrade_HeuristicUsesKeywords(t *testing.T) {
	f := newFixture(t)
	f.challenges.Put(&domain.Challenge{ID: "misc", Type: domain.ChallengeTypeComponent, Keywords: []string{"fetch(", "/loading/i"}}, nil)

	v := f.grade(t, "misc", `const x = 1; fetch("/api"); const Loading = true;`, "")

	assert.Equal(t, 6, v.TotalTests)
	assert.Equal(t, 2, v.PassedTests)
}

func TestGrade_CompletionIsRecordedOnce(t *testing.T) {
	f := newFixture(t)

	f.grade(t, "two-sum", twoSum, "u1")
	f.grade(t, "two-sum", twoSum, "u1")
	f.grade(t, "two-sum", twoSumReversed, "u2")

	assert.Len(t, f.submissions.Submissions(), 3)
	assert.Equal(t, 1, f.submissions.CompletionCount())

	done, err := f.service.HasCompleted(context.Background(), "u1", "two-sum")
	require.NoError(t, err)
	assert.True(t, done)
	done, err = f.service.HasCompleted(context.Background(), "u2", "two-sum")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestGrade_AnonymousIsNotPersisted(t *testing.T) {
	f := newFixture(t)

	f.grade(t, "two-sum", twoSum, "")

	assert.Empty(t, f.submissions.Submissions())
}

type failingWriter struct{ calls atomic.Int32 }

func (w *failingWriter) SaveSubmission(context.Context, *domain.Submission, *domain.Verdict) error {
	w.calls.Add(1)
	return errors.New("db down")
}

func (w *failingWriter) UpsertCompletion(context.Context, *domain.Completion) error {
	w.calls.Add(1)
	return errors.New("db down")
}

func (w *failingWriter) CountCompletions(context.Context, string, string) (int, error) {
	return 0, errors.New("db down")
}

func TestGrade_PersistenceFailureDoesNotChangeVerdict(t *testing.T) {
	f := newFixture(t)
	writer := &failingWriter{}
	svc, err := NewGradingService(f.challenges, writer, f.sandbox, testConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	v, err := svc.Grade(context.Background(), GradeRequest{ChallengeID: "two-sum", SourceCode: twoSum, UserID: "u1"})

	require.NoError(t, err)
	assert.True(t, v.IsCorrect)
	assert.Equal(t, int32(2), writer.calls.Load())
}

type brokenReader struct {
	secondary.ChallengeReader
	challengeErr error
	casesErr     error
}

func (r *brokenReader) GetChallenge(ctx context.Context, id string) (*domain.Challenge, error) {
	if r.challengeErr != nil {
		return nil, r.challengeErr
	}
	return r.ChallengeReader.GetChallenge(ctx, id)
}

func (r *brokenReader) GetTestCases(ctx context.Context, id string) ([]*domain.TestCase, error) {
	if r.casesErr != nil {
		return nil, r.casesErr
	}
	return r.ChallengeReader.GetTestCases(ctx, id)
}

func TestGrade_TestCaseLookupFailureDegrades(t *testing.T) {
	f := newFixture(t)
	reader := &brokenReader{ChallengeReader: f.challenges, casesErr: errors.New("timeout")}
	svc, err := NewGradingService(reader, nil, f.sandbox, testConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	v, err := svc.Grade(context.Background(), GradeRequest{ChallengeID: "two-sum", SourceCode: twoSum})

	require.NoError(t, err)
	assert.Equal(t, domain.TierHeuristic, v.Tier)
	assert.Equal(t, 5, v.TotalTests)
}

func TestGrade_ChallengeLookupFailures(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Grade(context.Background(), GradeRequest{ChallengeID: "nope", SourceCode: twoSum})
	assert.ErrorIs(t, err, errs.ErrChallengeNotFound)

	reader := &brokenReader{ChallengeReader: f.challenges, challengeErr: errors.New("connection refused")}
	svc, err := NewGradingService(reader, nil, f.sandbox, testConfig(), logging.NewNopLogger())
	require.NoError(t, err)
	_, err = svc.Grade(context.Background(), GradeRequest{ChallengeID: "two-sum", SourceCode: twoSum})
	assert.ErrorIs(t, err, errs.ErrMetadataUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = f.service.Grade(context.Background(), GradeRequest{SourceCode: twoSum})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestGrade_CompileErrorPrecedesMetadataLookup(t *testing.T) {
	f := newFixture(t)
	reader := &brokenReader{ChallengeReader: f.challenges, challengeErr: errors.New("connection refused")}
	svc, err := NewGradingService(reader, f.submissions, f.sandbox, testConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	v, err := svc.Grade(context.Background(), GradeRequest{ChallengeID: "two-sum", SourceCode: "function twoSum( {", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierCompile, v.Tier)
	require.Len(t, v.Results, 1)
	assert.False(t, v.IsCorrect)

	v, err = f.service.Grade(context.Background(), GradeRequest{ChallengeID: "nope", SourceCode: "const = ;"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierCompile, v.Tier)
	assert.Zero(t, f.sandbox.runs.Load())

	subs := f.submissions.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "two-sum", subs[0].Submission.ChallengeID)
}

func TestNewGradingService_InvalidPlaceholderPattern(t *testing.T) {
	cfg := testConfig()
	cfg.PlaceholderPatterns = []string{"("}

	_, err := NewGradingService(memory.NewChallengeStore(), nil, jsruntime.New(logging.NewNopLogger()), cfg, logging.NewNopLogger())

	assert.Error(t, err)
}

func TestValidateAndRefresh(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.service.Validate(twoSum).IsValid)
	res := f.service.Validate("const = ;")
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Error)

	assert.NoError(t, f.service.Refresh(context.Background(), "two-sum"))
}
