package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codegrader.net/internal/adapter/jsruntime"
	"gitlab.com/codegrader.net/internal/adapter/logging"
	"gitlab.com/codegrader.net/internal/adapter/memory"
	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/services/grading"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/handlers"
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

type fixture struct {
	router      *mux.Router
	submissions *memory.SubmissionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	challenges := memory.NewChallengeStore()
	challenges.Put(&domain.Challenge{ID: "two-sum", Type: domain.ChallengeTypeAlgorithm, FunctionName: "twoSum"},
		[]*domain.TestCase{{
			ID:             "two-sum-1",
			Description:    "finds the pair",
			InputData:      json.RawMessage(`[[2,7,11,15],9]`),
			ExpectedOutput: json.RawMessage(`[0,1]`),
			Order:          1,
		}})
	challenges.Put(&domain.Challenge{ID: "button", SolutionMarker: "variant"}, nil)

	submissions := memory.NewSubmissionStore()
	logger := logging.NewNopLogger()
	svc, err := grading.NewGradingService(challenges, submissions, jsruntime.New(logger), config.NewGradingConfig(), logger)
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Use(handlers.New(tokenVerifier{}, logger).JWTMiddleware)
	NewGradingHandler(svc, 1<<16, logger).RegisterRoutes(r, nil)
	return &fixture{router: r, submissions: submissions}
}

type tokenVerifier struct{}

func (tokenVerifier) VerifySubject(_ context.Context, token string) (string, error) {
	if token == "alice-token" {
		return "alice", nil
	}
	return "", fmt.Errorf("failed to parse token: %w", errs.InvalidToken)
}

func (f *fixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func gradeBody(t *testing.T, challengeID, code, userID string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"challengeId": challengeID, "code": code, "userId": userID})
	require.NoError(t, err)
	return string(raw)
}

func TestGrade_Algorithm(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/grade", gradeBody(t, "two-sum", twoSum, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, domain.TierStored, resp.Tier)
	assert.Equal(t, 1, resp.TotalTests)
	assert.Equal(t, 1, resp.PassedTests)
	assert.Equal(t, "Test 1 passed: finds the pair", resp.TestResults[0].Message)
}

func TestGrade_Marker(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/grade",
		gradeBody(t, "button", `export default function App(){ return <button className="variant">x</button> }`, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"isCorrect": true,
		"testResults": [{"pass": true, "message": "Solution contains the expected pattern: variant"}],
		"totalTests": 1,
		"passedTests": 1,
		"tier": "marker"
	}`, rec.Body.String())
}

func TestGrade_CompileErrorIsNotATransportError(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/grade", gradeBody(t, "two-sum", "function twoSum( {", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsCorrect)
	assert.Equal(t, domain.TierCompile, resp.Tier)
	require.Len(t, resp.TestResults, 1)
	assert.True(t, strings.HasPrefix(resp.TestResults[0].Message, "Compilation error: "))
}

func TestGrade_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{"challengeId":`, http.StatusBadRequest},
		{"missing code", `{"challengeId":"two-sum"}`, http.StatusBadRequest},
		{"missing challenge", `{"code":"x"}`, http.StatusBadRequest},
		{"unknown challenge", `{"challengeId":"nope","code":"x"}`, http.StatusNotFound},
		{"too large", `{"challengeId":"two-sum","code":"` + strings.Repeat("a", 1<<17) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/grade", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var msg map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
			assert.EqualValues(t, tt.status, msg["status_code"])
		})
	}
}

func TestGrade_TokenOverridesBodyUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/grade", gradeBody(t, "two-sum", twoSum, "mallory"),
		"Authorization", "Bearer alice-token")
	require.Equal(t, http.StatusOK, rec.Code)

	subs := f.submissions.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "alice", subs[0].Submission.UserID)

	rec = f.do(http.MethodGet, "/api/challenges/two-sum/completion", "", "Authorization", "Bearer alice-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"challengeId":"two-sum","userId":"alice","completed":true}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/challenges/two-sum/completion?userId=mallory", "")
	assert.JSONEq(t, `{"challengeId":"two-sum","userId":"mallory","completed":false}`, rec.Body.String())
}

func TestGrade_InvalidToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/grade", gradeBody(t, "two-sum", twoSum, ""),
		"Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.submissions.Submissions())
}

func TestValidate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/validate", `{"code":"const a = <div>hi</div>;"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isValid":true}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/validate", `{"code":"const = ;"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Error)

	rec = f.do(http.MethodPost, "/api/validate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshAndCompletion(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/challenges/two-sum/refresh", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/challenges/two-sum/completion", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// failingService reports a metadata outage for every call
type failingService struct {
	grading.IGradingService
}

func (failingService) Grade(context.Context, grading.GradeRequest) (*domain.Verdict, error) {
	return nil, fmt.Errorf("failed to get challenge x: %w: connection refused", errs.ErrMetadataUnavailable)
}

func (failingService) Refresh(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func TestGrade_MetadataFailure(t *testing.T) {
	logger := logging.NewNopLogger()
	r := mux.NewRouter()
	NewGradingHandler(failingService{}, 0, logger).RegisterRoutes(r, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/grade", strings.NewReader(`{"challengeId":"x","code":""}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"challenge metadata unavailable","status_code":500}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/challenges/x/refresh", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"internal error","status_code":500}`, rec.Body.String())
}

func TestRegisterRoutes_Throttle(t *testing.T) {
	logger := logging.NewNopLogger()
	r := mux.NewRouter()
	reject := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	NewGradingHandler(failingService{}, 0, logger).RegisterRoutes(r, reject)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/grade", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
