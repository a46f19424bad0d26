package grading

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/core/services/algorithm"
	"gitlab.com/codegrader.net/internal/core/services/assertion"
	"gitlab.com/codegrader.net/internal/core/services/heuristic"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/metrics"
	"gitlab.com/codegrader.net/internal/static/errs"
)

var _ IGradingService = (*GradingService)(nil)

var tokenSeparators = regexp.MustCompile(`[-_\s]+`)

// GradingService picks a grading tier per submission and drives the
// matching runner
type GradingService struct {
	challenges   secondary.ChallengeReader
	submissions  secondary.SubmissionWriter
	sandbox      secondary.Sandbox
	assertions   *assertion.Runner
	algorithms   *algorithm.Engine
	heuristics   *heuristic.Analyzer
	placeholders []*regexp.Regexp
	minPassing   int
	logger       primary.Logger
}

// NewGradingService wires the runners around sandbox. submissions may be nil,
// in which case verdicts are never persisted.
func NewGradingService(
	challenges secondary.ChallengeReader,
	submissions secondary.SubmissionWriter,
	sandbox secondary.Sandbox,
	cfg *config.GradingConfig,
	logger primary.Logger,
) (*GradingService, error) {
	placeholders := make([]*regexp.Regexp, 0, len(cfg.PlaceholderPatterns))
	for _, p := range cfg.PlaceholderPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid placeholder pattern %q: %w", p, err)
		}
		placeholders = append(placeholders, re)
	}

	limits := cfg.DefaultLimits()
	return &GradingService{
		challenges:  challenges,
		submissions: submissions,
		sandbox:     sandbox,
		assertions:  assertion.NewRunner(sandbox, limits, logger),
		algorithms: algorithm.NewEngine(sandbox, logger,
			algorithm.WithConcurrency(cfg.AlgoConcurrency),
			algorithm.WithComparator(algorithm.NewComparator(cfg.FloatTolerance)),
			algorithm.WithDefaultLimits(limits),
		),
		heuristics:   heuristic.NewAnalyzer(),
		placeholders: placeholders,
		minPassing:   cfg.HeuristicMinPassing,
		logger:       logger,
	}, nil
}

func (s *GradingService) Validate(source string) domain.ValidationResult {
	return s.sandbox.Validate(source)
}

func (s *GradingService) Grade(ctx context.Context, req GradeRequest) (*domain.Verdict, error) {
	if strings.TrimSpace(req.ChallengeID) == "" {
		return nil, fmt.Errorf("%w: challengeId is required", errs.ErrInvalidRequest)
	}
	start := time.Now()

	// invalid source short-circuits before any metadata is read
	if v := s.sandbox.Validate(req.SourceCode); !v.IsValid {
		verdict := domain.NewVerdict(domain.TierCompile, []domain.TestResult{{
			Pass:    false,
			Message: "Compilation error: " + v.Error,
		}})
		s.finish(ctx, domain.NewSubmission(req.UserID, req.ChallengeID, req.SourceCode), verdict, start)
		return verdict, nil
	}

	challenge, err := s.challenges.GetChallenge(ctx, req.ChallengeID)
	if err != nil {
		if errors.Is(err, errs.ErrChallengeNotFound) {
			return nil, fmt.Errorf("failed to get challenge %s: %w", req.ChallengeID, err)
		}
		s.logger.Error("Failed to get challenge", "challengeId", req.ChallengeID, "error", err)
		return nil, fmt.Errorf("failed to get challenge %s: %w: %v", req.ChallengeID, errs.ErrMetadataUnavailable, err)
	}
	if challenge == nil {
		return nil, fmt.Errorf("failed to get challenge %s: %w", req.ChallengeID, errs.ErrChallengeNotFound)
	}

	verdict := s.grade(ctx, challenge, req.SourceCode)
	s.finish(ctx, domain.NewSubmission(req.UserID, challenge.ID, req.SourceCode), verdict, start)
	return verdict, nil
}

// finish records metrics and the grading log line, then persists
func (s *GradingService) finish(ctx context.Context, submission *domain.Submission, verdict *domain.Verdict, start time.Time) {
	elapsed := time.Since(start)
	outcome := "incorrect"
	if verdict.IsCorrect {
		outcome = "correct"
	}
	metrics.GradingsTotal.WithLabelValues(string(verdict.Tier), outcome).Inc()
	metrics.GradingDuration.WithLabelValues(string(verdict.Tier)).Observe(float64(elapsed.Milliseconds()))
	s.logger.Info("Graded submission",
		"submissionId", submission.ID,
		"challengeId", submission.ChallengeID,
		"tier", verdict.Tier,
		"correct", verdict.IsCorrect,
		"passed", verdict.PassedTests,
		"total", verdict.TotalTests,
		"latencyMs", elapsed.Milliseconds())

	s.persist(ctx, submission, verdict)
}

// grade walks the tiers in order: stored tests, built-in suite, solution
// marker, heuristics
func (s *GradingService) grade(ctx context.Context, challenge *domain.Challenge, source string) *domain.Verdict {
	cases, err := s.challenges.GetTestCases(ctx, challenge.ID)
	if err != nil {
		metrics.MetadataFallbacks.Inc()
		s.logger.Warn("Failed to get test cases, falling back", "challengeId", challenge.ID, "error", err)
		cases = nil
	}

	if s.usable(challenge, cases) {
		if challenge.IsAlgorithm() {
			return domain.NewVerdict(domain.TierStored, s.algorithms.ExecuteAll(ctx, source, challenge.FunctionName, cases))
		}
		return domain.NewVerdict(domain.TierStored, s.assertions.RunAll(ctx, source, challenge.Entry(), assertion.FromTestCases(cases)))
	}
	if len(cases) > 0 {
		s.logger.Debug("Stored test cases are placeholders, falling back", "challengeId", challenge.ID)
	}

	if !challenge.IsAlgorithm() {
		if suite, ok := assertion.Builtin(challenge.ID); ok {
			return domain.NewVerdict(domain.TierBuiltin, s.assertions.RunAll(ctx, source, challenge.Entry(), suite))
		}
	}

	if challenge.SolutionMarker != "" {
		return domain.NewVerdict(domain.TierMarker, []domain.TestResult{markerResult(source, challenge.SolutionMarker)})
	}

	results := s.heuristics.Analyze(source, requiredTokens(challenge), challenge)
	return domain.NewThresholdVerdict(domain.TierHeuristic, results, s.minPassing)
}

// usable reports whether the stored cases are real tests. A single
// placeholder disqualifies the whole set.
func (s *GradingService) usable(challenge *domain.Challenge, cases []*domain.TestCase) bool {
	if len(cases) == 0 {
		return false
	}
	for _, tc := range cases {
		if s.isPlaceholder(challenge, tc) {
			return false
		}
	}
	return true
}

func (s *GradingService) isPlaceholder(challenge *domain.Challenge, tc *domain.TestCase) bool {
	if tc == nil {
		return true
	}
	if challenge.IsAlgorithm() {
		return isEmptyJSON(tc.InputData) && isEmptyJSON(tc.ExpectedOutput)
	}
	body := strings.TrimSpace(tc.AssertionCode)
	if body == "" {
		return true
	}
	for _, re := range s.placeholders {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

func isEmptyJSON(raw []byte) bool {
	v := strings.TrimSpace(string(raw))
	return v == "" || v == "null"
}

func markerResult(source, marker string) domain.TestResult {
	ok, err := heuristic.Matches(source, marker)
	switch {
	case err != nil:
		return domain.TestResult{Pass: false, Message: fmt.Sprintf("Invalid solution marker %s: %v", marker, err)}
	case ok:
		return domain.TestResult{Pass: true, Message: "Solution contains the expected pattern: " + marker}
	default:
		return domain.TestResult{Pass: false, Message: "Solution does not contain the expected pattern: " + marker}
	}
}

// requiredTokens returns the challenge keywords, or the words of its id
func requiredTokens(challenge *domain.Challenge) []string {
	if len(challenge.Keywords) > 0 {
		return challenge.Keywords
	}
	var tokens []string
	for _, part := range tokenSeparators.Split(challenge.ID, -1) {
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// persist stores the submission and, when correct, the completion. Failures
// are logged and counted and never reach the caller.
func (s *GradingService) persist(ctx context.Context, submission *domain.Submission, verdict *domain.Verdict) {
	if s.submissions == nil || !submission.HasUser() {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.submissions.SaveSubmission(ctx, submission, verdict); err != nil {
		metrics.PersistenceFailures.WithLabelValues("save_submission").Inc()
		s.logger.Error("Failed to save submission",
			"submissionId", submission.ID,
			"challengeId", submission.ChallengeID,
			"error", err)
	}
	if !verdict.IsCorrect {
		return
	}

	completion := &domain.Completion{
		UserID:       submission.UserID,
		ChallengeID:  submission.ChallengeID,
		SubmissionID: submission.ID.String(),
	}
	if err := s.submissions.UpsertCompletion(ctx, completion); err != nil {
		metrics.PersistenceFailures.WithLabelValues("upsert_completion").Inc()
		s.logger.Error("Failed to record completion",
			"userId", submission.UserID,
			"challengeId", submission.ChallengeID,
			"error", err)
	}
}

func (s *GradingService) Refresh(ctx context.Context, challengeID string) error {
	cache, ok := s.challenges.(secondary.ChallengeCache)
	if !ok {
		s.logger.Debug("Challenge reader is not cached, nothing to refresh")
		return nil
	}
	if err := cache.Refresh(ctx, challengeID); err != nil {
		s.logger.Error("Failed to refresh challenge cache", "challengeId", challengeID, "error", err)
		return fmt.Errorf("failed to refresh challenge %s: %w", challengeID, err)
	}
	s.logger.Info("Refreshed challenge cache", "challengeId", challengeID)
	return nil
}

func (s *GradingService) HasCompleted(ctx context.Context, userID, challengeID string) (bool, error) {
	if userID == "" || challengeID == "" {
		return false, fmt.Errorf("%w: userId and challengeId are required", errs.ErrInvalidRequest)
	}
	if s.submissions == nil {
		return false, nil
	}
	n, err := s.submissions.CountCompletions(ctx, userID, challengeID)
	if err != nil {
		return false, fmt.Errorf("failed to count completions: %w", err)
	}
	return n > 0, nil
}
