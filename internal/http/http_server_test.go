package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codegrader.net/internal/adapter/jsruntime"
	"gitlab.com/codegrader.net/internal/adapter/logging"
	"gitlab.com/codegrader.net/internal/adapter/memory"
	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/services/grading"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/limiter"
)

func newTestServer(t *testing.T, rl *limiter.Limiter) *Server {
	t.Helper()
	logger := logging.NewNopLogger()
	challenges := memory.NewChallengeStore()
	challenges.Put(&domain.Challenge{ID: "button", SolutionMarker: "variant"}, nil)

	svc, err := grading.NewGradingService(challenges, nil, jsruntime.New(logger), config.NewGradingConfig(), logger)
	require.NoError(t, err)

	var throttle func(http.Handler) http.Handler
	if rl != nil {
		throttle = rl.Middleware
	}
	s := NewServer(config.NewHTTPConfig(), "codegrader", *NewServiceProvider(svc, nil, throttle), logger)
	require.NoError(t, s.Init())
	return s
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/grade",
		strings.NewReader(`{"challengeId":"button","code":"const variant = 1;"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tier":"marker"`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/grade", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_RateLimited(t *testing.T) {
	rl := limiter.New(&config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}, 0)
	s := newTestServer(t, rl)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/grade",
			strings.NewReader(`{"challengeId":"button","code":"x"}`))
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(`{"code":"x"}`))
	req.RemoteAddr = "203.0.113.9:1234"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_InitRequiresService(t *testing.T) {
	s := NewServer(config.NewHTTPConfig(), "codegrader", ServiceProvider{}, logging.NewNopLogger())
	assert.Error(t, s.Init())
}
