package handlers

import (
	"context"
	"net/http"
	"strings"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/handlers/response"
)

type contextKey string

const userIDKey contextKey = "userId"

type MiddlewareProvider struct {
	verifier primary.IdentityVerifier
	logger   primary.Logger
}

// New returns a provider. A nil verifier turns bearer tokens off entirely.
func New(verifier primary.IdentityVerifier, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		verifier: verifier,
		logger:   logger,
	}
}

// JWTMiddleware resolves an optional bearer token to a user id. Requests
// without a token pass through anonymously; a bad token is rejected.
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || m.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			response.WriteError(w, response.ErrorMessage{Message: "invalid token", StatusCode: http.StatusUnauthorized})
			return
		}

		subject, err := m.verifier.VerifySubject(r.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			m.logger.Debug("Rejected bearer token", "error", err)
			response.WriteError(w, response.FromError(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), subject)))
	})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
