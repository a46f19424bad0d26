package crypto

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/static/errs"
)

func newService(secret string) *JWTServiceImpl {
	return NewJWTService(&config.JwtConfig{Secret: secret})
}

func TestVerifySubject(t *testing.T) {
	svc := newService("s3cret")
	token, err := svc.GenerateTokenHMAC(context.Background(), map[string]interface{}{"sub": "user-42"})
	require.NoError(t, err)

	sub, err := svc.VerifySubject(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)
}

func TestVerifySubject_Rejects(t *testing.T) {
	svc := newService("s3cret")
	ctx := context.Background()

	wrongKey, _ := newService("other").GenerateTokenHMAC(ctx, map[string]interface{}{"sub": "u"})
	expired, _ := svc.GenerateTokenHMAC(ctx, map[string]interface{}{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()})
	noSub, _ := svc.GenerateTokenHMAC(ctx, map[string]interface{}{"name": "u"})
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte("s3cret"))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}).SignedString([]byte("s3cret"))

	tests := map[string]string{
		"garbage":        "not-a-token",
		"wrong key":      wrongKey,
		"expired":        expired,
		"missing sub":    noSub,
		"missing exp":    noExp,
		"unexpected alg": hs512,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifySubject(ctx, token)
			assert.ErrorIs(t, err, errs.InvalidToken)
		})
	}
}
