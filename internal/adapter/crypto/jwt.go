package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/static/errs"
)

var _ primary.IdentityVerifier = (*JWTServiceImpl)(nil)

type JWTServiceImpl struct {
	HMACSecretKey string
	parser        *jwt.Parser
}

func NewJWTService(jwtConfig *config.JwtConfig) *JWTServiceImpl {
	return &JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// GenerateTokenHMAC signs claims with HS256. A missing exp is set one hour
// ahead.
func (J JWTServiceImpl) GenerateTokenHMAC(ctx context.Context, claims map[string]interface{}) (string, error) {
	if _, exists := claims["exp"]; !exists {
		claims["exp"] = time.Now().Add(time.Hour * 1).Unix()
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	return tok.SignedString([]byte(J.HMACSecretKey))
}

// VerifySubject validates token and returns its sub claim
func (J JWTServiceImpl) VerifySubject(ctx context.Context, token string) (string, error) {
	parsed, err := J.parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(J.HMACSecretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.InvalidToken, err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing sub claim", errs.InvalidToken)
	}
	return sub, nil
}
