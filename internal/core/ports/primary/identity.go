package primary

import "context"

// IdentityVerifier resolves a bearer token to a user id
type IdentityVerifier interface {
	VerifySubject(ctx context.Context, token string) (string, error)
}
