package errs

import "errors"

var (
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrMetadataUnavailable = errors.New("challenge metadata unavailable")
	ErrInvalidRequest      = errors.New("invalid request")
)

var (
	InternalError = errors.New("internal error")
	InvalidToken  = errors.New("invalid token")
)
