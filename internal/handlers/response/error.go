package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/codegrader.net/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}

// FromError maps service errors to a status code. Anything unrecognised is
// reported as an internal error without leaking details.
func FromError(err error) ErrorMessage {
	switch {
	case errors.Is(err, errs.ErrInvalidRequest):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusBadRequest}
	case errors.Is(err, errs.ErrChallengeNotFound):
		return ErrorMessage{Message: errs.ErrChallengeNotFound.Error(), StatusCode: http.StatusNotFound}
	case errors.Is(err, errs.InvalidToken):
		return ErrorMessage{Message: errs.InvalidToken.Error(), StatusCode: http.StatusUnauthorized}
	case errors.Is(err, errs.ErrMetadataUnavailable):
		return ErrorMessage{Message: errs.ErrMetadataUnavailable.Error(), StatusCode: http.StatusInternalServerError}
	default:
		return ErrorMessage{Message: errs.InternalError.Error(), StatusCode: http.StatusInternalServerError}
	}
}
