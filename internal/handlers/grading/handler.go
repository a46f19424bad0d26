package grading

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/services/grading"
	"gitlab.com/codegrader.net/internal/handlers"
	"gitlab.com/codegrader.net/internal/handlers/response"
)

// GradingHandler handles grading API requests
type GradingHandler struct {
	gradingService grading.IGradingService
	logger         primary.Logger
	maxBodyBytes   int64
}

var _ grading.IGradingService = &grading.GradingService{}

func NewGradingHandler(gradingService grading.IGradingService, maxBodyBytes int64, logger primary.Logger) *GradingHandler {
	return &GradingHandler{
		gradingService: gradingService,
		logger:         logger,
		maxBodyBytes:   maxBodyBytes,
	}
}

// RegisterRoutes registers the grading routes. throttle, when set, wraps the
// endpoints that run submitted code.
func (h *GradingHandler) RegisterRoutes(router *mux.Router, throttle mux.MiddlewareFunc) {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}
	router.Handle("/api/grade", throttle(http.HandlerFunc(h.Grade))).Methods("POST")
	router.HandleFunc("/api/validate", h.Validate).Methods("POST")
	router.HandleFunc("/api/challenges/{challengeId}/refresh", h.Refresh).Methods("POST")
	router.HandleFunc("/api/challenges/{challengeId}/completion", h.Completion).Methods("GET")
}

// Grade handles submission grading requests
func (h *GradingHandler) Grade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ChallengeID) == "" || req.Code == nil {
		response.WriteError(w, response.ErrorMessage{
			Message:    "challengeId and code are required",
			StatusCode: http.StatusBadRequest,
		})
		return
	}

	userID := req.UserID
	if sub, ok := handlers.UserIDFromContext(r.Context()); ok {
		userID = sub
	}

	verdict, err := h.gradingService.Grade(r.Context(), grading.GradeRequest{
		ChallengeID: req.ChallengeID,
		SourceCode:  *req.Code,
		UserID:      userID,
	})
	if err != nil {
		h.logger.Error("Failed to grade submission", "challengeId", req.ChallengeID, "error", err)
		response.WriteError(w, response.FromError(err))
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, newGradeResponse(verdict))
}

// Validate checks syntax only
func (h *GradingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Code == nil {
		response.WriteError(w, response.ErrorMessage{Message: "code is required", StatusCode: http.StatusBadRequest})
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, h.gradingService.Validate(*req.Code))
}

// Refresh evicts cached metadata for one challenge
func (h *GradingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	challengeID := mux.Vars(r)["challengeId"]

	if err := h.gradingService.Refresh(r.Context(), challengeID); err != nil {
		h.logger.Error("Failed to refresh challenge", "challengeId", challengeID, "error", err)
		response.WriteError(w, response.FromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Completion reports whether a user solved a challenge. The authenticated
// user wins over the userId query parameter.
func (h *GradingHandler) Completion(w http.ResponseWriter, r *http.Request) {
	challengeID := mux.Vars(r)["challengeId"]
	userID := r.URL.Query().Get("userId")
	if sub, ok := handlers.UserIDFromContext(r.Context()); ok {
		userID = sub
	}
	if userID == "" {
		response.WriteError(w, response.ErrorMessage{Message: "userId is required", StatusCode: http.StatusBadRequest})
		return
	}

	completed, err := h.gradingService.HasCompleted(r.Context(), userID, challengeID)
	if err != nil {
		h.logger.Error("Failed to look up completion", "challengeId", challengeID, "userId", userID, "error", err)
		response.WriteError(w, response.FromError(err))
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, CompletionResponse{
		ChallengeID: challengeID,
		UserID:      userID,
		Completed:   completed,
	})
}

func (h *GradingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("Failed to decode request", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteError(w, response.ErrorMessage{Message: "request body too large", StatusCode: http.StatusRequestEntityTooLarge})
			return false
		}
		response.WriteError(w, response.ErrorMessage{Message: "invalid request", StatusCode: http.StatusBadRequest})
		return false
	}
	return true
}
