package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kidquest/internal/security"
	"kidquest/internal/service"
	"kidquest/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// respondJSON writes v as the JSON response body
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// respondWithError writes an error body and logs err when present
func respondWithError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		logger.Error(logMsg,
			zap.Error(err),
			zap.Int("status", status),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path))
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps a service error to its HTTP status.
// Unrecognised errors become a 500 carrying fallbackMsg.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, fallbackMsg string) {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, r, logger, status, fallbackMsg, "", err)
		return
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidRequestType),
		errors.Is(err, service.ErrRoleMismatch),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrAlreadyLinked),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrRequestNotPending),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInappropriateContent),
		errors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a request body into dst and runs its validate tags
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return validation.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	return validation.Struct(dst)
}
