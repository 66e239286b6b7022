package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"kidquest/internal/service"
)

// ProgressHandler serves the progress ledger and activity log endpoints
type ProgressHandler struct {
	progressService *service.ProgressService
	activityService *service.ActivityService
	logger          *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService, activityService *service.ActivityService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		activityService: activityService,
		logger:          logger,
	}
}

type progressUpdateBody struct {
	Subject string `json:"subject" validate:"required"`
	Topic   string `json:"topic" validate:"required"`
	Score   int    `json:"score" validate:"min=0"`
	Stars   int    `json:"stars" validate:"min=0"`
}

type logActivityBody struct {
	ActivityType string          `json:"activityType" validate:"required"`
	ActivityName string          `json:"activityName" validate:"required"`
	Details      json.RawMessage `json:"details"`
}

// GetProgress returns the progress bundle for ?userId=, defaulting to the caller
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	userID, ok := parseUserIDQuery(w, r, caller.UserID)
	if !ok {
		return
	}

	bundle, err := h.progressService.GetProgress(r.Context(), caller, userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to get progress")
		return
	}

	respondJSON(w, http.StatusOK, bundle)
}

// UpdateProgress records a completed topic for the caller
func (h *ProgressHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var body progressUpdateBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to update progress")
		return
	}

	update, err := h.progressService.RecordProgress(r.Context(), caller.UserID, body.Subject, body.Topic, body.Score, body.Stars)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to update progress")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Progress updated!",
		"progress": update.Progress,
		"badge":    update.Badge,
	})
}

// Children summarizes progress for a parent's kids or, for teachers, every kid
func (h *ProgressHandler) Children(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	children, err := h.progressService.GetChildrenSummary(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to get children progress")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"children": children})
}

// ListActivities returns activities for ?userId=, defaulting to the caller
func (h *ProgressHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	userID, ok := parseUserIDQuery(w, r, caller.UserID)
	if !ok {
		return
	}

	// A malformed limit falls back to the default
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	activities, err := h.activityService.ListActivities(r.Context(), caller, userID, limit)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to get activities")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

// LogActivity appends an activity for the caller
func (h *ProgressHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var body logActivityBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to log activity")
		return
	}

	activity, err := h.activityService.LogActivity(r.Context(), caller.UserID, body.ActivityType, body.ActivityName, body.Details)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to log activity")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Activity logged",
		"activity": activity,
	})
}

func parseUserIDQuery(w http.ResponseWriter, r *http.Request, fallback int64) (int64, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		return fallback, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid userId"})
		return 0, false
	}
	return id, true
}
