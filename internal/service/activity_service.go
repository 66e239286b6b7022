package service

import (
	"context"
	"encoding/json"
	"strings"

	"kidquest/internal/models"
	"kidquest/internal/repository"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityService appends to and reads the activity log
type ActivityService struct {
	activityRepo *repository.ActivityRepository
}

// NewActivityService creates a new activity service
func NewActivityService(activityRepo *repository.ActivityRepository) *ActivityService {
	return &ActivityService{activityRepo: activityRepo}
}

// ListActivities returns targetUserID's newest activities. Kids may only read their own.
// A non-positive limit means the default; limits above the maximum are clamped.
func (s *ActivityService) ListActivities(ctx context.Context, caller models.Identity, targetUserID int64, limit int) ([]models.Activity, error) {
	if caller.Role == models.RoleKid && targetUserID != caller.UserID {
		return nil, ErrForbidden
	}
	return s.activityRepo.ListByUser(ctx, targetUserID, clampLimit(limit))
}

// LogActivity appends an activity for userID. details must be a JSON object or empty.
func (s *ActivityService) LogActivity(ctx context.Context, userID int64, activityType, activityName string, details json.RawMessage) (*models.Activity, error) {
	activityType = strings.TrimSpace(activityType)
	activityName = strings.TrimSpace(activityName)
	if activityType == "" || activityName == "" {
		return nil, withMessage(ErrInvalidInput, "activityType and activityName are required")
	}

	encoded := "{}"
	if trimmed := strings.TrimSpace(string(details)); trimmed != "" && trimmed != "null" {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, withMessage(ErrInvalidInput, "details must be a JSON object")
		}
		encoded = trimmed
	}

	return s.activityRepo.CreateActivity(ctx, userID, activityType, activityName, encoded)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}
