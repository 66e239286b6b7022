package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidquest/internal/database"
	"kidquest/internal/models"
)

// ActivityRepository handles database operations for the activity log
type ActivityRepository struct {
	db database.DBTX
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db database.DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateActivity appends an entry. details must be a JSON document.
func (r *ActivityRepository) CreateActivity(ctx context.Context, userID int64, activityType, activityName, details string) (*models.Activity, error) {
	query := `
		INSERT INTO activities (user_id, activity_type, activity_name, details)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, userID, activityType, activityName, details)
	if err != nil {
		return nil, fmt.Errorf("failed to log activity: %w", err)
	}

	a := &models.Activity{}
	var raw string
	query = `
		SELECT id, user_id, activity_type, activity_name, details, created_at
		FROM activities
		WHERE id = ?
	`
	err = r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.UserID, &a.ActivityType, &a.ActivityName, &raw, &a.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %d vanished after insert", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read activity: %w", err)
	}
	a.Details = []byte(raw)
	return a, nil
}

// ListByUser returns up to limit entries for a user, newest first
func (r *ActivityRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	query := `
		SELECT id, user_id, activity_type, activity_name, details, created_at
		FROM activities
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		var raw string
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.ActivityName, &raw, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Details = []byte(raw)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
