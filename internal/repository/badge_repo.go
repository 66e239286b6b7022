package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidquest/internal/database"
	"kidquest/internal/models"
)

// BadgeRepository handles database operations for badges
type BadgeRepository struct {
	db database.DBTX
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db database.DBTX) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *BadgeRepository) WithTx(tx *database.Tx) *BadgeRepository {
	return &BadgeRepository{db: tx}
}

// AwardBadge inserts a badge unless the user already holds one with that name.
// It reports whether a new badge was stored.
func (r *BadgeRepository) AwardBadge(ctx context.Context, userID int64, name, badgeType string) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO badges (user_id, badge_name, badge_type) VALUES (?, ?, ?)")
	result, err := r.db.ExecContext(ctx, query, userID, name, badgeType)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}
	return n > 0, nil
}

// HasBadge reports whether the user holds the named badge
func (r *BadgeRepository) HasBadge(ctx context.Context, userID int64, name string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM badges WHERE user_id = ? AND badge_name = ?`
	if err := r.db.QueryRowContext(ctx, query, userID, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check badge: %w", err)
	}
	return count > 0, nil
}

// GetBadge returns the named badge, or nil if the user does not hold it
func (r *BadgeRepository) GetBadge(ctx context.Context, userID int64, name string) (*models.Badge, error) {
	query := `
		SELECT id, user_id, badge_name, badge_type, earned_at
		FROM badges
		WHERE user_id = ? AND badge_name = ?
	`
	b := &models.Badge{}
	err := r.db.QueryRowContext(ctx, query, userID, name).Scan(&b.ID, &b.UserID, &b.BadgeName, &b.BadgeType, &b.EarnedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	return b, nil
}

// ListByUser returns a user's badges, newest first
func (r *BadgeRepository) ListByUser(ctx context.Context, userID int64) ([]models.Badge, error) {
	query := `
		SELECT id, user_id, badge_name, badge_type, earned_at
		FROM badges
		WHERE user_id = ?
		ORDER BY earned_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	badges := []models.Badge{}
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.UserID, &b.BadgeName, &b.BadgeType, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}
