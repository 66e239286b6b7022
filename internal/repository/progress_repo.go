package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidquest/internal/database"
	"kidquest/internal/models"
)

// ProgressRepository handles database operations for per-topic progress
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ProgressRepository) WithTx(tx *database.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

const progressColumns = `id, user_id, subject, topic, score, stars, completed, completed_at, created_at, updated_at`

func scanProgress(row interface{ Scan(...interface{}) error }) (*models.ProgressRecord, error) {
	p := &models.ProgressRecord{}
	var completedAt sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Subject,
		&p.Topic,
		&p.Score,
		&p.Stars,
		&p.Completed,
		&completedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return p, nil
}

// GetRecord retrieves the record for a (user, subject, topic), or nil if none exists
func (r *ProgressRepository) GetRecord(ctx context.Context, userID int64, subject, topic string) (*models.ProgressRecord, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = ? AND subject = ? AND topic = ?`
	p, err := scanProgress(r.db.QueryRowContext(ctx, query, userID, subject, topic))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// InsertCompleted creates a completed record
func (r *ProgressRepository) InsertCompleted(ctx context.Context, userID int64, subject, topic string, score, stars int) error {
	query := `
		INSERT INTO progress (user_id, subject, topic, score, stars, completed, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, subject, topic, score, stars, true); err != nil {
		return fmt.Errorf("failed to create progress: %w", err)
	}
	return nil
}

// UpdateCompleted keeps the best score, adds the stars and marks the record completed
func (r *ProgressRepository) UpdateCompleted(ctx context.Context, id int64, score, stars int) error {
	query := `
		UPDATE progress
		SET score = CASE WHEN score < ? THEN ? ELSE score END,
			stars = stars + ?,
			completed = ?,
			completed_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, score, score, stars, true, id); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// CountCompleted counts the completed topics a user has in a subject
func (r *ProgressRepository) CountCompleted(ctx context.Context, userID int64, subject string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM progress WHERE user_id = ? AND subject = ? AND completed = ?`
	if err := r.db.QueryRowContext(ctx, query, userID, subject, true).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed topics: %w", err)
	}
	return count, nil
}

// ListByUser returns a user's records, newest first
func (r *ProgressRepository) ListByUser(ctx context.Context, userID int64) ([]models.ProgressRecord, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	records := []models.ProgressRecord{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

const childSummaryQuery = `
	SELECT u.id, u.name, u.email, u.avatar,
		(SELECT COUNT(*) FROM progress p WHERE p.user_id = u.id),
		(SELECT COALESCE(SUM(p.stars), 0) FROM progress p WHERE p.user_id = u.id),
		(SELECT COUNT(*) FROM badges b WHERE b.user_id = u.id)
	FROM users u
`

// ListChildSummaries aggregates every kid's progress and badges
func (r *ProgressRepository) ListChildSummaries(ctx context.Context) ([]models.ChildSummary, error) {
	query := childSummaryQuery + `WHERE u.role = 'kid' ORDER BY u.name, u.id`
	return r.listSummaries(ctx, query)
}

// ListChildSummariesForParent aggregates the kids linked to a parent
func (r *ProgressRepository) ListChildSummariesForParent(ctx context.Context, parentID int64) ([]models.ChildSummary, error) {
	query := childSummaryQuery + `WHERE u.role = 'kid' AND u.parent_id = ? ORDER BY u.name, u.id`
	return r.listSummaries(ctx, query, parentID)
}

func (r *ProgressRepository) listSummaries(ctx context.Context, query string, args ...interface{}) ([]models.ChildSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize children: %w", err)
	}
	defer rows.Close()

	children := []models.ChildSummary{}
	for rows.Next() {
		var c models.ChildSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Avatar, &c.TotalActivities, &c.TotalStars, &c.TotalBadges); err != nil {
			return nil, fmt.Errorf("failed to scan child summary: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}
