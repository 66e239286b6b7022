package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidquest/internal/database"
	"kidquest/internal/models"
)

// LinkRequestRepository handles database operations for parent-kid link requests
type LinkRequestRepository struct {
	db database.DBTX
}

// NewLinkRequestRepository creates a new link request repository
func NewLinkRequestRepository(db database.DBTX) *LinkRequestRepository {
	return &LinkRequestRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *LinkRequestRepository) WithTx(tx *database.Tx) *LinkRequestRepository {
	return &LinkRequestRepository{db: tx}
}

// CreateRequest inserts a pending request
func (r *LinkRequestRepository) CreateRequest(ctx context.Context, kidID, parentID int64, requestedBy string) (*models.LinkRequest, error) {
	query := `
		INSERT INTO link_requests (kid_id, parent_id, requested_by, status)
		VALUES (?, ?, ?, 'pending')
	`
	id, err := r.db.ExecReturningID(ctx, query, kidID, parentID, requestedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create link request: %w", err)
	}

	return r.GetRequest(ctx, id)
}

// GetRequest retrieves a request by ID, or nil if none exists
func (r *LinkRequestRepository) GetRequest(ctx context.Context, id int64) (*models.LinkRequest, error) {
	query := `
		SELECT id, kid_id, parent_id, requested_by, status, created_at, updated_at
		FROM link_requests
		WHERE id = ?
	`
	req := &models.LinkRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.KidID,
		&req.ParentID,
		&req.RequestedBy,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link request: %w", err)
	}
	return req, nil
}

// PairHasRequest reports whether a request exists for the pair.
// With pendingOnly set, only pending requests count.
func (r *LinkRequestRepository) PairHasRequest(ctx context.Context, kidID, parentID int64, pendingOnly bool) (bool, error) {
	query := `SELECT COUNT(*) FROM link_requests WHERE kid_id = ? AND parent_id = ?`
	if pendingOnly {
		query += ` AND status = 'pending'`
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, kidID, parentID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existing requests: %w", err)
	}
	return count > 0, nil
}

// ListPendingForKid returns pending requests addressed to or sent by a kid, newest first
func (r *LinkRequestRepository) ListPendingForKid(ctx context.Context, kidID int64) ([]models.PendingRequest, error) {
	query := `
		SELECT lr.id, lr.kid_id, lr.parent_id, lr.requested_by, lr.status, lr.created_at, lr.updated_at,
			u.name, u.email
		FROM link_requests lr
		JOIN users u ON lr.parent_id = u.id
		WHERE lr.kid_id = ? AND lr.status = 'pending'
		ORDER BY lr.created_at DESC, lr.id DESC
	`
	return r.listPending(ctx, query, kidID, func(p *models.PendingRequest) []interface{} {
		return []interface{}{&p.ParentName, &p.ParentEmail}
	})
}

// ListPendingForParent returns pending requests addressed to or sent by a parent, newest first
func (r *LinkRequestRepository) ListPendingForParent(ctx context.Context, parentID int64) ([]models.PendingRequest, error) {
	query := `
		SELECT lr.id, lr.kid_id, lr.parent_id, lr.requested_by, lr.status, lr.created_at, lr.updated_at,
			u.name, u.email
		FROM link_requests lr
		JOIN users u ON lr.kid_id = u.id
		WHERE lr.parent_id = ? AND lr.status = 'pending'
		ORDER BY lr.created_at DESC, lr.id DESC
	`
	return r.listPending(ctx, query, parentID, func(p *models.PendingRequest) []interface{} {
		return []interface{}{&p.KidName, &p.KidEmail}
	})
}

func (r *LinkRequestRepository) listPending(ctx context.Context, query string, userID int64, counterParty func(*models.PendingRequest) []interface{}) ([]models.PendingRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	requests := []models.PendingRequest{}
	for rows.Next() {
		var p models.PendingRequest
		dest := []interface{}{
			&p.ID, &p.KidID, &p.ParentID, &p.RequestedBy, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		}
		dest = append(dest, counterParty(&p)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan pending request: %w", err)
		}
		requests = append(requests, p)
	}
	return requests, rows.Err()
}

// ResolvePending moves a pending request to a terminal status.
// It reports false when the request was no longer pending.
func (r *LinkRequestRepository) ResolvePending(ctx context.Context, id int64, status string) (bool, error) {
	query := `
		UPDATE link_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return false, fmt.Errorf("failed to update link request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update link request: %w", err)
	}
	return n > 0, nil
}
