package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidquest/internal/database"
	"kidquest/internal/models"
)

// CommunityRepository handles database operations for posts and reactions
type CommunityRepository struct {
	db database.DBTX
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db database.DBTX) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *CommunityRepository) WithTx(tx *database.Tx) *CommunityRepository {
	return &CommunityRepository{db: tx}
}

const postColumns = `cp.id, cp.user_id, cp.post_type, cp.title, cp.content, cp.image_url,
	cp.approved, cp.approved_by, cp.approved_at, cp.created_at, u.name, u.avatar,
	(SELECT COUNT(*) FROM community_reactions cr WHERE cr.post_id = cp.id)`

func scanPost(row interface{ Scan(...interface{}) error }) (*models.CommunityPost, error) {
	p := &models.CommunityPost{}
	var approvedBy sql.NullInt64
	var approvedAt sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PostType,
		&p.Title,
		&p.Content,
		&p.ImageURL,
		&p.Approved,
		&approvedBy,
		&approvedAt,
		&p.CreatedAt,
		&p.AuthorName,
		&p.AuthorAvatar,
		&p.ReactionCount,
	)
	if err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		p.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		p.ApprovedAt = &approvedAt.Time
	}
	return p, nil
}

// CreatePost inserts an unapproved post
func (r *CommunityRepository) CreatePost(ctx context.Context, userID int64, postType, title, content, imageURL string) (*models.CommunityPost, error) {
	query := `
		INSERT INTO community_posts (user_id, post_type, title, content, image_url, approved)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, userID, postType, title, content, imageURL, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return r.GetPost(ctx, id)
}

// GetPost retrieves a post with its author, or nil if none exists
func (r *CommunityRepository) GetPost(ctx context.Context, id int64) (*models.CommunityPost, error) {
	query := `SELECT ` + postColumns + `
		FROM community_posts cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.id = ?`
	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// ListApproved returns the newest approved posts
func (r *CommunityRepository) ListApproved(ctx context.Context, limit int) ([]models.CommunityPost, error) {
	query := `SELECT ` + postColumns + `
		FROM community_posts cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.approved = ?
		ORDER BY cp.created_at DESC, cp.id DESC
		LIMIT ?`
	return r.listPosts(ctx, query, true, limit)
}

// ListPending returns every unapproved post
func (r *CommunityRepository) ListPending(ctx context.Context) ([]models.CommunityPost, error) {
	query := `SELECT ` + postColumns + `
		FROM community_posts cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.approved = ?
		ORDER BY cp.created_at DESC, cp.id DESC`
	return r.listPosts(ctx, query, false)
}

// ListPendingForParent returns unapproved posts written by a parent's kids
func (r *CommunityRepository) ListPendingForParent(ctx context.Context, parentID int64) ([]models.CommunityPost, error) {
	query := `SELECT ` + postColumns + `
		FROM community_posts cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.approved = ? AND u.parent_id = ?
		ORDER BY cp.created_at DESC, cp.id DESC`
	return r.listPosts(ctx, query, false, parentID)
}

func (r *CommunityRepository) listPosts(ctx context.Context, query string, args ...interface{}) ([]models.CommunityPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.CommunityPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// ApprovePost marks a post approved by approverID
func (r *CommunityRepository) ApprovePost(ctx context.Context, id, approverID int64) error {
	query := `
		UPDATE community_posts
		SET approved = ?, approved_by = ?, approved_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, true, approverID, id); err != nil {
		return fmt.Errorf("failed to approve post: %w", err)
	}
	return nil
}

// DeletePost removes a post together with its reactions
func (r *CommunityRepository) DeletePost(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM community_reactions WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete reactions: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM community_posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// RemoveReaction deletes a reaction and reports whether one existed
func (r *CommunityRepository) RemoveReaction(ctx context.Context, postID, userID int64, emoji string) (bool, error) {
	query := `DELETE FROM community_reactions WHERE post_id = ? AND user_id = ? AND emoji = ?`
	result, err := r.db.ExecContext(ctx, query, postID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}
	return n > 0, nil
}

// AddReaction stores a reaction, ignoring a duplicate
func (r *CommunityRepository) AddReaction(ctx context.Context, postID, userID int64, emoji string) error {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO community_reactions (post_id, user_id, emoji) VALUES (?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, postID, userID, emoji); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

// ListReactionCounts groups a post's reactions by emoji
func (r *CommunityRepository) ListReactionCounts(ctx context.Context, postID int64) ([]models.ReactionCount, error) {
	query := `
		SELECT emoji, COUNT(*)
		FROM community_reactions
		WHERE post_id = ?
		GROUP BY emoji
		ORDER BY emoji
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	defer rows.Close()

	counts := []models.ReactionCount{}
	for rows.Next() {
		var c models.ReactionCount
		if err := rows.Scan(&c.Emoji, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
