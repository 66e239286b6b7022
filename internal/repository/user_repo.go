package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kidquest/internal/database"
	"kidquest/internal/models"
)

// UserRepository handles database operations for user accounts
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *UserRepository) WithTx(tx *database.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `id, name, email, password_hash, role, parent_id, avatar,
	COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	var parentID sql.NullInt64
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&parentID,
		&user.Avatar,
		&user.OAuthProvider,
		&user.OAuthSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		user.ParentID = &parentID.Int64
	}
	return user, nil
}

// CreateUser inserts a new password account
func (r *UserRepository) CreateUser(ctx context.Context, name, email, passwordHash, role, avatar string) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, role, avatar)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, name, email, passwordHash, role, avatar)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.GetUserByID(ctx, id)
}

// CreateOAuthUser inserts an account that signs in through an identity provider
func (r *UserRepository) CreateOAuthUser(ctx context.Context, name, email, role, avatar, provider, subject string) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, role, avatar, oauth_provider, oauth_subject)
		VALUES (?, ?, '', ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, name, email, role, avatar, provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}

	return r.GetUserByID(ctx, id)
}

// GetUserByEmail retrieves a user by email address, or nil if none exists
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID, or nil if none exists
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByOAuth retrieves a user by provider identity, or nil if none exists
func (r *UserRepository) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE oauth_provider = ? AND oauth_subject = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, provider, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by oauth identity: %w", err)
	}
	return user, nil
}

// LinkOAuthIdentity attaches a provider identity to an existing account
func (r *UserRepository) LinkOAuthIdentity(ctx context.Context, userID int64, provider, subject string) error {
	query := `
		UPDATE users
		SET oauth_provider = ?, oauth_subject = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, provider, subject, userID); err != nil {
		return fmt.Errorf("failed to link oauth identity: %w", err)
	}
	return nil
}

// SetParent links a kid to a parent
func (r *UserRepository) SetParent(ctx context.Context, kidID, parentID int64) error {
	query := `
		UPDATE users
		SET parent_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND role = 'kid'
	`
	if _, err := r.db.ExecContext(ctx, query, parentID, kidID); err != nil {
		return fmt.Errorf("failed to set parent: %w", err)
	}
	return nil
}

// ClearParent unlinks a kid only if it is currently linked to parentID.
// It reports whether a link was removed.
func (r *UserRepository) ClearParent(ctx context.Context, kidID, parentID int64) (bool, error) {
	query := `
		UPDATE users
		SET parent_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND parent_id = ?
	`
	result, err := r.db.ExecContext(ctx, query, kidID, parentID)
	if err != nil {
		return false, fmt.Errorf("failed to clear parent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to clear parent: %w", err)
	}
	return n > 0, nil
}

// IsLinked reports whether kidID is linked to parentID
func (r *UserRepository) IsLinked(ctx context.Context, kidID, parentID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE id = ? AND parent_id = ? AND role = 'kid'`
	if err := r.db.QueryRowContext(ctx, query, kidID, parentID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return count > 0, nil
}

// ListKidsByParent returns the kids linked to a parent ordered by name
func (r *UserRepository) ListKidsByParent(ctx context.Context, parentID int64) ([]models.LinkedKid, error) {
	query := `
		SELECT id, name, email, avatar, created_at
		FROM users
		WHERE parent_id = ? AND role = 'kid'
		ORDER BY name, id
	`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list kids: %w", err)
	}
	defer rows.Close()

	kids := []models.LinkedKid{}
	for rows.Next() {
		var kid models.LinkedKid
		if err := rows.Scan(&kid.ID, &kid.Name, &kid.Email, &kid.Avatar, &kid.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		kids = append(kids, kid)
	}
	return kids, rows.Err()
}
