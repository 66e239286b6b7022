package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"kidquest/internal/database"
)

// BackupVersion identifies the backup file layout
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version       string           `json:"version"`
	ExportedAt    time.Time        `json:"exported_at"`
	DatabaseType  string           `json:"database_type"`
	Users         []UserBackup     `json:"users"`
	LinkRequests  []LinkBackup     `json:"link_requests"`
	Progress      []ProgressBackup `json:"progress"`
	Badges        []BadgeBackup    `json:"badges"`
	Activities    []ActivityBackup `json:"activities"`
	Posts         []PostBackup     `json:"community_posts"`
	PostReactions []ReactionBackup `json:"community_reactions"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Role          string    `json:"role"`
	ParentID      *int64    `json:"parent_id"`
	Avatar        string    `json:"avatar"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LinkBackup represents a link request for backup
type LinkBackup struct {
	ID          int64     `json:"id"`
	KidID       int64     `json:"kid_id"`
	ParentID    int64     `json:"parent_id"`
	RequestedBy string    `json:"requested_by"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProgressBackup represents a progress record for backup
type ProgressBackup struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Subject     string     `json:"subject"`
	Topic       string     `json:"topic"`
	Score       int        `json:"score"`
	Stars       int        `json:"stars"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BadgeBackup represents a badge for backup
type BadgeBackup struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	BadgeName string    `json:"badge_name"`
	BadgeType string    `json:"badge_type"`
	EarnedAt  time.Time `json:"earned_at"`
}

// ActivityBackup represents an activity log entry for backup
type ActivityBackup struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	ActivityType string          `json:"activity_type"`
	ActivityName string          `json:"activity_name"`
	Details      json.RawMessage `json:"details"`
	Timestamp    time.Time       `json:"timestamp"`
}

// PostBackup represents a community post for backup
type PostBackup struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	PostType   string     `json:"post_type"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	ImageURL   string     `json:"image_url"`
	Approved   bool       `json:"approved"`
	ApprovedBy *int64     `json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReactionBackup represents a post reaction for backup
type ReactionBackup struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// backupTables lists tables in dependency order
var backupTables = []string{
	"users",
	"link_requests",
	"progress",
	"badges",
	"activities",
	"community_posts",
	"community_reactions",
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export writes a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}

	s.logger.Info("Database exported", zap.String("path", outputPath))
	return nil
}

// ExportToWriter encodes a complete backup of the database to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
	}

	exports := []struct {
		name string
		fn   func(context.Context, *BackupData) error
	}{
		{"users", s.exportUsers},
		{"link requests", s.exportLinkRequests},
		{"progress", s.exportProgress},
		{"badges", s.exportBadges},
		{"activities", s.exportActivities},
		{"posts", s.exportPosts},
		{"reactions", s.exportReactions},
	}
	for _, e := range exports {
		if err := e.fn(ctx, backup); err != nil {
			return fmt.Errorf("failed to export %s: %w", e.name, err)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("Backup written",
		zap.Int("users", len(backup.Users)),
		zap.Int("link_requests", len(backup.LinkRequests)),
		zap.Int("progress", len(backup.Progress)),
		zap.Int("badges", len(backup.Badges)),
		zap.Int("activities", len(backup.Activities)),
		zap.Int("posts", len(backup.Posts)),
		zap.Int("reactions", len(backup.PostReactions)))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a backup in a single transaction
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.Info("Importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
		zap.String("source_database", backup.DatabaseType))

	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		imports := []struct {
			name string
			fn   func(context.Context, *database.Tx, *BackupData) error
		}{
			{"users", importUsers},
			{"link requests", importLinkRequests},
			{"progress", importProgress},
			{"badges", importBadges},
			{"activities", importActivities},
			{"posts", importPosts},
			{"reactions", importReactions},
		}
		for _, i := range imports {
			if err := i.fn(ctx, tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", i.name, err)
			}
		}
		return s.resetSequences(ctx, tx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Database import completed")
	return nil
}

// Clear deletes all exported data, children first
func (s *BackupService) Clear(ctx context.Context) error {
	return s.db.InTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET parent_id = NULL"); err != nil {
			return fmt.Errorf("failed to detach kids: %w", err)
		}
		for i := len(backupTables) - 1; i >= 0; i-- {
			table := backupTables[i]
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			s.logger.Info("Cleared table", zap.String("table", table))
		}
		return nil
	})
}

// resetSequences moves id generators past imported ids where the database needs it
func (s *BackupService) resetSequences(ctx context.Context, tx *database.Tx) error {
	for _, table := range backupTables {
		query := s.db.Dialect.ResetSequence(table)
		if query == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

func (s *BackupService) exportUsers(ctx context.Context, backup *BackupData) error {
	query := `SELECT id, name, email, password_hash, role, parent_id, avatar,
		COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at
		FROM users ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		var parentID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &parentID, &u.Avatar,
			&u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		if parentID.Valid {
			u.ParentID = &parentID.Int64
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportLinkRequests(ctx context.Context, backup *BackupData) error {
	query := `SELECT id, kid_id, parent_id, requested_by, status, created_at, updated_at FROM link_requests ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LinkBackup
		if err := rows.Scan(&l.ID, &l.KidID, &l.ParentID, &l.RequestedBy, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return err
		}
		backup.LinkRequests = append(backup.LinkRequests, l)
	}
	return rows.Err()
}

func (s *BackupService) exportProgress(ctx context.Context, backup *BackupData) error {
	query := `SELECT id, user_id, subject, topic, score, stars, completed, completed_at, created_at, updated_at
		FROM progress ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProgressBackup
		var completedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.Subject, &p.Topic, &p.Score, &p.Stars, &p.Completed,
			&completedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		if completedAt.Valid {
			p.CompletedAt = &completedAt.Time
		}
		backup.Progress = append(backup.Progress, p)
	}
	return rows.Err()
}

func (s *BackupService) exportBadges(ctx context.Context, backup *BackupData) error {
	query := `SELECT id, user_id, badge_name, badge_type, earned_at FROM badges ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b BadgeBackup
		if err := rows.Scan(&b.ID, &b.UserID, &b.BadgeName, &b.BadgeType, &b.EarnedAt); err != nil {
			return err
		}
		backup.Badges = append(backup.Badges, b)
	}
	return rows.Err()
}

func (s *BackupService) exportActivities(ctx context.Context, backup *BackupData) error {
	query := `SELECT id, user_id, activity_type, activity_name, details, created_at FROM activities ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a ActivityBackup
		var details string
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.ActivityName, &details, &a.Timestamp); err != nil {
			return err
		}
		a.Details = json.RawMessage(details)
		backup.Activities = append(backup.Activities, a)
	}
	return rows.Err()
}

func (s *BackupService) exportPosts(ctx context.Context, backup *BackupData) error {
	query := `SELECT id, user_id, post_type, title, content, image_url, approved, approved_by, approved_at, created_at
		FROM community_posts ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PostBackup
		var approvedBy sql.NullInt64
		var approvedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.PostType, &p.Title, &p.Content, &p.ImageURL, &p.Approved,
			&approvedBy, &approvedAt, &p.CreatedAt); err != nil {
			return err
		}
		if approvedBy.Valid {
			p.ApprovedBy = &approvedBy.Int64
		}
		if approvedAt.Valid {
			p.ApprovedAt = &approvedAt.Time
		}
		backup.Posts = append(backup.Posts, p)
	}
	return rows.Err()
}

func (s *BackupService) exportReactions(ctx context.Context, backup *BackupData) error {
	query := `SELECT id, post_id, user_id, emoji, created_at FROM community_reactions ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r ReactionBackup
		if err := rows.Scan(&r.ID, &r.PostID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			return err
		}
		backup.PostReactions = append(backup.PostReactions, r)
	}
	return rows.Err()
}

// importUsers inserts users first and links kids afterwards so parent rows exist
func importUsers(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	for _, u := range backup.Users {
		query := `INSERT INTO users (id, name, email, password_hash, role, avatar, oauth_provider, oauth_subject, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Avatar,
			nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	for _, u := range backup.Users {
		if u.ParentID == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, "UPDATE users SET parent_id = ? WHERE id = ?", *u.ParentID, u.ID); err != nil {
			return fmt.Errorf("parent of user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importLinkRequests(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	for _, l := range backup.LinkRequests {
		query := `INSERT INTO link_requests (id, kid_id, parent_id, requested_by, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, l.ID, l.KidID, l.ParentID, l.RequestedBy, l.Status, l.CreatedAt, l.UpdatedAt); err != nil {
			return fmt.Errorf("link request %d: %w", l.ID, err)
		}
	}
	return nil
}

func importProgress(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	for _, p := range backup.Progress {
		query := `INSERT INTO progress (id, user_id, subject, topic, score, stars, completed, completed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, p.ID, p.UserID, p.Subject, p.Topic, p.Score, p.Stars, p.Completed,
			nullTime(p.CompletedAt), p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("progress %d: %w", p.ID, err)
		}
	}
	return nil
}

func importBadges(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	for _, b := range backup.Badges {
		query := `INSERT INTO badges (id, user_id, badge_name, badge_type, earned_at) VALUES (?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, b.ID, b.UserID, b.BadgeName, b.BadgeType, b.EarnedAt); err != nil {
			return fmt.Errorf("badge %d: %w", b.ID, err)
		}
	}
	return nil
}

func importActivities(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	for _, a := range backup.Activities {
		details := string(a.Details)
		if details == "" || details == "null" {
			details = "{}"
		}
		query := `INSERT INTO activities (id, user_id, activity_type, activity_name, details, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, a.ID, a.UserID, a.ActivityType, a.ActivityName, details, a.Timestamp); err != nil {
			return fmt.Errorf("activity %d: %w", a.ID, err)
		}
	}
	return nil
}

func importPosts(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	for _, p := range backup.Posts {
		var approvedBy interface{}
		if p.ApprovedBy != nil {
			approvedBy = *p.ApprovedBy
		}
		query := `INSERT INTO community_posts (id, user_id, post_type, title, content, image_url, approved, approved_by, approved_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, p.ID, p.UserID, p.PostType, p.Title, p.Content, p.ImageURL, p.Approved,
			approvedBy, nullTime(p.ApprovedAt), p.CreatedAt); err != nil {
			return fmt.Errorf("post %d: %w", p.ID, err)
		}
	}
	return nil
}

func importReactions(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	for _, r := range backup.PostReactions {
		query := `INSERT INTO community_reactions (id, post_id, user_id, emoji, created_at) VALUES (?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, r.ID, r.PostID, r.UserID, r.Emoji, r.CreatedAt); err != nil {
			return fmt.Errorf("reaction %d: %w", r.ID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
