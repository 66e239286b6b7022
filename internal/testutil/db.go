// Package testutil provides fixtures for tests that need a migrated database.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"kidquest/internal/database"
	"kidquest/internal/models"
	"kidquest/internal/repository"
)

var emailSeq atomic.Int64

// NewDB opens a fresh SQLite database in a temp dir with all migrations applied
func NewDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "kidquest_test.db"))
	if err != nil {
		t.Fatalf("NewDB() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// CreateUser inserts a user with a unique email derived from name
func CreateUser(t *testing.T, db *database.DB, name, role string) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s.%d@example.com", name, emailSeq.Add(1))
	user, err := repository.NewUserRepository(db).CreateUser(context.Background(), name, email, "", role, "robot1")
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return user
}

// Link sets kid.parent_id directly, bypassing the request workflow
func Link(t *testing.T, db *database.DB, kid, parent *models.User) {
	t.Helper()
	if err := repository.NewUserRepository(db).SetParent(context.Background(), kid.ID, parent.ID); err != nil {
		t.Fatalf("Link() failed: %v", err)
	}
	kid.ParentID = &parent.ID
}
