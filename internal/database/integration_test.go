package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	tables := []string{"users", "link_requests", "progress", "badges", "activities",
		"community_posts", "community_reactions", "bad_words"}

	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running migrations a second time is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Errorf("Second migration run failed: %v", err)
	}
}

// TestInTx tests commit and rollback through the transaction helper
func TestInTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.InTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecReturningID(ctx, "INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
			"Pat", "pat@example.com", "hashedpass", "parent")
		return err
	})
	if err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", "pat@example.com").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user, got %d", count)
	}

	boom := errors.New("boom")
	err = db.InTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
			"Sam", "sam@example.com", "hashedpass", "kid"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected fn error to be returned, got %v", err)
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", "sam@example.com").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users after rollback, got %d", count)
	}
}

// TestInsertIgnoreBadges checks the unique backstop on badges
func TestInsertIgnoreBadges(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	userID, err := db.ExecReturningID(ctx, "INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
		"Kim", "kim@example.com", "hashedpass", "kid")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	query := db.Dialect.InsertIgnore("INSERT INTO badges (user_id, badge_name, badge_type) VALUES (?, ?, ?)")
	for i, want := range []int64{1, 0} {
		result, err := db.ExecContext(ctx, query, userID, "math Beginner", "math")
		if err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
		n, _ := result.RowsAffected()
		if n != want {
			t.Errorf("Insert %d affected %d rows, want %d", i, n, want)
		}
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
		"Concurrent", "concurrent@example.com", "hashedpass", "parent")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			var name string
			err := db.QueryRowContext(ctx, "SELECT name FROM users WHERE email = ?", "concurrent@example.com").Scan(&name)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
			}
			if name != "Concurrent" {
				t.Errorf("Expected name 'Concurrent', got '%s'", name)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

// TestSeedBadWords seeds from a local server and checks the second run is skipped
func TestSeedBadWords(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, "Darn\n\nheck\ndarn\n")
	}))
	defer srv.Close()

	for i := 0; i < 2; i++ {
		if err := db.SeedBadWords(ctx, srv.Client(), srv.URL, zap.NewNop()); err != nil {
			t.Fatalf("SeedBadWords() error = %v", err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bad_words").Scan(&count); err != nil {
		t.Fatalf("Failed to count bad words: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 distinct words, got %d", count)
	}
	if hits != 1 {
		t.Errorf("Expected list to be downloaded once, got %d", hits)
	}
}

// TestSeedBadWordsBadStatus reports non-200 responses
func TestSeedBadWordsBadStatus(t *testing.T) {
	db := openTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := db.SeedBadWords(context.Background(), srv.Client(), srv.URL, zap.NewNop()); err == nil {
		t.Error("Expected an error for a 404 response")
	}
}
