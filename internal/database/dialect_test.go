package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidquest/internal/config"
)

func TestDialectBasics(t *testing.T) {
	tests := []struct {
		dialect        Dialect
		name           string
		driver         string
		lastInsertID   bool
		resetsSequence bool
	}{
		{NewSQLiteDialect(), "sqlite", "sqlite3", true, false},
		{NewPostgresDialect(), "postgres", "postgres", false, true},
		{NewMySQLDialect(), "mysql", "mysql", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.dialect.Name())
			assert.Equal(t, tt.driver, tt.dialect.DriverName())
			assert.Equal(t, tt.lastInsertID, tt.dialect.SupportsLastInsertId())
			assert.Equal(t, tt.resetsSequence, tt.dialect.ResetSequence("badges") != "")
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{"sqlite unchanged", NewSQLiteDialect(),
			"SELECT * FROM users WHERE id = ?",
			"SELECT * FROM users WHERE id = ?"},
		{"postgres numbers placeholders", NewPostgresDialect(),
			"UPDATE link_requests SET status = ? WHERE id = ? AND status = ?",
			"UPDATE link_requests SET status = $1 WHERE id = $2 AND status = $3"},
		{"postgres skips quoted literals", NewPostgresDialect(),
			"SELECT * FROM community_posts WHERE title = 'why?' AND user_id = ?",
			"SELECT * FROM community_posts WHERE title = 'why?' AND user_id = $1"},
		{"mysql unchanged", NewMySQLDialect(),
			"UPDATE users SET parent_id = ? WHERE id = ?",
			"UPDATE users SET parent_id = ? WHERE id = ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.RewriteQuery(tt.query))
		})
	}
}

func TestInsertIgnore(t *testing.T) {
	const badge = "INSERT INTO badges (user_id, badge_name, badge_type) VALUES (?, ?, ?)"

	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{"sqlite", NewSQLiteDialect(), badge,
			"INSERT OR IGNORE INTO badges (user_id, badge_name, badge_type) VALUES (?, ?, ?)"},
		{"mysql", NewMySQLDialect(), badge,
			"INSERT IGNORE INTO badges (user_id, badge_name, badge_type) VALUES (?, ?, ?)"},
		{"postgres", NewPostgresDialect(), badge + ";",
			badge + " ON CONFLICT DO NOTHING"},
		{"lowercase verb", NewSQLiteDialect(), "  insert into bad_words (word) VALUES (?)",
			"INSERT OR IGNORE INTO bad_words (word) VALUES (?)"},
		{"not an insert", NewMySQLDialect(), "UPDATE users SET name = ?",
			"UPDATE users SET name = ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.InsertIgnore(tt.query))
		})
	}
}

func TestDSN(t *testing.T) {
	t.Run("sqlite sets pragmas", func(t *testing.T) {
		dsn, err := NewSQLiteDialect().DSN(DialectConfig{Path: "./kidquest.db"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(dsn, "file:./kidquest.db?"))
		assert.Contains(t, dsn, "_foreign_keys=on")
		assert.Contains(t, dsn, "_txlock=immediate")
	})

	t.Run("mysql forces parseTime and multiStatements", func(t *testing.T) {
		dsn, err := NewMySQLDialect().DSN(DialectConfig{URL: "kq:secret@tcp(db:3306)/kidquest"})
		require.NoError(t, err)
		assert.Contains(t, dsn, "parseTime=true")
		assert.Contains(t, dsn, "multiStatements=true")
	})

	t.Run("missing settings", func(t *testing.T) {
		_, err := NewSQLiteDialect().DSN(DialectConfig{})
		assert.Error(t, err)
		_, err = NewPostgresDialect().DSN(DialectConfig{})
		assert.Error(t, err)
		_, err = NewMySQLDialect().DSN(DialectConfig{URL: "not a dsn"})
		assert.Error(t, err)
	})
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType   string
		expected string
		wantErr  bool
	}{
		{dbType: "", expected: "sqlite"},
		{dbType: "sqlite3", expected: "sqlite"},
		{dbType: "PostgreSQL", expected: "postgres"},
		{dbType: "mysql", expected: "mysql"},
		{dbType: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			dialect, _, err := DialectFor(&config.Config{DatabaseType: tt.dbType})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dialect.Name())
		})
	}
}
