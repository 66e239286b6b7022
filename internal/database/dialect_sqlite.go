package database

import (
	"database/sql"
	"fmt"
	"net/url"

	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect is the default single-file store
type SQLiteDialect struct{}

func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite3" }

// DSN enables foreign keys on every pooled connection. Immediate transactions
// take the write lock at BEGIN, so concurrent link approvals and badge awards
// wait on busy_timeout rather than failing a lock upgrade.
func (d *SQLiteDialect) DSN(config DialectConfig) (string, error) {
	if config.Path == "" {
		return "", fmt.Errorf("sqlite: database path is required")
	}
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_txlock", "immediate")
	return "file:" + config.Path + "?" + params.Encode(), nil
}

func (d *SQLiteDialect) RewriteQuery(query string) string { return query }

func (d *SQLiteDialect) SupportsLastInsertId() bool { return true }

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// One writer at a time either way; a small pool keeps readers off the busy path
	poolSettings{maxOpen: 8, maxIdle: 4}.apply(db)
	return nil
}

func (d *SQLiteDialect) InsertIgnore(query string) string {
	return withInsertVerb(query, "INSERT OR IGNORE INTO")
}

// ResetSequence is a no-op: INTEGER PRIMARY KEY continues from MAX(id)
func (d *SQLiteDialect) ResetSequence(table string) string { return "" }

func (d *SQLiteDialect) MigrationDriver(db *sql.DB) (migratedb.Driver, error) {
	return sqlite3.WithInstance(db, &sqlite3.Config{})
}
