package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	migratedb "github.com/golang-migrate/migrate/v4/database"
)

// Dialect hides the differences between the supported databases.
// Queries are written once with ? placeholders and rewritten per dialect.
type Dialect interface {
	// Name is "sqlite", "postgres" or "mysql"; it also names the migrations subdirectory
	Name() string
	DriverName() string
	DSN(config DialectConfig) (string, error)
	RewriteQuery(query string) string
	// SupportsLastInsertId is false when ids must come back through RETURNING
	SupportsLastInsertId() bool
	ConfigureConnection(db *sql.DB) error
	// InsertIgnore turns "INSERT INTO ..." into a statement that skips unique violations
	InsertIgnore(query string) string
	// ResetSequence returns the statement that moves table's id generator past
	// explicitly inserted ids, or "" when the database does that itself
	ResetSequence(table string) string
	MigrationDriver(db *sql.DB) (migratedb.Driver, error)
}

// DialectConfig holds connection settings; SQLite uses Path, the servers URL
type DialectConfig struct {
	Path string
	URL  string
}

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

var serverPool = poolSettings{maxOpen: 25, maxIdle: 5, maxLifetime: 5 * time.Minute, maxIdleTime: time.Minute}

func (p poolSettings) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.maxLifetime)
	db.SetConnMaxIdleTime(p.maxIdleTime)
}

// numberPlaceholders rewrites ? to $1, $2, ... leaving quoted literals alone
func numberPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withInsertVerb replaces a leading INSERT INTO with verb; other statements pass through
func withInsertVerb(query, verb string) string {
	const insertInto = "INSERT INTO"
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < len(insertInto) || !strings.EqualFold(trimmed[:len(insertInto)], insertInto) {
		return query
	}
	return verb + trimmed[len(insertInto):]
}
