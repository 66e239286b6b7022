package database

import (
	"database/sql"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
)

// MySQLDialect talks to MySQL through go-sql-driver
type MySQLDialect struct{}

func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string       { return "mysql" }
func (d *MySQLDialect) DriverName() string { return "mysql" }

// DSN forces the options the repositories and migrations depend on:
// parseTime for DATETIME scanning and multiStatements for migration files.
func (d *MySQLDialect) DSN(config DialectConfig) (string, error) {
	cfg, err := mysqldriver.ParseDSN(config.URL)
	if err != nil {
		return "", fmt.Errorf("mysql: invalid DATABASE_URL: %w", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

func (d *MySQLDialect) RewriteQuery(query string) string { return query }

func (d *MySQLDialect) SupportsLastInsertId() bool { return true }

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	serverPool.apply(db)
	return nil
}

func (d *MySQLDialect) InsertIgnore(query string) string {
	return withInsertVerb(query, "INSERT IGNORE INTO")
}

// ResetSequence is a no-op: AUTO_INCREMENT moves past explicit ids on insert
func (d *MySQLDialect) ResetSequence(table string) string { return "" }

func (d *MySQLDialect) MigrationDriver(db *sql.DB) (migratedb.Driver, error) {
	return mysql.WithInstance(db, &mysql.Config{})
}
