package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies every pending embedded migration for the connection's dialect.
// The underlying *sql.DB stays open afterwards.
func (db *DB) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations/"+db.Dialect.Name())
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := db.Dialect.MigrationDriver(db.DB)
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.Dialect.Name(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	// m.Close would also close the shared connection pool, so only the source is released
	defer source.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
