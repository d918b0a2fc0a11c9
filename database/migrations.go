// Package database provides database migration tooling.
package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// GetMigrate returns a migration instance for the given PostgreSQL
// connection string. Both postgres:// and postgresql:// URLs are accepted.
func GetMigrate(connString string) (*migrate.Migrate, error) {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, MigrateURL(connString))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// NewFromConnectionString returns a new Migrator from the given connection string.
func NewFromConnectionString(connString string) (Migrator, error) {
	return GetMigrate(connString)
}

// MigrateUp applies all pending migrations. It is not an error when the
// schema is already current.
func MigrateUp(m Migrator) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown reverts the given number of migrations. A non-positive
// steps value reverts all of them.
func MigrateDown(m Migrator, steps int) error {
	var err error
	if steps <= 0 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	return nil
}

// MigrationFiles exposes the embedded migration files
func MigrationFiles() fs.FS {
	return migrationsFS
}

// MigrateURL rewrites a PostgreSQL URL to the scheme of the pgx migrate driver
func MigrateURL(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}
