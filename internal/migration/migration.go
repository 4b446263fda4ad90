// Package migration wraps golang-migrate to run embedded SQL migration files.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

// migrationsTable keeps this service's schema history apart from other
// tenants of a shared database.
const migrationsTable = "directory_schema_migrations"

// Migrator is the interface used by RunMigrations so callers can inject a
// mock in unit tests.
type Migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
}

// migrateMaker creates a Migrator from a *sql.DB and the migrations
// filesystem. Replaced in tests.
type migrateMaker func(db *sql.DB, migrationsFS fs.FS) (Migrator, error)

// defaultMakeMigrator builds a real *migrate.Migrate backed by iofs and the
// postgres driver.
func defaultMakeMigrator(db *sql.DB, migrationsFS fs.FS) (Migrator, error) {
	src, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("iofs source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending migrations and logs the resulting schema
// version. migrationsFS must have the numbered *.sql files at its root
// (e.g. 0001_create_directory_users.up.sql).
func RunMigrations(db *sql.DB, migrationsFS fs.FS, log logrus.FieldLogger) error {
	return runMigrations(db, migrationsFS, log, defaultMakeMigrator)
}

func runMigrations(db *sql.DB, migrationsFS fs.FS, log logrus.FieldLogger, maker migrateMaker) error {
	m, err := maker(db, migrationsFS)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	log.WithField("version", version).Info("schema up to date")
	return nil
}
