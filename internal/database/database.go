// Package database provides PostgreSQL connection helpers.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

const pingTimeout = 3 * time.Second

// DB is the interface covering the database/sql.DB methods used by this package.
// Using an interface makes it trivial to swap in a mock during unit tests.
type DB interface {
	PingContext(ctx context.Context) error
}

// Open opens a *sql.DB using connection parameters from environment variables
// and checks that the server answers. Callers are responsible for closing the
// returned DB.
func Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := Ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks connectivity within pingTimeout.
func Ping(ctx context.Context, db DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// DSN builds a PostgreSQL DSN from environment variables.
// DATABASE_URL, when set, is returned as is.
// When INSTANCE_UNIX_SOCKET is set (Cloud SQL via Unix socket) that path is
// used as the host; otherwise a TCP connection is made.
func DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if socket := os.Getenv("INSTANCE_UNIX_SOCKET"); socket != "" {
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s sslmode=disable",
			socket, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"),
		)
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getenv("DB_HOST", "localhost"),
		getenv("DB_PORT", "5432"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		getenv("DB_NAME", "directory"),
	)
}

// getenv returns the value of the environment variable named by key, or
// fallback when the variable is unset or empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
