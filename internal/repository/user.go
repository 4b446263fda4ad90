// Package repository provides data-access objects for the local user directory.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User represents a row in the directory_users table.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// UserQuerier is the database interface used by UserRepository.
// Satisfied by *sql.DB and allows tests to inject a stub.
type UserQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepository handles persistence for the directory_users table.
type UserRepository struct {
	db UserQuerier
}

// NewUserRepository constructs a UserRepository backed by db.
func NewUserRepository(db UserQuerier) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns every user whose email matches addr case-insensitively,
// oldest first. The unique index keeps this to at most one row; the slice
// form mirrors remote directories that do not enforce uniqueness.
func (r *UserRepository) FindByEmail(ctx context.Context, addr string) ([]User, error) {
	const selectSQL = `
SELECT id, email, name, password_hash, created_at
FROM   directory_users
WHERE  lower(email) = lower($1)
ORDER  BY created_at`

	rows, err := r.db.QueryContext(ctx, selectSQL, addr)
	if err != nil {
		return nil, fmt.Errorf("find users by email: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// Create inserts u. When a row for the same email already exists the insert
// does nothing and the existing row is returned instead, so two concurrent
// first logins converge on one user.
func (r *UserRepository) Create(ctx context.Context, u User) (*User, error) {
	const insertSQL = `
INSERT INTO directory_users (id, email, name, password_hash)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING
RETURNING id, email, name, password_hash, created_at`

	row := r.db.QueryRowContext(ctx, insertSQL, u.ID, u.Email, u.Name, u.PasswordHash)

	var got User
	err := row.Scan(&got.ID, &got.Email, &got.Name, &got.PasswordHash, &got.CreatedAt)
	switch {
	case err == nil:
		return &got, nil
	case errors.Is(err, sql.ErrNoRows):
		return r.getByEmail(ctx, u.Email)
	default:
		return nil, fmt.Errorf("create user: %w", err)
	}
}

// getByEmail fetches the row that won an insert race.
func (r *UserRepository) getByEmail(ctx context.Context, addr string) (*User, error) {
	const selectSQL = `
SELECT id, email, name, password_hash, created_at
FROM   directory_users
WHERE  lower(email) = lower($1)`

	var u User
	err := r.db.QueryRowContext(ctx, selectSQL, addr).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}
