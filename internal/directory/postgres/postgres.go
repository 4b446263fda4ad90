// Package postgres is a Directory that keeps users in a local PostgreSQL
// table and signs its own session tokens.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ai-teammate/google-signin/internal/directory"
	"github.com/ai-teammate/google-signin/internal/repository"
)

// UserStore is the persistence used by Directory.
// Satisfied by *repository.UserRepository.
type UserStore interface {
	FindByEmail(ctx context.Context, addr string) ([]repository.User, error)
	Create(ctx context.Context, u repository.User) (*repository.User, error)
}

// TokenIssuer signs session tokens. Satisfied by *session.Signer.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Directory stores users through a UserStore. The generated credential is
// kept only as a bcrypt hash.
type Directory struct {
	users  UserStore
	tokens TokenIssuer
	cost   int
}

var _ directory.Directory = (*Directory)(nil)

// New constructs a Directory.
func New(users UserStore, tokens TokenIssuer) *Directory {
	return &Directory{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// FindUsersByEmail lists users registered under email.
func (d *Directory) FindUsersByEmail(ctx context.Context, email string) ([]directory.User, error) {
	rows, err := d.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]directory.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, toUser(u))
	}
	return out, nil
}

// CreateUser assigns a random UUID and stores the user.
func (d *Directory) CreateUser(ctx context.Context, u directory.NewUser) (*directory.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row, err := d.users.Create(ctx, repository.User{
		ID:           uuid.NewString(),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}
	out := toUser(*row)
	return &out, nil
}

// IssueSession signs a session token for userID.
func (d *Directory) IssueSession(_ context.Context, userID string) (string, error) {
	return d.tokens.Issue(userID)
}

func toUser(u repository.User) directory.User {
	return directory.User{ID: u.ID, Email: u.Email, Name: u.Name}
}
