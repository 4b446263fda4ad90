// Package directory defines the backend user directory the login flow
// provisions users in and obtains session tokens from.
package directory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ai-teammate/google-signin/internal/config"
)

// User is a directory user record as seen by this service.
type User struct {
	ID    string
	Email string
	Name  string
}

// NewUser carries the fields needed to create a user. The directory assigns
// the identifier.
type NewUser struct {
	Email    string
	Password string
	Name     string
}

// Directory is the backend system of record for user accounts.
type Directory interface {
	// FindUsersByEmail returns the users registered under email, oldest
	// first. An empty result is not an error.
	FindUsersByEmail(ctx context.Context, email string) ([]User, error)
	// CreateUser creates a user and returns the stored record.
	CreateUser(ctx context.Context, u NewUser) (*User, error)
	// IssueSession returns a session token for userID.
	IssueSession(ctx context.Context, userID string) (string, error)
}

// Opener returns a Directory for the given configuration. It is called once
// per login so that configuration read at invocation time reaches the
// backend client.
type Opener func(ctx context.Context, cfg config.Config) (Directory, error)

// passwordBytes is the entropy of generated placeholder credentials.
const passwordBytes = 32

// NewPassword returns a random hex-encoded credential with 256 bits of
// entropy. Directories that insist on a password at creation time get one
// nobody knows.
func NewPassword() (string, error) {
	b := make([]byte, passwordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Provision returns the id of the user registered under email, creating the
// user when none exists. The boolean reports whether a user was created.
//
// Lookup and create are separate calls and no lock is held between them:
// two concurrent first logins for the same email can both reach CreateUser.
// Backends that enforce unique emails reject or absorb the second create.
func Provision(ctx context.Context, dir Directory, email, name string) (string, bool, error) {
	existing, err := dir.FindUsersByEmail(ctx, email)
	if err != nil {
		return "", false, err
	}
	if len(existing) > 0 {
		return existing[0].ID, false, nil
	}

	password, err := NewPassword()
	if err != nil {
		return "", false, err
	}
	created, err := dir.CreateUser(ctx, NewUser{Email: email, Password: password, Name: name})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}
