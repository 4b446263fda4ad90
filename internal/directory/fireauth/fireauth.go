// Package fireauth is a Directory backed by Firebase Authentication through
// the Firebase Admin SDK.
package fireauth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseAuth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/ai-teammate/google-signin/internal/directory"
)

// AuthClient is the subset of *auth.Client used here. Tests inject a stub
// that does not call Firebase.
type AuthClient interface {
	GetUserByEmail(ctx context.Context, email string) (*firebaseAuth.UserRecord, error)
	CreateUser(ctx context.Context, user *firebaseAuth.UserToCreate) (*firebaseAuth.UserRecord, error)
	CustomToken(ctx context.Context, uid string) (string, error)
}

// Directory stores users in Firebase Auth. Sessions are Firebase custom
// tokens, which the client exchanges for a Firebase ID token.
type Directory struct {
	client     AuthClient
	isNotFound func(error) bool
}

var _ directory.Directory = (*Directory)(nil)

// New creates a Directory for projectID. On Cloud Run the SDK picks up
// Application Default Credentials; opts can override them.
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Directory, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}

	return NewWithClient(client), nil
}

// NewWithClient wraps an existing auth client.
func NewWithClient(client AuthClient) *Directory {
	return &Directory{client: client, isNotFound: firebaseAuth.IsUserNotFound}
}

// FindUsersByEmail returns the single user Firebase keeps for email, or none.
func (d *Directory) FindUsersByEmail(ctx context.Context, email string) ([]directory.User, error) {
	rec, err := d.client.GetUserByEmail(ctx, email)
	if err != nil {
		if d.isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return []directory.User{toUser(rec)}, nil
}

// CreateUser creates a Firebase user. Firebase assigns the uid.
func (d *Directory) CreateUser(ctx context.Context, u directory.NewUser) (*directory.User, error) {
	params := (&firebaseAuth.UserToCreate{}).
		Email(u.Email).
		Password(u.Password).
		DisplayName(u.Name)

	rec, err := d.client.CreateUser(ctx, params)
	if err != nil {
		return nil, err
	}
	out := toUser(rec)
	return &out, nil
}

// IssueSession mints a Firebase custom token for userID.
func (d *Directory) IssueSession(ctx context.Context, userID string) (string, error) {
	return d.client.CustomToken(ctx, userID)
}

func toUser(rec *firebaseAuth.UserRecord) directory.User {
	if rec == nil || rec.UserInfo == nil {
		return directory.User{}
	}
	return directory.User{
		ID:    rec.UID,
		Email: rec.Email,
		Name:  rec.DisplayName,
	}
}
