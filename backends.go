package main

import (
	"context"
	"database/sql"
	"net/http"
	"sync"

	"github.com/ai-teammate/google-signin/internal/config"
	"github.com/ai-teammate/google-signin/internal/directory"
	"github.com/ai-teammate/google-signin/internal/directory/appwrite"
	"github.com/ai-teammate/google-signin/internal/directory/fireauth"
	"github.com/ai-teammate/google-signin/internal/directory/postgres"
	"github.com/ai-teammate/google-signin/internal/repository"
	"github.com/ai-teammate/google-signin/internal/session"
)

// newOpener returns the directory.Opener for backend. Each call receives the
// configuration read for that request.
func newOpener(backend config.Backend, client *http.Client, db *sql.DB) directory.Opener {
	switch backend {
	case config.BackendFirebase:
		return (&firebaseApps{}).open
	case config.BackendPostgres:
		users := repository.NewUserRepository(db)
		return func(_ context.Context, cfg config.Config) (directory.Directory, error) {
			signer, err := session.NewSigner(cfg.SessionSigningKey, cfg.SessionTTL)
			if err != nil {
				return nil, err
			}
			return postgres.New(users, signer), nil
		}
	default:
		return func(_ context.Context, cfg config.Config) (directory.Directory, error) {
			return appwrite.New(cfg.AppwriteEndpoint, cfg.AppwriteProjectID, cfg.AppwriteAPIKey, client), nil
		}
	}
}

// firebaseApps keeps one Firebase app per project. Building an app loads
// credentials, which is too slow to repeat per request.
type firebaseApps struct {
	mu   sync.Mutex
	dirs map[string]*fireauth.Directory
}

func (f *firebaseApps) open(ctx context.Context, cfg config.Config) (directory.Directory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d, ok := f.dirs[cfg.FirebaseProjectID]; ok {
		return d, nil
	}
	d, err := fireauth.New(context.WithoutCancel(ctx), cfg.FirebaseProjectID)
	if err != nil {
		return nil, err
	}
	if f.dirs == nil {
		f.dirs = make(map[string]*fireauth.Directory)
	}
	f.dirs[cfg.FirebaseProjectID] = d
	return d, nil
}
