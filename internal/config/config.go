// Package config builds the immutable configuration record the login handler
// reads on every invocation.
package config

import (
	"os"
	"strings"
	"time"
)

// Backend names the directory service that owns user records.
type Backend string

const (
	BackendAppwrite Backend = "appwrite"
	BackendFirebase Backend = "firebase"
	BackendPostgres Backend = "postgres"
)

// Valid reports whether b names a known backend.
func (b Backend) Valid() bool {
	switch b {
	case BackendAppwrite, BackendFirebase, BackendPostgres:
		return true
	}
	return false
}

// Verifier names the Google ID-token verification strategy.
type Verifier string

const (
	VerifierIDToken Verifier = "idtoken"
	VerifierOIDC    Verifier = "oidc"
)

// Valid reports whether v names a known verifier.
func (v Verifier) Valid() bool {
	return v == VerifierIDToken || v == VerifierOIDC
}

// Environment variable names.
const (
	EnvBackend           = "DIRECTORY_BACKEND"
	EnvVerifier          = "GOOGLE_VERIFIER"
	EnvGoogleClientID    = "GOOGLE_CLIENT_ID"
	EnvAppwriteEndpoint  = "APPWRITE_ENDPOINT"
	EnvAppwriteProjectID = "APPWRITE_PROJECT_ID"
	EnvAppwriteAPIKey    = "APPWRITE_API_KEY"
	EnvFirebaseProjectID = "FIREBASE_PROJECT_ID"
	EnvSessionSigningKey = "SESSION_SIGNING_KEY"
	EnvSessionTTL        = "SESSION_TTL"
)

// DefaultSessionTTL is the lifetime of locally signed session tokens.
const DefaultSessionTTL = time.Hour

// Config is a snapshot of the process environment. It is never mutated after
// construction.
type Config struct {
	Backend  Backend
	Verifier Verifier

	// GoogleClientID is the audience every accepted ID token must carry.
	GoogleClientID string

	AppwriteEndpoint  string
	AppwriteProjectID string
	AppwriteAPIKey    string

	FirebaseProjectID string

	SessionSigningKey string
	SessionTTL        time.Duration
}

// setting is one named configuration value.
type setting struct {
	name   string
	value  string
	secret bool
}

// FromEnv reads a Config from the process environment.
func FromEnv() Config {
	return Config{
		Backend:           Backend(strings.ToLower(getenv(EnvBackend, string(BackendAppwrite)))),
		Verifier:          Verifier(strings.ToLower(getenv(EnvVerifier, string(VerifierIDToken)))),
		GoogleClientID:    os.Getenv(EnvGoogleClientID),
		AppwriteEndpoint:  os.Getenv(EnvAppwriteEndpoint),
		AppwriteProjectID: os.Getenv(EnvAppwriteProjectID),
		AppwriteAPIKey:    os.Getenv(EnvAppwriteAPIKey),
		FirebaseProjectID: os.Getenv(EnvFirebaseProjectID),
		SessionSigningKey: os.Getenv(EnvSessionSigningKey),
		SessionTTL:        durationEnv(EnvSessionTTL, DefaultSessionTTL),
	}
}

// required lists the settings the configured backend cannot run without, in
// the order they are reported.
func (c Config) required() []setting {
	clientID := setting{name: EnvGoogleClientID, value: c.GoogleClientID}
	switch c.Backend {
	case BackendFirebase:
		return []setting{
			{name: EnvFirebaseProjectID, value: c.FirebaseProjectID},
			clientID,
		}
	case BackendPostgres:
		return []setting{
			{name: EnvSessionSigningKey, value: c.SessionSigningKey, secret: true},
			clientID,
		}
	default:
		return []setting{
			{name: EnvAppwriteEndpoint, value: c.AppwriteEndpoint},
			{name: EnvAppwriteProjectID, value: c.AppwriteProjectID},
			{name: EnvAppwriteAPIKey, value: c.AppwriteAPIKey, secret: true},
			clientID,
		}
	}
}

// Required returns the names of the settings the configured backend needs.
func (c Config) Required() []string {
	req := c.required()
	names := make([]string, 0, len(req))
	for _, s := range req {
		names = append(names, s.name)
	}
	return names
}

// Missing returns the names of required settings that are empty. A nil result
// means the configuration is complete.
func (c Config) Missing() []string {
	var missing []string
	for _, s := range c.required() {
		if strings.TrimSpace(s.value) == "" {
			missing = append(missing, s.name)
		}
	}
	return missing
}

// CurrentValues returns every required setting keyed by name, with secrets
// masked, for inclusion in diagnostics.
func (c Config) CurrentValues() map[string]string {
	req := c.required()
	values := make(map[string]string, len(req))
	for _, s := range req {
		v := s.value
		if s.secret {
			v = Mask(v)
		}
		values[s.name] = v
	}
	return values
}

// Mask hides a secret, keeping the first and last six characters of values
// long enough that the hidden middle still carries most of the entropy.
// Shorter values are replaced entirely.
func Mask(secret string) string {
	const keep = 6
	switch {
	case secret == "":
		return ""
	case len(secret) < 4*keep:
		return "..."
	default:
		return secret[:keep] + "..." + secret[len(secret)-keep:]
	}
}

// getenv returns the value of the environment variable named by key, or
// fallback when the variable is unset or empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
