// Package session mints and checks HS256 session tokens for directories that
// keep users locally.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim written into every token.
const Issuer = "google-signin"

// ErrEmptyKey is returned by NewSigner when no signing key is configured.
var ErrEmptyKey = errors.New("session signing key is empty")

// Claims are the claims carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer issues session tokens for user ids.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner returns a Signer that signs with key and sets expiry ttl after
// issue.
func NewSigner(key string, ttl time.Duration) (*Signer, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &Signer{key: []byte(key), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token whose subject is userID.
func (s *Signer) Issue(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return tok, nil
}

// Verify parses raw and returns its claims when the signature, issuer and
// expiry all check out.
func (s *Signer) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
