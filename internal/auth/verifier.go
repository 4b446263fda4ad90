// Package auth provides Google ID-token verification.
package auth

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// Claims holds the verified claims extracted from a Google ID token.
type Claims struct {
	// Subject is the Google account identifier (sub).
	Subject string
	// Email is the address Google attests for the account. May be empty.
	Email string
	// EmailVerified is nil when the token carries no email_verified claim.
	EmailVerified *bool
	// Name is the display name, empty when the profile scope was not granted.
	Name string
}

// Verified reports whether the email may be trusted. An absent flag counts as
// verified.
func (c *Claims) Verified() bool {
	return c.EmailVerified == nil || *c.EmailVerified
}

// DisplayName returns the claim name, falling back to the email.
func (c *Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}

// TokenVerifier is the interface that wraps ID-token verification. Signature,
// expiry and issuer checks are entirely the implementation's business; callers
// only choose the audience.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken, audience string) (*Claims, error)
}

// IDTokenVerifier is the production TokenVerifier backed by
// google.golang.org/api/idtoken, which caches Google's signing certificates.
type IDTokenVerifier struct {
	validator *idtoken.Validator
}

// NewIDTokenVerifier creates an IDTokenVerifier. client may be nil, in which
// case the library default is used.
func NewIDTokenVerifier(ctx context.Context, client *http.Client) (*IDTokenVerifier, error) {
	var opts []option.ClientOption
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &IDTokenVerifier{validator: v}, nil
}

// Verify validates idToken for audience and returns its claims. Errors are
// returned unwrapped so their text reaches the caller as the library wrote it.
func (v *IDTokenVerifier) Verify(ctx context.Context, idToken, audience string) (*Claims, error) {
	payload, err := v.validator.Validate(ctx, idToken, audience)
	if err != nil {
		return nil, err
	}
	claims := claimsFromMap(payload.Claims)
	if claims.Subject == "" {
		claims.Subject = payload.Subject
	}
	return claims, nil
}

// claimsFromMap extracts Claims from a decoded JWT payload.
func claimsFromMap(m map[string]any) *Claims {
	c := &Claims{}
	c.Subject, _ = m["sub"].(string)
	c.Email, _ = m["email"].(string)
	c.Name, _ = m["name"].(string)

	switch v := m["email_verified"].(type) {
	case bool:
		c.EmailVerified = &v
	case string:
		// Some older tokens encode the flag as a string.
		b := !strings.EqualFold(v, "false")
		c.EmailVerified = &b
	}
	return c
}
