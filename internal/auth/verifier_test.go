package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Claims ───────────────────────────────────────────────────────────────────

func TestClaimsFromMap_AllFields(t *testing.T) {
	c := claimsFromMap(map[string]any{
		"sub":            "1234",
		"email":          "alice@example.com",
		"email_verified": true,
		"name":           "Alice",
	})

	assert.Equal(t, "1234", c.Subject)
	assert.Equal(t, "alice@example.com", c.Email)
	assert.Equal(t, "Alice", c.Name)
	require.NotNil(t, c.EmailVerified)
	assert.True(t, c.Verified())
	assert.Equal(t, "Alice", c.DisplayName())
}

func TestClaimsFromMap_AbsentFlagIsVerified(t *testing.T) {
	c := claimsFromMap(map[string]any{"email": "bob@example.com"})

	assert.Nil(t, c.EmailVerified)
	assert.True(t, c.Verified())
	assert.Equal(t, "bob@example.com", c.DisplayName())
}

func TestClaimsFromMap_ExplicitFalse(t *testing.T) {
	c := claimsFromMap(map[string]any{"email": "c@example.com", "email_verified": false})
	assert.False(t, c.Verified())
}

func TestClaimsFromMap_StringFlag(t *testing.T) {
	assert.False(t, claimsFromMap(map[string]any{"email_verified": "false"}).Verified())
	assert.False(t, claimsFromMap(map[string]any{"email_verified": "FALSE"}).Verified())
	assert.True(t, claimsFromMap(map[string]any{"email_verified": "true"}).Verified())
}

func TestClaimsFromMap_WrongTypesIgnored(t *testing.T) {
	c := claimsFromMap(map[string]any{"email": 42, "name": []string{"x"}, "email_verified": 0})

	assert.Empty(t, c.Email)
	assert.Empty(t, c.Name)
	assert.Nil(t, c.EmailVerified)
}

// ─── OIDCVerifier ─────────────────────────────────────────────────────────────

const testAudience = "client-1.apps.googleusercontent.com"

func newSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   GoogleIssuer,
		"aud":   testAudience,
		"sub":   "google-sub-1",
		"email": "new.user@example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestOIDCVerifier_ValidToken(t *testing.T) {
	key := newSigningKey(t)
	v := NewStaticOIDCVerifier(GoogleIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}})

	claims, err := v.Verify(context.Background(), signToken(t, key, baseClaims()), testAudience)

	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", claims.Subject)
	assert.Equal(t, "new.user@example.com", claims.Email)
	assert.Nil(t, claims.EmailVerified)
}

func TestOIDCVerifier_WrongAudience(t *testing.T) {
	key := newSigningKey(t)
	v := NewStaticOIDCVerifier(GoogleIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}})

	_, err := v.Verify(context.Background(), signToken(t, key, baseClaims()), "someone-else")

	assert.Error(t, err)
}

func TestOIDCVerifier_Expired(t *testing.T) {
	key := newSigningKey(t)
	v := NewStaticOIDCVerifier(GoogleIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}})

	claims := baseClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := v.Verify(context.Background(), signToken(t, key, claims), testAudience)

	assert.Error(t, err)
}

func TestOIDCVerifier_ForeignSignature(t *testing.T) {
	trusted := newSigningKey(t)
	attacker := newSigningKey(t)
	v := NewStaticOIDCVerifier(GoogleIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{trusted.Public()}})

	_, err := v.Verify(context.Background(), signToken(t, attacker, baseClaims()), testAudience)

	assert.Error(t, err)
}

func TestOIDCVerifier_Malformed(t *testing.T) {
	key := newSigningKey(t)
	v := NewStaticOIDCVerifier(GoogleIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}})

	_, err := v.Verify(context.Background(), "not-a-jwt", testAudience)

	assert.Error(t, err)
}
