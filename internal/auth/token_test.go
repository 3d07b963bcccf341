// ABOUTME: Unit tests for JWT token verification and generation
// ABOUTME: Tests valid, forged, expired and foreign-issuer tokens

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-for-jwt-signing")

func newVerifier(t *testing.T, now func() time.Time) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testSecret, now)
	require.NoError(t, err)
	return v
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	verifier := newVerifier(t, nil)

	token, err := verifier.Generate("ci-pipeline", time.Hour)
	require.NoError(t, err)

	subject, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ci-pipeline", subject)
}

func TestJWTVerifier_InvalidToken(t *testing.T) {
	verifier := newVerifier(t, nil)

	other, err := NewJWTVerifier([]byte("different-secret"), nil)
	require.NoError(t, err)
	forged, err := other.Generate("ci-pipeline", time.Hour)
	require.NoError(t, err)

	foreignIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "ci-pipeline",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  Issuer,
		Subject: "ci-pipeline",
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage token", "not-a-jwt-token"},
		{"malformed JWT", "header.payload.signature"},
		{"wrong secret", forged},
		{"foreign issuer", foreignIssuer},
		{"no expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	verifier := newVerifier(t, func() time.Time { return now })

	token, err := verifier.Generate("ci-pipeline", time.Minute)
	require.NoError(t, err)

	now = issued.Add(2 * time.Minute)
	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTVerifier_Generate_RequiresSubject(t *testing.T) {
	verifier := newVerifier(t, nil)
	_, err := verifier.Generate("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	_, err := NewJWTVerifier(nil, nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
