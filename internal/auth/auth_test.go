package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Minute, time.Hour)
	require.NoError(t, err)

	token, issued, err := issuer.GenerateToken("user-1", "ada", AccessToken)
	require.NoError(t, err)

	claims, err := issuer.ValidateToken(token, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Len(t, claims.ID, 26)
}

func TestIssuer_RejectsWrongType(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Minute, time.Hour)
	require.NoError(t, err)

	token, _, err := issuer.GenerateToken("user-1", "ada", RefreshToken)
	require.NoError(t, err)

	_, err = issuer.ValidateToken(token, AccessToken)
	assert.True(t, errors.Is(err, ErrWrongTokenType))
}

func TestIssuer_RejectsExpired(t *testing.T) {
	now := time.Now()
	issuer, err := NewIssuer(testSecret, time.Minute, time.Hour, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, _, err := issuer.GenerateToken("user-1", "ada", AccessToken)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.ValidateToken(token, AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestIssuer_RejectsForeignSignature(t *testing.T) {
	a, err := NewIssuer(testSecret, time.Minute, time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer(strings.Repeat("x", 32), time.Minute, time.Hour)
	require.NoError(t, err)

	token, _, err := a.GenerateToken("user-1", "ada", AccessToken)
	require.NoError(t, err)

	_, err = b.ValidateToken(token, AccessToken)
	assert.Error(t, err)
}

func TestNewIssuer_ShortSecret(t *testing.T) {
	_, err := NewIssuer("short", time.Minute, time.Hour)
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword("correct horse", hash))
	assert.ErrorIs(t, VerifyPassword("battery staple", hash), ErrPasswordMismatch)
}
