package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateAccessToken(userID, "secret", "", time.Hour)
	require.NoError(t, err)

	claims, err := NewVerifier("secret", "").Verify(token)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "secret", "", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("other", "").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyReportsExpiry(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "secret", "", -time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret", "").Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyChecksIssuer(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "secret", "https://auth.example/v1", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("secret", "https://auth.example/v1").Verify(token)
	assert.NoError(t, err)

	_, err = NewVerifier("secret", "https://evil.example").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewVerifier("secret", "").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserIDRejectsNonUUIDSubject(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}}
	_, err := c.UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)
}
