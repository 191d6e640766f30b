package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteapi-server/models"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(nil, "test-secret")

	token, err := svc.issueToken(&models.User{ID: 7, Username: "alice", IsAdmin: true})
	require.NoError(t, err)

	ident, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ident.UserID)
	assert.True(t, ident.IsAdmin)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	issuer := NewAuthService(nil, "secret-a")
	verifier := NewAuthService(nil, "secret-b")

	token, err := issuer.issueToken(&models.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyTokenExpired(t *testing.T) {
	svc := NewAuthService(nil, "test-secret")

	claims := jwt.MapClaims{
		"sub": float64(1),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsUnsignedAlg(t *testing.T) {
	svc := NewAuthService(nil, "test-secret")

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": float64(1),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyTokenGarbage(t *testing.T) {
	svc := NewAuthService(nil, "test-secret")
	_, err := svc.VerifyToken("not.a.token")
	assert.Error(t, err)
}
