package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)
	return svc
}

func TestTokenIssueVerifyRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.Issue("8d3e4c52-6a5e-4a0b-9a43-6c1f0d7e8b21", 0)
	require.NoError(t, err)

	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "8d3e4c52-6a5e-4a0b-9a43-6c1f0d7e8b21", subject)
}

func TestTokenVerifyFailsAfterExpiry(t *testing.T) {
	svc := newTestTokenService(t)
	issuedAt := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue("user-1", time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestTokenVerifyRejectsForeignSignature(t *testing.T) {
	svc := newTestTokenService(t)
	other, err := NewTokenService("another-secret", "HS256", time.Minute)
	require.NoError(t, err)

	token, err := other.Issue("user-1", 0)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestTokenVerifyRejectsAlgorithmSwap(t *testing.T) {
	svc := newTestTokenService(t)
	claims := jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestTokenVerifyRejectsMissingSubjectAndExpiry(t *testing.T) {
	svc := newTestTokenService(t)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(noSub)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(noExp)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)

	_, err = svc.Verify("garbage")
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestNewTokenServiceConfig(t *testing.T) {
	_, err := NewTokenService("  ", "HS256", time.Minute)
	assert.ErrorIs(t, err, ErrTokenSecretMissing)

	_, err = NewTokenService("secret", "RS256", time.Minute)
	assert.Error(t, err)

	svc, err := NewTokenService("secret", "hs384", 0)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, svc.TTL())
	assert.Equal(t, "HS384", svc.method.Alg())
}
