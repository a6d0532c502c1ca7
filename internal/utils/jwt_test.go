package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ev-asset-platform/internal/model"
)

const testSecret = "test-secret-key-for-unit-tests"

var issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer(testSecret, "ev-test", 24*time.Hour, fixedClock(issuedAt))
	tok, err := iss.Issue("acc-1", "ana@example.com", model.RoleInvestor)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.ID)
	assert.Equal(t, issuedAt.Add(24*time.Hour), tok.ExpiresAt)

	ver := NewTokenVerifier(testSecret, fixedClock(issuedAt.Add(23*time.Hour)))
	claims, err := ver.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, model.RoleInvestor, claims.Role)
	assert.Equal(t, tok.ID, claims.ID)
	assert.Equal(t, "acc-1", claims.Subject)
}

func TestVerifyExpiredAfterWindow(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer(testSecret, "ev-test", 24*time.Hour, fixedClock(issuedAt))
	tok, err := iss.Issue("acc-1", "ana@example.com", model.RoleOperator)
	require.NoError(t, err)

	ver := NewTokenVerifier(testSecret, fixedClock(issuedAt.Add(24*time.Hour+time.Second)))
	_, err = ver.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecretIsInvalid(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer("right-secret", "ev-test", time.Hour, nil).Issue("acc-2", "b@example.com", model.RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenVerifier("wrong-secret", nil).Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyBadSignatureWinsOverExpiry(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer("right-secret", "ev-test", time.Hour, fixedClock(issuedAt)).Issue("acc-2", "b@example.com", model.RoleAdmin)
	require.NoError(t, err)

	ver := NewTokenVerifier("wrong-secret", fixedClock(issuedAt.Add(48*time.Hour)))
	_, err = ver.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyTamperedPayload(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer(testSecret, "ev-test", time.Hour, nil).Issue("acc-3", "c@example.com", model.RoleInvestor)
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		AccountID:        "acc-3",
		Role:             model.RoleAdmin,
	}).SignedString([]byte("attacker"))
	require.NoError(t, err)
	mixed := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]

	_, err = NewTokenVerifier(testSecret, nil).Verify(mixed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		AccountID:        "acc-4",
		Role:             model.RoleAdmin,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenVerifier(testSecret, nil).Verify(unsigned)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer(testSecret, "ev-test", time.Hour, nil).Issue("acc-5", "d@example.com", model.Role("superuser"))
	require.NoError(t, err)

	_, err = NewTokenVerifier(testSecret, nil).Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyGarbage(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not.a.jwt", "a.b", "...."} {
		_, err := NewTokenVerifier(testSecret, nil).Verify(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, raw)
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("", "ev-test", time.Hour, nil).Issue("acc", "e@example.com", model.RoleInvestor)
	assert.Error(t, err)
}
