package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
)

func newTokenServiceForTest() *TokenService {
	return NewTokenService(TokenConfig{Secret: "test-secret", Issuer: "smart-allotment-api", Expiry: time.Hour})
}

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := newTokenServiceForTest()

	token, expiresAt, err := svc.Issue("", "Dr. Rao", models.RoleFaculty)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rao", claims.Name)
	assert.Equal(t, "Dr. Rao", claims.UserID)
	assert.Equal(t, models.RoleFaculty, claims.Role)
}

func TestTokenServiceIssueRejectsBadIdentity(t *testing.T) {
	svc := newTokenServiceForTest()

	_, _, err := svc.Issue("u1", "", models.RoleAdmin)
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, _, err = svc.Issue("u1", "Someone", models.Role("janitor"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	svc := newTokenServiceForTest()
	token, _, err := svc.Issue("u1", "Registrar", models.RoleAdmin)
	require.NoError(t, err)

	other := NewTokenService(TokenConfig{Secret: "other-secret", Issuer: "smart-allotment-api"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongIssuer := NewTokenService(TokenConfig{Secret: "test-secret", Issuer: "someone-else"})
	_, err = wrongIssuer.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{Name: "x", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = newTokenServiceForTest().ValidateToken(unsigned)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
