package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/models"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "clinic", Expiration: time.Hour})

	token, expires, err := svc.IssueToken("P1", models.RolePatient, "Ana")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "P1", claims.UserID)
	assert.Equal(t, models.RolePatient, claims.Role)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "clinic", Expiration: time.Hour})
	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "clinic", Expiration: time.Hour})
	foreign := NewTokenService(TokenConfig{Secret: "secret", Issuer: "elsewhere", Expiration: time.Hour})
	expired := NewTokenService(TokenConfig{Secret: "secret", Issuer: "clinic", Expiration: time.Hour})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	wrongKey, _, err := other.IssueToken("P1", models.RolePatient, "")
	require.NoError(t, err)
	wrongIssuer, _, err := foreign.IssueToken("P1", models.RolePatient, "")
	require.NoError(t, err)
	stale, _, err := expired.IssueToken("P1", models.RolePatient, "")
	require.NoError(t, err)

	for name, token := range map[string]string{"signature": wrongKey, "issuer": wrongIssuer, "expired": stale, "garbage": "not-a-jwt"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
		})
	}

	_, _, err = svc.IssueToken("P1", models.UserRole("NURSE"), "")
	assert.Error(t, err)
}
