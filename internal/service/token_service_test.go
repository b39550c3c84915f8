package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-logistics/roster-api/internal/models"
	"github.com/school-logistics/roster-api/pkg/config"
	appErrors "github.com/school-logistics/roster-api/pkg/errors"
)

func newTestTokenService(lifetime time.Duration) *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:     "test-secret",
		Expiration: lifetime,
		Issuer:     "roster-api-test",
	})
}

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := newTestTokenService(time.Hour)

	token, err := svc.Issue("user-1", models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "roster-api-test", claims.Issuer)
}

func TestTokenServiceDefaultLifetime(t *testing.T) {
	svc := newTestTokenService(0)
	assert.Equal(t, config.DefaultTokenLifetime, svc.Lifetime())
}

func TestTokenServiceExpired(t *testing.T) {
	svc := newTestTokenService(time.Millisecond)

	token, err := svc.Issue("user-1", models.RoleUser)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = svc.Validate(token)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErr.Code)
}

func TestTokenServiceWrongSecret(t *testing.T) {
	issuer := newTestTokenService(time.Hour)
	token, err := issuer.Issue("user-1", models.RoleUser)
	require.NoError(t, err)

	validator := NewTokenService(config.JWTConfig{Secret: "other-secret", Expiration: time.Hour})
	_, err = validator.Validate(token)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestTokenServiceMalformed(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	_, err := svc.Validate("not-a-token")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestTokenServiceRejectsForeignSigningMethod(t *testing.T) {
	svc := newTestTokenService(time.Hour)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.TokenClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
