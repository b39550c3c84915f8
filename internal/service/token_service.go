package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/school-logistics/roster-api/internal/models"
	"github.com/school-logistics/roster-api/pkg/config"
	appErrors "github.com/school-logistics/roster-api/pkg/errors"
)

// TokenService issues and validates self-contained HS256 session tokens.
// Claims carry the user id and a role snapshot taken at issuance: a later
// role change does not touch tokens already in circulation, which stay
// valid with the old role until they expire and a fresh login occurs.
// Validation is a pure read with no store access, so concurrent
// validations of the same token are always safe.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
}

// NewTokenService constructs a TokenService from JWT configuration.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	lifetime := cfg.Expiration
	if lifetime <= 0 {
		lifetime = config.DefaultTokenLifetime
	}
	return &TokenService{secret: []byte(cfg.Secret), lifetime: lifetime, issuer: cfg.Issuer}
}

// Lifetime returns the fixed token validity window.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue mints a signed token bound to the user identity and role.
func (s *TokenService) Issue(userID string, role models.UserRole) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.TokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims. Expired
// tokens are reported distinctly from malformed or forged ones.
func (s *TokenService) Validate(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
