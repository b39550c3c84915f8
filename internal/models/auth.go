package models

import "github.com/golang-jwt/jwt/v5"

// SignupRequest holds credentials for registering a new account. The
// username charset and length rules are enforced by the custom "username"
// validation; the 3-character password minimum mirrors the historical
// policy of the system this replaces.
type SignupRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=3"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returns the issued token and user info after signup or login.
type AuthResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	UserID   string   `json:"user_id"`
}

// TokenClaims is the JWT payload for session tokens. The role is a snapshot
// taken at issuance: changing a user's role does not affect tokens already
// in circulation until they expire and a new login occurs.
type TokenClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
