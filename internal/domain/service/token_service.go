package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the validated contents of an issued token.
type Claims struct {
	IdentityID uuid.UUID
	SessionID  uuid.UUID
	Type       TokenType
	jwt.RegisteredClaims
}

// TokenPair is the artifact handed to a client after authentication.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService issues and validates session artifacts.
type TokenService interface {
	GenerateTokens(identityID, sessionID uuid.UUID) (*TokenPair, error)
	GenerateAccessToken(identityID, sessionID uuid.UUID) (string, time.Time, error)

	// ValidateToken checks signature, expiry and that the token is of the
	// expected type.
	ValidateToken(tokenString string, expected TokenType) (*Claims, error)

	// HashToken returns the digest under which a token is persisted.
	HashToken(token string) string
}

// SecretGenerator produces unguessable opaque secrets such as reset tokens
// and OAuth state values.
type SecretGenerator interface {
	NewSecret() (string, error)
}
