package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is one issued login. An identity may hold any number of sessions at
// once; each is bound to exactly one identity.
type Session struct {
	ID         uuid.UUID
	IdentityID uuid.UUID
	TokenHash  string // SHA-256 hex digest of the refresh token
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ExternalProfile carries identity claims already verified by an external
// OAuth provider.
type ExternalProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
