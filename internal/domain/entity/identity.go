// Package entity contains the core business objects of the auth service.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuthProvider records how an identity was first established. It is
// informational only: a local identity may later gain an external subject and
// an external identity may later gain a password.
type AuthProvider string

const (
	AuthProviderLocal    AuthProvider = "local"
	AuthProviderExternal AuthProvider = "external"
)

// Identity is one stored account, keyed by its normalized email.
type Identity struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string // empty for OAuth-only identities
	ExternalSubjectID string // empty until linked to an external provider
	AuthProvider      AuthProvider

	// ResetTokenHash is the SHA-256 hex digest of the outstanding reset token.
	// It and ResetTokenExpiry are set and cleared together.
	ResetTokenHash   string
	ResetTokenExpiry *time.Time

	CreatedAt time.Time
}

// HasPassword reports whether local login is possible for this identity.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// IsLinked reports whether an external provider subject is attached.
func (i *Identity) IsLinked() bool {
	return i.ExternalSubjectID != ""
}

// HasPendingReset reports whether a reset token is outstanding at now.
func (i *Identity) HasPendingReset(now time.Time) bool {
	return i.ResetTokenHash != "" && i.ResetTokenExpiry != nil && i.ResetTokenExpiry.After(now)
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Every lookup and write keys on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
