package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuthEventType names an auditable auth outcome.
type AuthEventType string

const (
	AuthEventIdentityRegistered AuthEventType = "identity.registered"
	AuthEventLoginSucceeded     AuthEventType = "login.succeeded"
	AuthEventLoginFailed        AuthEventType = "login.failed"
	AuthEventOAuthLinked        AuthEventType = "oauth.linked"
	AuthEventOAuthCreated       AuthEventType = "oauth.created"
	AuthEventResetRequested     AuthEventType = "reset.requested"
	AuthEventResetRedeemed      AuthEventType = "reset.redeemed"
	AuthEventSessionRevoked     AuthEventType = "session.revoked"
)

// AuthEvent is published after an auth operation completes. It never carries
// token material or the email of a failed login attempt.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	IdentityID *uuid.UUID    `json:"identity_id,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
