package service

import (
	"context"
	"time"

	"campuseval/internal/domain/entity"
	"campuseval/internal/errors"
)

// ErrOAuthStateNotFound is returned when a state value is unknown, expired
// or already consumed.
var ErrOAuthStateNotFound = errors.New("oauth state not found")

// OAuthProvider performs the provider side of an external sign-in and hands
// back a verified profile.
type OAuthProvider interface {
	// AuthCodeURL builds the consent URL for state with a PKCE challenge
	// derived from verifier.
	AuthCodeURL(state, verifier string) string

	// Exchange trades an authorization code for a verified profile.
	Exchange(ctx context.Context, code, verifier string) (*entity.ExternalProfile, error)

	// VerifyIDToken validates an ID token obtained by the client directly.
	VerifyIDToken(ctx context.Context, idToken string) (*entity.ExternalProfile, error)
}

// OAuthStateStore keeps pending sign-in state values and their PKCE
// verifiers. Consume is single use.
type OAuthStateStore interface {
	Save(ctx context.Context, state, verifier string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (string, error)
}
