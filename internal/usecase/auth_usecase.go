// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"campuseval/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a local identity.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput defines the data required for a local login.
type LoginInput struct {
	Email    string
	Password string
}

// --- Output DTOs ---

// RegisterOutput returns the newly created identity. No session is issued.
type RegisterOutput struct {
	Identity *entity.Identity
}

// SessionTokens is the artifact returned after any successful authentication.
type SessionTokens struct {
	SessionID        uuid.UUID
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginOutput returns the identity together with its new session.
type LoginOutput struct {
	Identity *entity.Identity
	Tokens   *SessionTokens
}

// LinkOutput reports which branch of external linking was taken.
type LinkOutput struct {
	Identity *entity.Identity
	Linked   bool // an existing identity gained the external subject
	Created  bool // a new external identity was created
}

// AuthUsecase covers local registration, local login and external
// identity linking.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// LinkExternalProfile finds or creates the identity for a profile already
	// verified by the provider: subject match first, then email merge, then
	// creation.
	LinkExternalProfile(ctx context.Context, profile *entity.ExternalProfile) (*LinkOutput, error)

	// BootstrapAdmin seeds the configured account into an empty store.
	BootstrapAdmin(ctx context.Context) error
}
