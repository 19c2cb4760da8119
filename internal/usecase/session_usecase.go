package usecase

import (
	"context"
	"time"

	"campuseval/internal/domain/entity"

	"github.com/google/uuid"
)

type RefreshInput struct {
	RefreshToken string
}

type RefreshOutput struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

type LogoutInput struct {
	RefreshToken string
}

// ResolvedSession is what an access token maps back to.
type ResolvedSession struct {
	Identity  *entity.Identity
	SessionID uuid.UUID
}

// SessionInfo describes one active login of an identity.
type SessionInfo struct {
	ID        uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	Current   bool
}

// SessionUsecase issues and manages session artifacts.
type SessionUsecase interface {
	// Issue opens a new session for identityID. Existing sessions stay valid.
	Issue(ctx context.Context, identityID uuid.UUID) (*SessionTokens, error)

	// Resolve maps an access token back to its identity, failing when the
	// session has been revoked.
	Resolve(ctx context.Context, accessToken string) (*ResolvedSession, error)

	Refresh(ctx context.Context, input *RefreshInput) (*RefreshOutput, error)
	Logout(ctx context.Context, input *LogoutInput) error
	LogoutAll(ctx context.Context, identityID uuid.UUID) (int64, error)
	ListSessions(ctx context.Context, identityID, currentSessionID uuid.UUID) ([]*SessionInfo, error)
	RevokeSession(ctx context.Context, identityID, sessionID uuid.UUID) error
}
