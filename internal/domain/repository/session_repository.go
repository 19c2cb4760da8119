package repository

import (
	"context"

	"campuseval/internal/domain/entity"
	"campuseval/internal/errors"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session does not exist or has expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists issued logins.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error

	// FindByTokenHash returns only unexpired sessions.
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)

	// FindByID returns only unexpired sessions.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	// ListByIdentity returns the unexpired sessions of an identity, newest first.
	ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*entity.Session, error)

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error)
}
