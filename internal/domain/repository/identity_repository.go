// Package repository defines the persistence contracts the use cases depend on.
package repository

import (
	"context"
	"time"

	"campuseval/internal/domain/entity"
	"campuseval/internal/errors"

	"github.com/google/uuid"
)

// ErrIdentityNotFound is returned when no identity matches a lookup or a
// conditional write.
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository is the credential store. Implementations enforce
// uniqueness of email and external subject in the store itself and report
// violations as domainerrors.ErrDuplicateAccount.
type IdentityRepository interface {
	// Create inserts a new identity. ID and CreatedAt are assigned when zero.
	Create(ctx context.Context, identity *entity.Identity) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Identity, error)
	FindByEmail(ctx context.Context, email string) (*entity.Identity, error)
	FindByExternalSubject(ctx context.Context, subject string) (*entity.Identity, error)

	// LinkExternalSubject attaches subject to the identity only if it has none
	// yet and returns the updated record. ErrIdentityNotFound means the
	// identity is gone or already linked to another subject.
	LinkExternalSubject(ctx context.Context, id uuid.UUID, subject string) (*entity.Identity, error)

	// SetResetToken replaces any outstanding reset token of the identity.
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiry time.Time) error

	// RedeemResetToken atomically matches tokenHash with an expiry after now,
	// stores passwordHash and clears both reset fields. At most one caller
	// can succeed for a given token.
	RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*entity.Identity, error)

	// ClearResetToken clears the reset fields only while tokenHash is still
	// the outstanding token.
	ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) error

	Count(ctx context.Context) (int64, error)
}
