package mongodb

import (
	"time"

	"campuseval/internal/domain/entity"
	"campuseval/internal/errors"

	"github.com/google/uuid"
)

// identityDocument is stored in the identities collection. Optional fields
// are omitted rather than stored empty.
type identityDocument struct {
	ID                string     `bson:"_id"`
	Email             string     `bson:"email"`
	PasswordHash      string     `bson:"passwordHash,omitempty"`
	ExternalSubjectID string     `bson:"externalSubjectId,omitempty"`
	AuthProvider      string     `bson:"authProvider"`
	ResetTokenHash    string     `bson:"resetTokenHash,omitempty"`
	ResetTokenExpiry  *time.Time `bson:"resetTokenExpiry,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt"`
}

type sessionDocument struct {
	ID         string    `bson:"_id"`
	IdentityID string    `bson:"identityId"`
	TokenHash  string    `bson:"tokenHash"`
	ExpiresAt  time.Time `bson:"expiresAt"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func fromIdentityDomain(identity *entity.Identity) *identityDocument {
	return &identityDocument{
		ID:                identity.ID.String(),
		Email:             identity.Email,
		PasswordHash:      identity.PasswordHash,
		ExternalSubjectID: identity.ExternalSubjectID,
		AuthProvider:      string(identity.AuthProvider),
		ResetTokenHash:    identity.ResetTokenHash,
		ResetTokenExpiry:  identity.ResetTokenExpiry,
		CreatedAt:         identity.CreatedAt,
	}
}

func toIdentityDomain(doc *identityDocument) (*entity.Identity, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed identity id %q", doc.ID)
	}

	identity := &entity.Identity{
		ID:                id,
		Email:             doc.Email,
		PasswordHash:      doc.PasswordHash,
		ExternalSubjectID: doc.ExternalSubjectID,
		AuthProvider:      entity.AuthProvider(doc.AuthProvider),
		ResetTokenHash:    doc.ResetTokenHash,
		CreatedAt:         doc.CreatedAt.UTC(),
	}
	if doc.ResetTokenExpiry != nil {
		expiry := doc.ResetTokenExpiry.UTC()
		identity.ResetTokenExpiry = &expiry
	}

	return identity, nil
}

func fromSessionDomain(session *entity.Session) *sessionDocument {
	return &sessionDocument{
		ID:         session.ID.String(),
		IdentityID: session.IdentityID.String(),
		TokenHash:  session.TokenHash,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
	}
}

func toSessionDomain(doc *sessionDocument) (*entity.Session, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed session id %q", doc.ID)
	}
	identityID, err := uuid.Parse(doc.IdentityID)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed identity id %q", doc.IdentityID)
	}

	return &entity.Session{
		ID:         id,
		IdentityID: identityID,
		TokenHash:  doc.TokenHash,
		ExpiresAt:  doc.ExpiresAt.UTC(),
		CreatedAt:  doc.CreatedAt.UTC(),
	}, nil
}
