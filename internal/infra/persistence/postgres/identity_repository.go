package postgres

import (
	"context"
	"time"

	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/repository"
	"campuseval/internal/errors"
	"campuseval/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// identityRepository implements repository.IdentityRepository.
type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository is the constructor for identityRepository.
func NewIdentityRepository(db *gorm.DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}

func (repo *identityRepository) Create(ctx context.Context, identity *entity.Identity) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	identityM := fromIdentityDomain(identity)

	if err := repo.db.WithContext(ctx).Create(identityM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrDuplicateAccount.WrapMessage("identity already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required identity information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create identity")
	}

	return nil
}

func (repo *identityRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Identity, error) {
	return repo.findOne(ctx, "id = ?", id)
}

func (repo *identityRepository) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	return repo.findOne(ctx, "email = ?", email)
}

func (repo *identityRepository) FindByExternalSubject(ctx context.Context, subject string) (*entity.Identity, error) {
	return repo.findOne(ctx, "external_subject_id = ?", subject)
}

// LinkExternalSubject only writes when external_subject_id is still NULL, so a
// concurrent link to a different subject cannot be overwritten.
func (repo *identityRepository) LinkExternalSubject(ctx context.Context, id uuid.UUID, subject string) (*entity.Identity, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.IdentityModel{}).
		Where("id = ? AND external_subject_id IS NULL", id).
		Updates(map[string]any{
			"external_subject_id": subject,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return nil, domainerrors.ErrDuplicateAccount.WrapMessage("external subject already linked")
		}

		return nil, domainerrors.NewDatabaseExecuteError(result.Error, "failed to link external subject")
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrIdentityNotFound
	}

	return repo.FindByID(ctx, id)
}

func (repo *identityRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiry time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.IdentityModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reset_token_hash":   tokenHash,
			"reset_token_expiry": expiry.UTC(),
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to set reset token")
	}
	if result.RowsAffected == 0 {
		return repository.ErrIdentityNotFound
	}

	return nil
}

// RedeemResetToken is a compare-and-clear: the UPDATE re-checks the token
// hash and expiry, so of two concurrent redemptions only one affects a row.
func (repo *identityRepository) RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*entity.Identity, error) {
	identityM := &model.IdentityModel{}
	err := repo.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_token_expiry > ?", tokenHash, now.UTC()).
		First(identityM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find reset token")
	}

	updatedAt := time.Now().UTC()
	result := repo.db.WithContext(ctx).
		Model(&model.IdentityModel{}).
		Where("id = ? AND reset_token_hash = ? AND reset_token_expiry > ?", identityM.ID, tokenHash, now.UTC()).
		Updates(map[string]any{
			"password_hash":      passwordHash,
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
			"updated_at":         updatedAt,
		})
	if result.Error != nil {
		return nil, domainerrors.NewDatabaseExecuteError(result.Error, "failed to redeem reset token")
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrIdentityNotFound
	}

	identityM.PasswordHash = passwordHash
	identityM.ResetTokenHash = nil
	identityM.ResetTokenExpiry = nil
	identityM.UpdatedAt = updatedAt

	return toIdentityDomain(identityM), nil
}

func (repo *identityRepository) ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	err := repo.db.WithContext(ctx).
		Model(&model.IdentityModel{}).
		Where("id = ? AND reset_token_hash = ?", id, tokenHash).
		Updates(map[string]any{
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
			"updated_at":         time.Now().UTC(),
		}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to clear reset token")
	}

	return nil
}

func (repo *identityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.IdentityModel{}).Count(&count).Error; err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to count identities")
	}

	return count, nil
}

func (repo *identityRepository) findOne(ctx context.Context, query string, arg any) (*entity.Identity, error) {
	identityM := &model.IdentityModel{}

	if err := repo.db.WithContext(ctx).Where(query, arg).First(identityM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find identity")
	}

	return toIdentityDomain(identityM), nil
}

func fromIdentityDomain(identity *entity.Identity) *model.IdentityModel {
	identityM := &model.IdentityModel{
		ID:               identity.ID,
		Email:            identity.Email,
		PasswordHash:     identity.PasswordHash,
		AuthProvider:     string(identity.AuthProvider),
		ResetTokenExpiry: identity.ResetTokenExpiry,
		CreatedAt:        identity.CreatedAt,
		UpdatedAt:        identity.CreatedAt,
	}
	if identity.ExternalSubjectID != "" {
		subject := identity.ExternalSubjectID
		identityM.ExternalSubjectID = &subject
	}
	if identity.ResetTokenHash != "" {
		tokenHash := identity.ResetTokenHash
		identityM.ResetTokenHash = &tokenHash
	}

	return identityM
}

func toIdentityDomain(identityM *model.IdentityModel) *entity.Identity {
	identity := &entity.Identity{
		ID:               identityM.ID,
		Email:            identityM.Email,
		PasswordHash:     identityM.PasswordHash,
		AuthProvider:     entity.AuthProvider(identityM.AuthProvider),
		ResetTokenExpiry: identityM.ResetTokenExpiry,
		CreatedAt:        identityM.CreatedAt,
	}
	if identityM.ExternalSubjectID != nil {
		identity.ExternalSubjectID = *identityM.ExternalSubjectID
	}
	if identityM.ResetTokenHash != nil {
		identity.ResetTokenHash = *identityM.ResetTokenHash
	}

	return identity
}
