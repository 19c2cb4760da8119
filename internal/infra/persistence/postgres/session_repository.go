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

// sessionRepository implements repository.SessionRepository.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	if err := repo.db.WithContext(ctx).Create(fromSessionDomain(session)).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	return nil
}

func (repo *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	return repo.findActive(ctx, "token_hash = ?", tokenHash)
}

func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	return repo.findActive(ctx, "id = ?", id)
}

func (repo *sessionRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*entity.Session, error) {
	var sessionModels []*model.SessionModel

	err := repo.db.WithContext(ctx).
		Where("identity_id = ? AND expires_at > ?", identityID, time.Now().UTC()).
		Order("created_at DESC").
		Find(&sessionModels).Error
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list sessions")
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for _, sessionM := range sessionModels {
		sessions = append(sessions, toSessionDomain(sessionM))
	}

	return sessions, nil
}

func (repo *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SessionModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

func (repo *sessionRepository) DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).Where("identity_id = ?", identityID).Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete sessions")
	}

	return result.RowsAffected, nil
}

func (repo *sessionRepository) findActive(ctx context.Context, query string, arg any) (*entity.Session, error) {
	sessionM := &model.SessionModel{}

	err := repo.db.WithContext(ctx).
		Where(query, arg).
		Where("expires_at > ?", time.Now().UTC()).
		First(sessionM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find session")
	}

	return toSessionDomain(sessionM), nil
}

func fromSessionDomain(session *entity.Session) *model.SessionModel {
	return &model.SessionModel{
		ID:         session.ID,
		IdentityID: session.IdentityID,
		TokenHash:  session.TokenHash,
		ExpiresAt:  session.ExpiresAt.UTC(),
		CreatedAt:  session.CreatedAt,
	}
}

func toSessionDomain(sessionM *model.SessionModel) *entity.Session {
	return &entity.Session{
		ID:         sessionM.ID,
		IdentityID: sessionM.IdentityID,
		TokenHash:  sessionM.TokenHash,
		ExpiresAt:  sessionM.ExpiresAt,
		CreatedAt:  sessionM.CreatedAt,
	}
}
