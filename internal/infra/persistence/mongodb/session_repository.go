package mongodb

import (
	"context"
	"time"

	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/repository"
	"campuseval/internal/errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type sessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &sessionRepository{coll: db.Collection(sessionCollection)}
}

func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	if _, err := repo.coll.InsertOne(ctx, fromSessionDomain(session)); err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	return nil
}

// The TTL monitor runs about once a minute, so expiry is also checked here.
func (repo *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	return repo.findActive(ctx, bson.M{"tokenHash": tokenHash})
}

func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	return repo.findActive(ctx, bson.M{"_id": id.String()})
}

func (repo *sessionRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]*entity.Session, error) {
	filter := bson.M{
		"identityId": identityID.String(),
		"expiresAt":  bson.M{"$gt": time.Now().UTC()},
	}

	cursor, err := repo.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list sessions")
	}

	var docs []*sessionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to decode sessions")
	}

	sessions := make([]*entity.Session, 0, len(docs))
	for _, doc := range docs {
		session, err := toSessionDomain(doc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (repo *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete session")
	}
	if result.DeletedCount == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

func (repo *sessionRepository) DeleteByIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	result, err := repo.coll.DeleteMany(ctx, bson.M{"identityId": identityID.String()})
	if err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to delete sessions")
	}

	return result.DeletedCount, nil
}

func (repo *sessionRepository) findActive(ctx context.Context, filter bson.M) (*entity.Session, error) {
	filter["expiresAt"] = bson.M{"$gt": time.Now().UTC()}

	var doc sessionDocument
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find session")
	}

	return toSessionDomain(&doc)
}
