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

type identityRepository struct {
	coll *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) repository.IdentityRepository {
	return &identityRepository{coll: db.Collection(identityCollection)}
}

func (repo *identityRepository) Create(ctx context.Context, identity *entity.Identity) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	if _, err := repo.coll.InsertOne(ctx, fromIdentityDomain(identity)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainerrors.ErrDuplicateAccount.WrapMessage("identity already exists")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create identity")
	}

	return nil
}

func (repo *identityRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Identity, error) {
	return repo.findOne(ctx, bson.M{"_id": id.String()})
}

func (repo *identityRepository) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	return repo.findOne(ctx, bson.M{"email": email})
}

func (repo *identityRepository) FindByExternalSubject(ctx context.Context, subject string) (*entity.Identity, error) {
	return repo.findOne(ctx, bson.M{"externalSubjectId": subject})
}

func (repo *identityRepository) LinkExternalSubject(ctx context.Context, id uuid.UUID, subject string) (*entity.Identity, error) {
	filter := bson.M{
		"_id":               id.String(),
		"externalSubjectId": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"externalSubjectId": subject}}

	identity, err := repo.findOneAndUpdate(ctx, filter, update)
	if err != nil && mongo.IsDuplicateKeyError(errors.Cause(err)) {
		return nil, domainerrors.ErrDuplicateAccount.WrapMessage("external subject already linked")
	}

	return identity, err
}

func (repo *identityRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiry time.Time) error {
	result, err := repo.coll.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{
			"resetTokenHash":   tokenHash,
			"resetTokenExpiry": expiry.UTC(),
		}},
	)
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to set reset token")
	}
	if result.MatchedCount == 0 {
		return repository.ErrIdentityNotFound
	}

	return nil
}

// RedeemResetToken matches, updates and clears in one findAndModify, so the
// token can be spent at most once.
func (repo *identityRepository) RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*entity.Identity, error) {
	filter := bson.M{
		"resetTokenHash":   tokenHash,
		"resetTokenExpiry": bson.M{"$gt": now.UTC()},
	}
	update := bson.M{
		"$set":   bson.M{"passwordHash": passwordHash},
		"$unset": bson.M{"resetTokenHash": "", "resetTokenExpiry": ""},
	}

	return repo.findOneAndUpdate(ctx, filter, update)
}

func (repo *identityRepository) ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	_, err := repo.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "resetTokenHash": tokenHash},
		bson.M{"$unset": bson.M{"resetTokenHash": "", "resetTokenExpiry": ""}},
	)
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to clear reset token")
	}

	return nil
}

func (repo *identityRepository) Count(ctx context.Context) (int64, error) {
	count, err := repo.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to count identities")
	}

	return count, nil
}

func (repo *identityRepository) findOne(ctx context.Context, filter bson.M) (*entity.Identity, error) {
	var doc identityDocument
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find identity")
	}

	return toIdentityDomain(&doc)
}

func (repo *identityRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*entity.Identity, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc identityDocument
	if err := repo.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toIdentityDomain(&doc)
}
