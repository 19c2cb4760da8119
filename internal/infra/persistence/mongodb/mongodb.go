// Package mongodb is the document credential store.
package mongodb

import (
	"context"
	"log/slog"

	"campuseval/config"
	"campuseval/internal/domain/lifecycle"
	"campuseval/internal/errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/fx"
)

const (
	identityCollection = "identities"
	sessionCollection  = "sessions"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New connects to MongoDB and creates the indexes the repositories rely on
// for uniqueness.
func New(params Params) (*mongo.Database, error) {
	cfg := params.Config.Mongo

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MongoDB client")
	}

	db := client.Database(cfg.Database)

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				return errors.Wrap(err, "failed to ping MongoDB")
			}

			if err := EnsureIndexes(ctx, db); err != nil {
				return err
			}

			params.Logger.Info("MongoDB connected", slog.String("database", cfg.Database))

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return errors.WithStack(client.Disconnect(ctx))
		},
	})

	return db, nil
}

// EnsureIndexes is idempotent. The external subject index is partial so
// unlinked identities, which omit the field, never collide.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(identityCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "externalSubjectId", Value: 1}},
			Options: options.Index().
				SetName("uniq_external_subject_id").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"externalSubjectId": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "resetTokenHash", Value: 1}},
			Options: options.Index().SetName("idx_reset_token_hash").SetSparse(true),
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create identity indexes")
	}

	_, err = db.Collection(sessionCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetName("uniq_token_hash").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "identityId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_identity_created"),
		},
		{
			// MongoDB removes expired sessions in the background.
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create session indexes")
	}

	return nil
}
