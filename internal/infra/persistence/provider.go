// Package persistence selects the credential store backend.
package persistence

import (
	"log/slog"

	"campuseval/config"
	"campuseval/internal/domain/repository"
	"campuseval/internal/errors"
	"campuseval/internal/infra/persistence/mongodb"
	"campuseval/internal/infra/persistence/postgres"

	"go.uber.org/fx"
)

type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

type Repositories struct {
	fx.Out

	Identities repository.IdentityRepository
	Sessions   repository.SessionRepository
}

// NewRepositories opens only the backend named by storage.driver.
func NewRepositories(params Params) (Repositories, error) {
	switch params.Config.Storage.Driver {
	case config.StorageDriverMongo:
		db, err := mongodb.New(mongodb.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return Repositories{}, err
		}

		return Repositories{
			Identities: mongodb.NewIdentityRepository(db),
			Sessions:   mongodb.NewSessionRepository(db),
		}, nil

	case config.StorageDriverPostgres:
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return Repositories{}, err
		}

		return Repositories{
			Identities: postgres.NewIdentityRepository(db),
			Sessions:   postgres.NewSessionRepository(db),
		}, nil

	default:
		return Repositories{}, errors.Errorf("unknown storage driver: %s", params.Config.Storage.Driver)
	}
}

// Module provides the persistence FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewRepositories),
)
