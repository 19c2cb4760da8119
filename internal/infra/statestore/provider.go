// Package statestore keeps pending OAuth state values and their PKCE
// verifiers between the redirect to the provider and the callback.
package statestore

import (
	"context"
	"log/slog"

	"campuseval/config"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type StoreParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewStateStore uses Redis when redis.addr is set so state survives across
// replicas, and an in-process map otherwise.
func NewStateStore(params StoreParams) service.OAuthStateStore {
	cfg := params.Config.Redis
	if cfg == nil || cfg.Addr == "" {
		params.Logger.Info("Redis not configured, keeping OAuth state in process")

		return NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	params.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "ping redis")
			}
			params.Logger.Info("Redis state store connected", slog.String("addr", cfg.Addr))

			return nil
		},
		OnStop: func(context.Context) error {
			return errors.WithStack(client.Close())
		},
	})

	return NewRedisStore(client)
}

// Module provides the OAuth state store FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewStateStore),
)
