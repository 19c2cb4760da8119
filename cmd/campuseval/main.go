package main

import (
	"context"
	"log/slog"
	"os"

	"campuseval/config"
	"campuseval/internal/delivery"
	"campuseval/internal/delivery/api"
	"campuseval/internal/delivery/api/middleware"
	"campuseval/internal/delivery/api/router/handler"
	"campuseval/internal/domain/lifecycle"
	"campuseval/internal/infra/auth"
	"campuseval/internal/infra/auth/google"
	logs "campuseval/internal/infra/log"
	"campuseval/internal/infra/mail"
	"campuseval/internal/infra/metrics"
	"campuseval/internal/infra/persistence"
	"campuseval/internal/infra/pubsub"
	"campuseval/internal/infra/statestore"
	"campuseval/internal/usecase"
	"campuseval/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

type bootstrapParams struct {
	fx.In
	fx.Lifecycle

	AuthUC usecase.AuthUsecase
	Logger *slog.Logger
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			bootstrapAdmin,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
		),
		persistence.Module,
		statestore.Module,
		mail.Module,
		metrics.Module,
		pubsub.Module,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewPasswordHasher,
			auth.NewJWTService,
			auth.NewSecretGenerator,
			google.NewProvider,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewSessionService,
			impl.NewAuthService,
			impl.NewPasswordResetService,
			impl.NewOAuthService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewOAuthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// bootstrapAdmin seeds the configured admin account before the server starts.
func bootstrapAdmin(params bootstrapParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := params.AuthUC.BootstrapAdmin(ctx); err != nil {
				params.Logger.Error("Failed to bootstrap admin account", slog.Any("error", err))

				return err
			}

			return nil
		},
	})
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
