package mail

import (
	"context"
	"log/slog"

	"campuseval/config"
	"campuseval/internal/domain/lifecycle"
	"campuseval/internal/domain/service"

	"go.uber.org/fx"
)

type MailerParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewMailer picks SMTP when smtp.host is set and checks the relay at startup.
func NewMailer(params MailerParams) service.Mailer {
	cfg := params.Config.SMTP
	if cfg == nil || cfg.Host == "" {
		params.Logger.Warn("SMTP not configured, password reset emails will be logged instead of sent")

		return NewConsoleMailer(params.Logger)
	}

	mailer := NewSMTPMailer(cfg, params.Logger)

	params.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := mailer.Ping(pingCtx); err != nil {
				// Startup continues; requests fail with a delivery error until the relay recovers.
				params.Logger.Error("SMTP relay unreachable", slog.String("host", cfg.Host), slog.Any("error", err))

				return nil
			}
			params.Logger.Info("SMTP relay verified", slog.String("host", cfg.Host))

			return nil
		},
	})

	return mailer
}

// Module provides the mail FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(
		NewMailer,
		NewTemplateRenderer,
	),
)
