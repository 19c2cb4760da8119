package impl

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"campuseval/config"
	deliverycontext "campuseval/internal/delivery/context"
	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/repository"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
	"campuseval/internal/usecase"

	"go.uber.org/fx"
)

type passwordResetService struct {
	identities repository.IdentityRepository
	sessions   repository.SessionRepository
	hasher     service.PasswordHasher
	tokens     service.TokenService
	secrets    service.SecretGenerator
	mailer     service.Mailer
	renderer   service.EmailRenderer
	validator  *credentialValidator
	audit      *auditor
	logger     *slog.Logger
	now        func() time.Time

	tokenTTL                    time.Duration
	linkBaseURL                 string
	clearTokenOnDeliveryFailure bool
}

// PasswordResetServiceParams holds dependencies for PasswordResetService, injected by Fx.
type PasswordResetServiceParams struct {
	fx.In

	Identities repository.IdentityRepository
	Sessions   repository.SessionRepository
	Hasher     service.PasswordHasher
	Tokens     service.TokenService
	Secrets    service.SecretGenerator
	Mailer     service.Mailer
	Renderer   service.EmailRenderer
	Publisher  service.EventPublisher
	Metrics    service.AuthMetrics
	Config     *config.Config
	Logger     *slog.Logger
}

func NewPasswordResetService(params PasswordResetServiceParams) usecase.PasswordResetUsecase {
	return newPasswordResetService(params, time.Now)
}

func newPasswordResetService(params PasswordResetServiceParams, now func() time.Time) *passwordResetService {
	return &passwordResetService{
		identities:                  params.Identities,
		sessions:                    params.Sessions,
		hasher:                      params.Hasher,
		tokens:                      params.Tokens,
		secrets:                     params.Secrets,
		mailer:                      params.Mailer,
		renderer:                    params.Renderer,
		validator:                   newCredentialValidator(params.Config),
		audit:                       newAuditor(params.Publisher, params.Metrics, now),
		logger:                      params.Logger,
		now:                         now,
		tokenTTL:                    params.Config.PasswordReset.TokenTTL,
		linkBaseURL:                 params.Config.PasswordReset.LinkBaseURL,
		clearTokenOnDeliveryFailure: params.Config.ClearTokenOnDeliveryFailure(),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *passwordResetService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RequestReset moves the identity into the pending state, replacing any
// outstanding token, and mails the redemption link.
func (srv *passwordResetService) RequestReset(ctx context.Context, input *usecase.RequestResetInput) error {
	email, err := srv.validator.email(input.Email)
	if err != nil {
		return err
	}

	identity, err := srv.identities.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		srv.log(ctx).Info("Password reset requested for unknown email")
		srv.audit.observe(opResetRequest, outcomeIgnored)

		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to find identity by email")
	}

	token, err := srv.secrets.NewSecret()
	if err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}
	tokenHash := srv.tokens.HashToken(token)
	expiry := srv.now().UTC().Add(srv.tokenTTL)

	if err := srv.identities.SetResetToken(ctx, identity.ID, tokenHash, expiry); err != nil {
		return errors.Wrap(err, "failed to store reset token")
	}

	link, err := buildResetLink(srv.linkBaseURL, token)
	if err != nil {
		return srv.deliveryFailed(ctx, identity, tokenHash, err)
	}

	message, err := srv.renderer.RenderPasswordReset(identity.Email, link, srv.tokenTTL)
	if err != nil {
		return srv.deliveryFailed(ctx, identity, tokenHash, err)
	}

	if err := srv.mailer.Send(ctx, message); err != nil {
		return srv.deliveryFailed(ctx, identity, tokenHash, err)
	}

	srv.log(ctx).Info("Password reset email sent",
		slog.Any("identity_id", identity.ID),
		slog.Time("expires_at", expiry))
	srv.audit.observe(opResetRequest, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventResetRequested, &identity.ID)

	return nil
}

// deliveryFailed optionally withdraws the undelivered token. The clear is
// conditional, so a newer token issued meanwhile survives.
func (srv *passwordResetService) deliveryFailed(ctx context.Context, identity *entity.Identity, tokenHash string, cause error) error {
	logger := srv.log(ctx)
	logger.Error("Password reset email could not be delivered",
		slog.Any("identity_id", identity.ID),
		slog.Any("error", cause))
	srv.audit.observe(opResetRequest, outcomeDeliveryFailed)

	if srv.clearTokenOnDeliveryFailure {
		err := srv.identities.ClearResetToken(ctx, identity.ID, tokenHash)
		if err != nil && !errors.Is(err, repository.ErrIdentityNotFound) {
			logger.Error("Failed to clear undelivered reset token",
				slog.Any("identity_id", identity.ID),
				slog.Any("error", err))
		}
	}

	return domainerrors.ErrDeliveryFailed.WrapMessage(cause.Error())
}

// RedeemReset consumes the token and sets the new password in one
// conditional write, then revokes every session of the identity.
func (srv *passwordResetService) RedeemReset(ctx context.Context, input *usecase.RedeemResetInput) error {
	if input.Token == "" {
		return domainerrors.ErrValidationFailed.WithDetails("token is required")
	}
	if err := srv.validator.password(input.NewPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(srv.hasher, input.NewPassword)
	if err != nil {
		return err
	}

	identity, err := srv.identities.RedeemResetToken(ctx, srv.tokens.HashToken(input.Token), passwordHash, srv.now().UTC())
	if errors.Is(err, repository.ErrIdentityNotFound) {
		srv.log(ctx).Info("Password reset redemption rejected")
		srv.audit.observe(opResetRedeem, outcomeFailure)

		return domainerrors.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return errors.Wrap(err, "failed to redeem reset token")
	}

	revoked, err := srv.sessions.DeleteByIdentity(ctx, identity.ID)
	if err != nil {
		srv.log(ctx).Error("Failed to revoke sessions after password reset",
			slog.Any("identity_id", identity.ID),
			slog.Any("error", err))
	}

	srv.log(ctx).Info("Password reset redeemed",
		slog.Any("identity_id", identity.ID),
		slog.Int64("sessions_revoked", revoked))
	srv.audit.observe(opResetRedeem, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventResetRedeemed, &identity.ID)

	return nil
}

func buildResetLink(base, token string) (string, error) {
	link, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "invalid reset link base URL")
	}

	query := link.Query()
	query.Set("token", token)
	link.RawQuery = query.Encode()

	return link.String(), nil
}
