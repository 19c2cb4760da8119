package impl

import (
	"context"
	"log/slog"
	"time"

	"campuseval/config"
	deliverycontext "campuseval/internal/delivery/context"
	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
	"campuseval/internal/usecase"

	"go.uber.org/fx"
)

type oauthService struct {
	provider service.OAuthProvider
	states   service.OAuthStateStore
	secrets  service.SecretGenerator
	auth     usecase.AuthUsecase
	sessions usecase.SessionUsecase
	audit    *auditor
	stateTTL time.Duration
	logger   *slog.Logger
}

// OAuthServiceParams holds dependencies for OAuthService, injected by Fx.
// Provider is nil when Google sign-in is not configured.
type OAuthServiceParams struct {
	fx.In

	Provider  service.OAuthProvider `optional:"true"`
	States    service.OAuthStateStore
	Secrets   service.SecretGenerator
	Auth      usecase.AuthUsecase
	Sessions  usecase.SessionUsecase
	Publisher service.EventPublisher
	Metrics   service.AuthMetrics
	Config    *config.Config
	Logger    *slog.Logger
}

func NewOAuthService(params OAuthServiceParams) usecase.OAuthUsecase {
	var stateTTL time.Duration
	if params.Config != nil && params.Config.GoogleOAuth != nil {
		stateTTL = params.Config.GoogleOAuth.StateTTL
	}

	return &oauthService{
		provider: params.Provider,
		states:   params.States,
		secrets:  params.Secrets,
		auth:     params.Auth,
		sessions: params.Sessions,
		audit:    newAuditor(params.Publisher, params.Metrics, time.Now),
		stateTTL: stateTTL,
		logger:   params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *oauthService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// BeginGoogleLogin stores a fresh state and PKCE verifier and returns the
// consent URL.
func (srv *oauthService) BeginGoogleLogin(ctx context.Context) (*usecase.OAuthBeginOutput, error) {
	if srv.provider == nil {
		return nil, domainerrors.ErrOAuthNotConfigured
	}

	state, err := srv.secrets.NewSecret()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate oauth state")
	}
	verifier, err := srv.secrets.NewSecret()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate pkce verifier")
	}

	if err := srv.states.Save(ctx, state, verifier, srv.stateTTL); err != nil {
		return nil, errors.Wrap(err, "failed to save oauth state")
	}

	return &usecase.OAuthBeginOutput{
		AuthorizationURL: srv.provider.AuthCodeURL(state, verifier),
		State:            state,
	}, nil
}

// CompleteGoogleLogin consumes the state and trades the code for a verified
// profile, then links and signs in.
func (srv *oauthService) CompleteGoogleLogin(ctx context.Context, input *usecase.OAuthCallbackInput) (*usecase.LoginOutput, error) {
	if srv.provider == nil {
		return nil, domainerrors.ErrOAuthNotConfigured
	}
	if input.State == "" || input.Code == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("state and code are required")
	}

	verifier, err := srv.states.Consume(ctx, input.State)
	if errors.Is(err, service.ErrOAuthStateNotFound) {
		srv.audit.observe(opOAuthLogin, outcomeFailure)

		return nil, domainerrors.ErrInvalidOAuthState
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to consume oauth state")
	}

	profile, err := srv.provider.Exchange(ctx, input.Code, verifier)
	if err != nil {
		srv.log(ctx).Warn("Google code exchange failed", slog.Any("error", err))
		srv.audit.observe(opOAuthLogin, outcomeFailure)

		return nil, domainerrors.ErrOAuthExchangeFailed.WrapMessage(err.Error())
	}

	return srv.signIn(ctx, profile)
}

// GoogleIDTokenLogin signs in a client that already holds a Google ID token.
func (srv *oauthService) GoogleIDTokenLogin(ctx context.Context, input *usecase.IDTokenLoginInput) (*usecase.LoginOutput, error) {
	if srv.provider == nil {
		return nil, domainerrors.ErrOAuthNotConfigured
	}
	if input.IDToken == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("idToken is required")
	}

	profile, err := srv.provider.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		srv.log(ctx).Info("Google ID token rejected", slog.Any("error", err))
		srv.audit.observe(opOAuthLogin, outcomeFailure)

		return nil, domainerrors.ErrUnauthorized.WrapMessage(err.Error())
	}

	return srv.signIn(ctx, profile)
}

func (srv *oauthService) signIn(ctx context.Context, profile *entity.ExternalProfile) (*usecase.LoginOutput, error) {
	linked, err := srv.auth.LinkExternalProfile(ctx, profile)
	if err != nil {
		srv.audit.observe(opOAuthLogin, outcomeFailure)

		return nil, err
	}

	tokens, err := srv.sessions.Issue(ctx, linked.Identity.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session")
	}

	srv.log(ctx).Info("Google sign-in succeeded",
		slog.Any("identity_id", linked.Identity.ID),
		slog.Bool("linked", linked.Linked),
		slog.Bool("created", linked.Created))
	srv.audit.observe(opOAuthLogin, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventLoginSucceeded, &linked.Identity.ID)

	return &usecase.LoginOutput{Identity: linked.Identity, Tokens: tokens}, nil
}
