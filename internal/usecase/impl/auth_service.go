// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"campuseval/config"
	deliverycontext "campuseval/internal/delivery/context"
	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/repository"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
	"campuseval/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// maxLinkAttempts bounds how often linking restarts after losing a race
// against a concurrent link or create for the same subject or email.
const maxLinkAttempts = 3

// errLinkRaced signals that a conditional write lost to a concurrent writer
// and the lookup should start over.
var errLinkRaced = errors.New("external link raced")

// authService implements the AuthUsecase interface.
type authService struct {
	identities repository.IdentityRepository
	sessions   usecase.SessionUsecase
	hasher     service.PasswordHasher
	validator  *credentialValidator
	audit      *auditor
	bootstrap  *config.BootstrapConfig
	logger     *slog.Logger
	now        func() time.Time

	// dummyHash is verified against when the email is unknown so a miss
	// costs as much as a wrong password.
	dummyHash func() string
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Identities repository.IdentityRepository
	Sessions   usecase.SessionUsecase
	Hasher     service.PasswordHasher
	Publisher  service.EventPublisher
	Metrics    service.AuthMetrics
	Config     *config.Config
	Logger     *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return newAuthService(params, time.Now)
}

func newAuthService(params AuthServiceParams, now func() time.Time) *authService {
	srv := &authService{
		identities: params.Identities,
		sessions:   params.Sessions,
		hasher:     params.Hasher,
		validator:  newCredentialValidator(params.Config),
		audit:      newAuditor(params.Publisher, params.Metrics, now),
		logger:     params.Logger,
		now:        now,
	}
	if params.Config != nil {
		srv.bootstrap = params.Config.Bootstrap
	}
	srv.dummyHash = sync.OnceValue(func() string {
		hash, err := srv.hasher.Hash(uuid.NewString())
		if err != nil {
			return ""
		}

		return hash
	})

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a local identity. The store's unique index on email
// decides concurrent registrations; the lookup only avoids a wasted hash.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	email, err := srv.validator.email(input.Email)
	if err != nil {
		return nil, err
	}
	if err := srv.validator.password(input.Password); err != nil {
		return nil, err
	}

	_, err = srv.identities.FindByEmail(ctx, email)
	if err == nil {
		srv.audit.observe(opRegister, outcomeFailure)

		return nil, domainerrors.ErrDuplicateAccount
	}
	if !errors.Is(err, repository.ErrIdentityNotFound) {
		return nil, errors.Wrap(err, "failed to find identity by email")
	}

	passwordHash, err := hashPassword(srv.hasher, input.Password)
	if err != nil {
		return nil, err
	}

	identity := &entity.Identity{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		AuthProvider: entity.AuthProviderLocal,
		CreatedAt:    srv.now().UTC(),
	}
	if err := srv.identities.Create(ctx, identity); err != nil {
		srv.audit.observe(opRegister, outcomeFailure)
		if errors.Is(err, domainerrors.ErrDuplicateAccount) {
			return nil, domainerrors.ErrDuplicateAccount
		}

		return nil, errors.Wrap(err, "failed to create identity")
	}

	srv.log(ctx).Info("Identity registered", slog.Any("identity_id", identity.ID))
	srv.audit.observe(opRegister, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventIdentityRegistered, &identity.ID)

	return &usecase.RegisterOutput{Identity: identity}, nil
}

// Login verifies a local password and opens a session. Every failure is
// reported to the caller as ErrInvalidCredentials; the real reason is only
// logged.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	email := entity.NormalizeEmail(input.Email)

	identity, err := srv.identities.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, errors.Wrap(err, "failed to find identity by email")
		}
		// Burn the same work as a real verification.
		_, _ = srv.hasher.Check(input.Password, srv.dummyHash())

		return nil, srv.loginFailed(ctx, nil, "unknown email")
	}

	if !identity.HasPassword() {
		_, _ = srv.hasher.Check(input.Password, srv.dummyHash())

		return nil, srv.loginFailed(ctx, &identity.ID, "identity has no password")
	}

	ok, err := srv.hasher.Check(input.Password, identity.PasswordHash)
	if err != nil {
		srv.log(ctx).Error("Stored password hash is malformed",
			slog.Any("identity_id", identity.ID),
			slog.Any("error", err))

		return nil, srv.loginFailed(ctx, &identity.ID, "malformed password hash")
	}
	if !ok {
		return nil, srv.loginFailed(ctx, &identity.ID, "password mismatch")
	}

	tokens, err := srv.sessions.Issue(ctx, identity.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session")
	}

	srv.log(ctx).Info("Login succeeded", slog.Any("identity_id", identity.ID))
	srv.audit.observe(opLogin, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventLoginSucceeded, &identity.ID)

	return &usecase.LoginOutput{Identity: identity, Tokens: tokens}, nil
}

func (srv *authService) loginFailed(ctx context.Context, identityID *uuid.UUID, reason string) error {
	srv.log(ctx).Info("Login failed", slog.String("reason", reason), slog.Any("identity_id", identityID))
	srv.audit.observe(opLogin, outcomeFailure)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventLoginFailed, identityID)

	return domainerrors.ErrInvalidCredentials.WrapMessage(reason)
}

// LinkExternalProfile matches by subject first, then merges onto an identity
// with the same email, and only then creates a new external identity.
func (srv *authService) LinkExternalProfile(ctx context.Context, profile *entity.ExternalProfile) (*usecase.LinkOutput, error) {
	if profile == nil || profile.Subject == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("external profile has no subject")
	}
	email := entity.NormalizeEmail(profile.Email)
	if email == "" {
		srv.audit.observe(opOAuthLink, outcomeFailure)

		return nil, domainerrors.ErrMissingProviderEmail
	}

	for attempt := 1; attempt <= maxLinkAttempts; attempt++ {
		out, err := srv.linkOnce(ctx, profile.Subject, email)
		if errors.Is(err, errLinkRaced) {
			srv.log(ctx).Debug("External link raced, retrying", slog.Int("attempt", attempt))

			continue
		}
		if err != nil {
			srv.audit.observe(opOAuthLink, outcomeFailure)

			return nil, err
		}

		srv.audit.observe(opOAuthLink, outcomeSuccess)
		switch {
		case out.Created:
			srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventOAuthCreated, &out.Identity.ID)
		case out.Linked:
			srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventOAuthLinked, &out.Identity.ID)
		}

		return out, nil
	}

	srv.audit.observe(opOAuthLink, outcomeFailure)

	return nil, errors.Wrap(domainerrors.ErrDuplicateAccount, "external link did not settle")
}

func (srv *authService) linkOnce(ctx context.Context, subject, email string) (*usecase.LinkOutput, error) {
	identity, err := srv.identities.FindByExternalSubject(ctx, subject)
	if err == nil {
		return &usecase.LinkOutput{Identity: identity}, nil
	}
	if !errors.Is(err, repository.ErrIdentityNotFound) {
		return nil, errors.Wrap(err, "failed to find identity by external subject")
	}

	identity, err = srv.identities.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return srv.mergeSubject(ctx, identity, subject)
	case errors.Is(err, repository.ErrIdentityNotFound):
		return srv.createExternal(ctx, subject, email)
	default:
		return nil, errors.Wrap(err, "failed to find identity by email")
	}
}

func (srv *authService) mergeSubject(ctx context.Context, identity *entity.Identity, subject string) (*usecase.LinkOutput, error) {
	if identity.IsLinked() {
		srv.log(ctx).Warn("Email already linked to another external subject",
			slog.Any("identity_id", identity.ID))

		return nil, domainerrors.ErrDuplicateAccount.WrapMessage("email linked to another external account")
	}

	linked, err := srv.identities.LinkExternalSubject(ctx, identity.ID, subject)
	if errors.Is(err, repository.ErrIdentityNotFound) || errors.Is(err, domainerrors.ErrDuplicateAccount) {
		return nil, errLinkRaced
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to link external subject")
	}

	srv.log(ctx).Info("External subject linked to existing identity", slog.Any("identity_id", linked.ID))

	return &usecase.LinkOutput{Identity: linked, Linked: true}, nil
}

func (srv *authService) createExternal(ctx context.Context, subject, email string) (*usecase.LinkOutput, error) {
	identity := &entity.Identity{
		ID:                uuid.New(),
		Email:             email,
		ExternalSubjectID: subject,
		AuthProvider:      entity.AuthProviderExternal,
		CreatedAt:         srv.now().UTC(),
	}
	if err := srv.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateAccount) {
			return nil, errLinkRaced
		}

		return nil, errors.Wrap(err, "failed to create external identity")
	}

	srv.log(ctx).Info("External identity created", slog.Any("identity_id", identity.ID))

	return &usecase.LinkOutput{Identity: identity, Created: true}, nil
}

// BootstrapAdmin creates the configured account when the store is empty.
func (srv *authService) BootstrapAdmin(ctx context.Context) error {
	if srv.bootstrap == nil || srv.bootstrap.AdminEmail == "" {
		return nil
	}

	count, err := srv.identities.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to count identities")
	}
	if count > 0 {
		srv.log(ctx).Debug("Credential store not empty, skipping bootstrap", slog.Int64("identities", count))

		return nil
	}

	email, err := srv.validator.email(srv.bootstrap.AdminEmail)
	if err != nil {
		return errors.Wrap(err, "invalid bootstrap admin email")
	}
	if err := srv.validator.password(srv.bootstrap.AdminPassword); err != nil {
		return errors.Wrap(err, "invalid bootstrap admin password")
	}

	passwordHash, err := hashPassword(srv.hasher, srv.bootstrap.AdminPassword)
	if err != nil {
		return err
	}

	identity := &entity.Identity{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		AuthProvider: entity.AuthProviderLocal,
		CreatedAt:    srv.now().UTC(),
	}
	if err := srv.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateAccount) {
			srv.log(ctx).Info("Admin identity already bootstrapped")

			return nil
		}

		return errors.Wrap(err, "failed to create admin identity")
	}

	srv.log(ctx).Info("Admin identity bootstrapped", slog.Any("identity_id", identity.ID))
	srv.audit.observe(opBootstrap, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventIdentityRegistered, &identity.ID)

	return nil
}

// hashPassword reports every hasher failure as ErrHashingFailed.
func hashPassword(hasher service.PasswordHasher, password string) (string, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		if errors.Is(err, domainerrors.ErrHashingFailed) {
			return "", err
		}

		return "", domainerrors.ErrHashingFailed.WrapMessage(err.Error())
	}

	return hash, nil
}
