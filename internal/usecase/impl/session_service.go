package impl

import (
	"context"
	"log/slog"
	"time"

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

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	identities repository.IdentityRepository
	sessions   repository.SessionRepository
	tokens     service.TokenService
	audit      *auditor
	logger     *slog.Logger
	now        func() time.Time
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	Identities repository.IdentityRepository
	Sessions   repository.SessionRepository
	Tokens     service.TokenService
	Publisher  service.EventPublisher
	Metrics    service.AuthMetrics
	Logger     *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return newSessionService(params, time.Now)
}

func newSessionService(params SessionServiceParams, now func() time.Time) *sessionService {
	return &sessionService{
		identities: params.Identities,
		sessions:   params.Sessions,
		tokens:     params.Tokens,
		audit:      newAuditor(params.Publisher, params.Metrics, now),
		logger:     params.Logger,
		now:        now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Issue mints an access/refresh pair bound to a fresh session.
func (srv *sessionService) Issue(ctx context.Context, identityID uuid.UUID) (*usecase.SessionTokens, error) {
	sessionID := uuid.New()

	pair, err := srv.tokens.GenerateTokens(identityID, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate tokens")
	}

	session := &entity.Session{
		ID:         sessionID,
		IdentityID: identityID,
		TokenHash:  srv.tokens.HashToken(pair.RefreshToken),
		ExpiresAt:  pair.RefreshExpiresAt,
		CreatedAt:  srv.now().UTC(),
	}
	if err := srv.sessions.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "failed to store session")
	}

	srv.log(ctx).Debug("Session issued",
		slog.Any("identity_id", identityID),
		slog.Any("session_id", sessionID))

	return &usecase.SessionTokens{
		SessionID:        sessionID,
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

func (srv *sessionService) Resolve(ctx context.Context, accessToken string) (*usecase.ResolvedSession, error) {
	claims, err := srv.tokens.ValidateToken(accessToken, service.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	session, err := srv.sessions.FindByID(ctx, claims.SessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("session revoked or expired")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session")
	}
	if session.IdentityID != claims.IdentityID {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("session bound to another identity")
	}

	identity, err := srv.identities.FindByID(ctx, claims.IdentityID)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("identity no longer exists")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find identity")
	}

	return &usecase.ResolvedSession{Identity: identity, SessionID: session.ID}, nil
}

// Refresh issues a new access token for the session behind a refresh token.
func (srv *sessionService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.RefreshOutput, error) {
	session, err := srv.sessionForRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		srv.audit.observe(opRefresh, outcomeFailure)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, domainerrors.ErrUnauthorized.WrapMessage("session revoked or expired")
		}

		return nil, err
	}

	accessToken, expiresAt, err := srv.tokens.GenerateAccessToken(session.IdentityID, session.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate access token")
	}

	srv.audit.observe(opRefresh, outcomeSuccess)

	return &usecase.RefreshOutput{AccessToken: accessToken, AccessExpiresAt: expiresAt}, nil
}

// Logout revokes the session behind a refresh token. Logging out of a session
// that is already gone succeeds.
func (srv *sessionService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	session, err := srv.sessionForRefreshToken(ctx, input.RefreshToken)
	if errors.Is(err, repository.ErrSessionNotFound) {
		srv.log(ctx).Debug("Logout for unknown session ignored")

		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to resolve refresh token")
	}

	if err := srv.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return errors.Wrap(err, "failed to delete session")
	}

	srv.audit.observe(opLogout, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventSessionRevoked, &session.IdentityID)

	return nil
}

func (srv *sessionService) LogoutAll(ctx context.Context, identityID uuid.UUID) (int64, error) {
	revoked, err := srv.sessions.DeleteByIdentity(ctx, identityID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete sessions")
	}

	srv.log(ctx).Info("All sessions revoked",
		slog.Any("identity_id", identityID),
		slog.Int64("revoked", revoked))
	srv.audit.observe(opLogout, outcomeSuccess)
	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventSessionRevoked, &identityID)

	return revoked, nil
}

func (srv *sessionService) ListSessions(ctx context.Context, identityID, currentSessionID uuid.UUID) ([]*usecase.SessionInfo, error) {
	sessions, err := srv.sessions.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	infos := make([]*usecase.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, &usecase.SessionInfo{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			Current:   session.ID == currentSessionID,
		})
	}

	return infos, nil
}

// RevokeSession deletes one session of identityID. Sessions of other
// identities are reported as not found.
func (srv *sessionService) RevokeSession(ctx context.Context, identityID, sessionID uuid.UUID) error {
	session, err := srv.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return domainerrors.ErrNotFound.WrapMessage("session not found")
	}
	if err != nil {
		return errors.Wrap(err, "failed to find session")
	}
	if session.IdentityID != identityID {
		srv.log(ctx).Warn("Attempt to revoke a foreign session",
			slog.Any("identity_id", identityID),
			slog.Any("session_id", sessionID))

		return domainerrors.ErrNotFound.WrapMessage("session not owned by caller")
	}

	if err := srv.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domainerrors.ErrNotFound.WrapMessage("session already revoked")
		}

		return errors.Wrap(err, "failed to delete session")
	}

	srv.audit.publish(ctx, srv.log(ctx), entity.AuthEventSessionRevoked, &identityID)

	return nil
}

// sessionForRefreshToken returns ErrUnauthorized for invalid tokens and
// repository.ErrSessionNotFound when a valid token's session is gone.
func (srv *sessionService) sessionForRefreshToken(ctx context.Context, refreshToken string) (*entity.Session, error) {
	claims, err := srv.tokens.ValidateToken(refreshToken, service.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	session, err := srv.sessions.FindByTokenHash(ctx, srv.tokens.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session.ID != claims.SessionID || session.IdentityID != claims.IdentityID {
		return nil, domainerrors.ErrUnauthorized.WrapMessage("refresh token does not match its session")
	}

	return session, nil
}
