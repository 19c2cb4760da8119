package middleware

import (
	"strings"

	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	contextKeyIdentity  = "identity"
	contextKeySessionID = "sessionID"

	bearerPrefix = "Bearer "
)

// AuthMiddleware resolves the bearer access token to a live session.
type AuthMiddleware struct {
	sessions usecase.SessionUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(sessions usecase.SessionUsecase) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate rejects the request unless the Authorization header carries an
// access token whose session has not been revoked.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return domainerrors.ErrUnauthorized.WrapMessage("authorization header is missing")
		}

		if len(authHeader) <= len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			return domainerrors.ErrUnauthorized.WrapMessage("authorization header is not a bearer token")
		}

		resolved, err := m.sessions.Resolve(c.Request().Context(), authHeader[len(bearerPrefix):])
		if err != nil {
			return err
		}

		c.Set(contextKeyIdentity, resolved.Identity)
		c.Set(contextKeySessionID, resolved.SessionID)

		return next(c)
	}
}

// GetIdentity returns the identity set by Authenticate.
func GetIdentity(c echo.Context) (*entity.Identity, bool) {
	identity, ok := c.Get(contextKeyIdentity).(*entity.Identity)

	return identity, ok && identity != nil
}

// GetSessionID returns the session id set by Authenticate.
func GetSessionID(c echo.Context) (uuid.UUID, bool) {
	sessionID, ok := c.Get(contextKeySessionID).(uuid.UUID)

	return sessionID, ok
}
