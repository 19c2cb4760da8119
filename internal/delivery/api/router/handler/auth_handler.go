// Package handler contains the HTTP handlers of the auth API.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"campuseval/internal/delivery/api/middleware"
	"campuseval/internal/delivery/api/response"
	deliverycontext "campuseval/internal/delivery/context"
	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/errors"
	"campuseval/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// resetRequestedMessage is returned by forgot-password whatever happened.
const resetRequestedMessage = "If an account exists for that email, a password reset link has been sent."

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC   usecase.AuthUsecase
	Sessions usecase.SessionUsecase
	Resets   usecase.PasswordResetUsecase
	Logger   *slog.Logger
}

// AuthHandler serves local credentials, sessions and password reset.
type AuthHandler struct {
	authUC   usecase.AuthUsecase
	sessions usecase.SessionUsecase
	resets   usecase.PasswordResetUsecase
	logger   *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:   params.AuthUC,
		sessions: params.Sessions,
		resets:   params.Resets,
		logger:   params.Logger,
	}
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// IdentityResponse is the public view of an identity.
type IdentityResponse struct {
	ID           uuid.UUID           `json:"id"`
	Email        string              `json:"email"`
	AuthProvider entity.AuthProvider `json:"authProvider"`
	HasPassword  bool                `json:"hasPassword"`
	Linked       bool                `json:"linked"`
	CreatedAt    time.Time           `json:"createdAt"`
}

type TokenResponse struct {
	SessionID        uuid.UUID `json:"sessionId"`
	TokenType        string    `json:"tokenType"`
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt,omitzero"`
}

type LoginResponse struct {
	Identity *IdentityResponse `json:"identity"`
	Tokens   *TokenResponse    `json:"tokens"`
}

type SessionResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func newIdentityResponse(identity *entity.Identity) *IdentityResponse {
	return &IdentityResponse{
		ID:           identity.ID,
		Email:        identity.Email,
		AuthProvider: identity.AuthProvider,
		HasPassword:  identity.HasPassword(),
		Linked:       identity.IsLinked(),
		CreatedAt:    identity.CreatedAt,
	}
}

func newLoginResponse(out *usecase.LoginOutput) *LoginResponse {
	return &LoginResponse{
		Identity: newIdentityResponse(out.Identity),
		Tokens: &TokenResponse{
			SessionID:        out.Tokens.SessionID,
			TokenType:        "Bearer",
			AccessToken:      out.Tokens.AccessToken,
			AccessExpiresAt:  out.Tokens.AccessExpiresAt,
			RefreshToken:     out.Tokens.RefreshToken,
			RefreshExpiresAt: out.Tokens.RefreshExpiresAt,
		},
	}
}

// bindAndValidate decodes the JSON body into req and applies its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("request body is not valid JSON")
	}

	return c.Validate(req)
}

// Register handles local account registration.
func (h *AuthHandler) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.authUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, map[string]uuid.UUID{"id": out.Identity.ID})
}

// Login handles local password login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req CredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, newLoginResponse(out))
}

// Refresh trades a refresh token for a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.sessions.Refresh(c.Request().Context(), &usecase.RefreshInput{RefreshToken: req.RefreshToken})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, &TokenResponse{
		TokenType:       "Bearer",
		AccessToken:     out.AccessToken,
		AccessExpiresAt: out.AccessExpiresAt,
	})
}

// Logout revokes the session behind a refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.sessions.Logout(c.Request().Context(), &usecase.LogoutInput{RefreshToken: req.RefreshToken}); err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, &MessageResponse{Message: "Logged out."})
}

// Me returns the identity behind the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return domainerrors.ErrUnauthorized
	}

	return response.Success(c, http.StatusOK, newIdentityResponse(identity))
}

// LogoutAll revokes every session of the caller, including the current one.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return domainerrors.ErrUnauthorized
	}

	revoked, err := h.sessions.LogoutAll(c.Request().Context(), identity.ID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, map[string]int64{"revoked": revoked})
}

func (h *AuthHandler) ListSessions(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return domainerrors.ErrUnauthorized
	}
	currentSessionID, _ := middleware.GetSessionID(c)

	sessions, err := h.sessions.ListSessions(c.Request().Context(), identity.ID, currentSessionID)
	if err != nil {
		return err
	}

	out := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, &SessionResponse{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			Current:   session.Current,
		})
	}

	return response.Success(c, http.StatusOK, out)
}

func (h *AuthHandler) RevokeSession(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return domainerrors.ErrUnauthorized
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("id must be a UUID")
	}

	if err := h.sessions.RevokeSession(c.Request().Context(), identity.ID, sessionID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword always answers with the same body so the response never
// reveals whether the account exists or whether the email went out.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.resets.RequestReset(ctx, &usecase.RequestResetInput{Email: req.Email}); err != nil {
		// A malformed address says nothing about which accounts exist.
		if errors.Is(err, domainerrors.ErrValidationFailed) {
			return err
		}
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Error("Password reset request failed", slog.Any("error", err))
	}

	return response.Success(c, http.StatusOK, &MessageResponse{Message: resetRequestedMessage})
}

// ResetPassword redeems a reset token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.resets.RedeemReset(c.Request().Context(), &usecase.RedeemResetInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, &MessageResponse{Message: "Your password has been reset."})
}
