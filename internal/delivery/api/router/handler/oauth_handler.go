package handler

import (
	"log/slog"
	"net/http"

	"campuseval/internal/delivery/api/response"
	"campuseval/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// OAuthHandlerParams holds dependencies for OAuthHandler, injected by Fx.
type OAuthHandlerParams struct {
	fx.In

	OAuthUC usecase.OAuthUsecase
	Logger  *slog.Logger
}

// OAuthHandler serves Google sign-in.
type OAuthHandler struct {
	oauthUC usecase.OAuthUsecase
	logger  *slog.Logger
}

// NewOAuthHandler is the constructor for OAuthHandler
func NewOAuthHandler(params OAuthHandlerParams) *OAuthHandler {
	return &OAuthHandler{
		oauthUC: params.OAuthUC,
		logger:  params.Logger,
	}
}

type IDTokenRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type AuthorizationURLResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

// GoogleLogin starts the code flow. With ?redirect=true the browser is sent
// straight to the consent page.
func (h *OAuthHandler) GoogleLogin(c echo.Context) error {
	out, err := h.oauthUC.BeginGoogleLogin(c.Request().Context())
	if err != nil {
		return err
	}

	if c.QueryParam("redirect") == "true" {
		return c.Redirect(http.StatusFound, out.AuthorizationURL)
	}

	return response.Success(c, http.StatusOK, &AuthorizationURLResponse{AuthorizationURL: out.AuthorizationURL})
}

// GoogleCallback completes the code flow.
func (h *OAuthHandler) GoogleCallback(c echo.Context) error {
	out, err := h.oauthUC.CompleteGoogleLogin(c.Request().Context(), &usecase.OAuthCallbackInput{
		State: c.QueryParam("state"),
		Code:  c.QueryParam("code"),
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, newLoginResponse(out))
}

// GoogleIDToken signs in a client that obtained a Google ID token itself.
func (h *OAuthHandler) GoogleIDToken(c echo.Context) error {
	var req IDTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.oauthUC.GoogleIDTokenLogin(c.Request().Context(), &usecase.IDTokenLoginInput{IDToken: req.IDToken})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, newLoginResponse(out))
}
