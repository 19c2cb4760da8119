// Package google implements the external sign-in provider on top of Google's
// OAuth 2.0 and OpenID Connect endpoints.
package google

import (
	"context"
	"log/slog"
	"strings"

	"campuseval/config"
	"campuseval/internal/domain/entity"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

var validIssuers = map[string]struct{}{
	"https://accounts.google.com": {},
	"accounts.google.com":         {},
}

type idTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Provider implements service.OAuthProvider for Google sign-in.
type Provider struct {
	oauth    *oauth2.Config
	validate idTokenValidator
	logger   *slog.Logger
}

// NewProvider returns nil when googleOAuth is not configured, which the
// sign-in use case reports as "not available".
func NewProvider(cfg *config.Config, logger *slog.Logger) service.OAuthProvider {
	if cfg.GoogleOAuth == nil || cfg.GoogleOAuth.ClientID == "" {
		return nil
	}

	return newProvider(cfg.GoogleOAuth, googleoauth.Endpoint, idtoken.Validate, logger)
}

func newProvider(cfg *config.GoogleOAuthConfig, endpoint oauth2.Endpoint, validate idTokenValidator, logger *slog.Logger) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		validate: validate,
		logger:   logger,
	}
}

func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*entity.ExternalProfile, error) {
	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, errors.Wrap(err, "exchange authorization code")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response carries no id_token")
	}

	return p.VerifyIDToken(ctx, rawIDToken)
}

func (p *Provider) VerifyIDToken(ctx context.Context, idToken string) (*entity.ExternalProfile, error) {
	payload, err := p.validate(ctx, idToken, p.oauth.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "validate id token")
	}

	if _, ok := validIssuers[payload.Issuer]; !ok {
		return nil, errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	profile := profileFromPayload(payload)
	if profile.Subject == "" {
		return nil, errors.New("id token carries no subject")
	}

	p.logger.DebugContext(ctx, "Google ID token verified",
		slog.String("subject", profile.Subject),
		slog.Bool("emailVerified", profile.EmailVerified))

	return profile, nil
}

// profileFromPayload keeps the email only when Google marks it verified, so
// an unverified address can never be used to link onto an existing account.
func profileFromPayload(payload *idtoken.Payload) *entity.ExternalProfile {
	profile := &entity.ExternalProfile{Subject: payload.Subject}

	if name, ok := payload.Claims["name"].(string); ok {
		profile.Name = name
	}

	switch verified := payload.Claims["email_verified"].(type) {
	case bool:
		profile.EmailVerified = verified
	case string:
		profile.EmailVerified = strings.EqualFold(verified, "true")
	}

	if email, ok := payload.Claims["email"].(string); ok && profile.EmailVerified {
		profile.Email = email
	}

	return profile
}
