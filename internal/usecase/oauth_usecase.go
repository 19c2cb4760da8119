package usecase

import "context"

type OAuthBeginOutput struct {
	AuthorizationURL string
	State            string
}

type OAuthCallbackInput struct {
	State string
	Code  string
}

type IDTokenLoginInput struct {
	IDToken string
}

// OAuthUsecase is the Google sign-in flow around external identity linking.
type OAuthUsecase interface {
	BeginGoogleLogin(ctx context.Context) (*OAuthBeginOutput, error)
	CompleteGoogleLogin(ctx context.Context, input *OAuthCallbackInput) (*LoginOutput, error)
	GoogleIDTokenLogin(ctx context.Context, input *IDTokenLoginInput) (*LoginOutput, error)
}
