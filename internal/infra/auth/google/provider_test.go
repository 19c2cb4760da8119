package google

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"campuseval/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

func testGoogleConfig() *config.GoogleOAuthConfig {
	return &config.GoogleOAuthConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_secret",
		RedirectURI:  "http://localhost:8080/api/auth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func staticValidator(payload *idtoken.Payload, err error) idTokenValidator {
	return func(_ context.Context, _, audience string) (*idtoken.Payload, error) {
		if err != nil {
			return nil, err
		}
		payload.Audience = audience

		return payload, nil
	}
}

func TestNewProvider_NotConfigured(t *testing.T) {
	assert.Nil(t, NewProvider(&config.Config{}, slog.Default()))
}

func TestProvider_AuthCodeURL(t *testing.T) {
	p := newProvider(testGoogleConfig(), oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth"}, nil, slog.Default())

	raw := p.AuthCodeURL("state-123", oauth2.GenerateVerifier())
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "test_client_id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/api/auth/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
}

func TestProvider_VerifyIDToken(t *testing.T) {
	tests := []struct {
		name         string
		payload      *idtoken.Payload
		wantErr      bool
		wantEmail    string
		wantVerified bool
	}{
		{
			name: "verified email",
			payload: &idtoken.Payload{
				Issuer:  "https://accounts.google.com",
				Subject: "sub-1",
				Claims:  map[string]any{"email": "a@x.com", "email_verified": true, "name": "A"},
			},
			wantEmail:    "a@x.com",
			wantVerified: true,
		},
		{
			name: "verified flag as string",
			payload: &idtoken.Payload{
				Issuer:  "accounts.google.com",
				Subject: "sub-2",
				Claims:  map[string]any{"email": "b@x.com", "email_verified": "true"},
			},
			wantEmail:    "b@x.com",
			wantVerified: true,
		},
		{
			name: "unverified email is dropped",
			payload: &idtoken.Payload{
				Issuer:  "https://accounts.google.com",
				Subject: "sub-3",
				Claims:  map[string]any{"email": "c@x.com", "email_verified": false},
			},
			wantEmail: "",
		},
		{
			name: "foreign issuer",
			payload: &idtoken.Payload{
				Issuer:  "https://evil.example.com",
				Subject: "sub-4",
			},
			wantErr: true,
		},
		{
			name: "missing subject",
			payload: &idtoken.Payload{
				Issuer: "https://accounts.google.com",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(testGoogleConfig(), oauth2.Endpoint{}, staticValidator(tt.payload, nil), slog.Default())

			profile, err := p.VerifyIDToken(context.Background(), "raw")
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.payload.Subject, profile.Subject)
			assert.Equal(t, tt.wantEmail, profile.Email)
			assert.Equal(t, tt.wantVerified, profile.EmailVerified)
		})
	}
}

func TestProvider_Exchange(t *testing.T) {
	var gotForm url.Values
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"raw-id-token"}`))
	}))
	defer tokenServer.Close()

	var gotIDToken string
	validate := func(_ context.Context, idToken, _ string) (*idtoken.Payload, error) {
		gotIDToken = idToken

		return &idtoken.Payload{
			Issuer:  "https://accounts.google.com",
			Subject: "sub-1",
			Claims:  map[string]any{"email": "a@x.com", "email_verified": true},
		}, nil
	}

	p := newProvider(testGoogleConfig(), oauth2.Endpoint{TokenURL: tokenServer.URL, AuthStyle: oauth2.AuthStyleInParams}, validate, slog.Default())

	profile, err := p.Exchange(context.Background(), "auth-code", "the-verifier")
	require.NoError(t, err)

	assert.Equal(t, "raw-id-token", gotIDToken)
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "the-verifier", gotForm.Get("code_verifier"))
	assert.Equal(t, "sub-1", profile.Subject)
	assert.Equal(t, "a@x.com", profile.Email)
}

func TestProvider_ExchangeWithoutIDToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
	}))
	defer tokenServer.Close()

	p := newProvider(testGoogleConfig(), oauth2.Endpoint{TokenURL: tokenServer.URL, AuthStyle: oauth2.AuthStyleInParams}, nil, slog.Default())

	_, err := p.Exchange(context.Background(), "auth-code", "v")
	assert.Error(t, err)
}
