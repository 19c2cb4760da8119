package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"campuseval/config"
	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
	"campuseval/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) requestReset(t *testing.T, email string) string {
	t.Helper()

	require.NoError(t, env.resets.RequestReset(context.Background(), &usecase.RequestResetInput{Email: email}))

	return env.renderer.lastToken(t)
}

func TestPasswordResetService_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.On("Send", mock.Anything, mock.MatchedBy(func(email *service.OutboundEmail) bool {
		return email.To == "a@x.com"
	})).Return(nil).Once()

	env.register(t, "a@x.com", "secret1")
	token := env.requestReset(t, "a@x.com")

	require.NoError(t, env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: token, NewPassword: "newpass"}))

	_, err := env.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "newpass"})
	assert.NoError(t, err)
	_, err = env.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	env.mailer.AssertExpectations(t)
	assert.Contains(t, env.publisher.eventTypes(), entity.AuthEventResetRedeemed)
}

func TestPasswordResetService_LinkCarriesTokenNotHash(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	identity := env.register(t, "link@x.com", "secret1")

	token := env.requestReset(t, "link@x.com")

	assert.True(t, strings.HasPrefix(env.renderer.links[0], env.cfg.PasswordReset.LinkBaseURL+"?token="))
	assert.GreaterOrEqual(t, len(token), 22, "token must carry at least 128 bits")

	stored := env.identities.Get(identity.ID)
	assert.Equal(t, env.tokens.HashToken(token), stored.ResetTokenHash)
	assert.NotEqual(t, token, stored.ResetTokenHash)
	require.NotNil(t, stored.ResetTokenExpiry)
	assert.True(t, stored.ResetTokenExpiry.Equal(env.clock.Now().Add(time.Hour)))
}

func TestPasswordResetService_RequestNormalizesEmail(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.MatchedBy(func(email *service.OutboundEmail) bool {
		return email.To == "a@x.com"
	})).Return(nil).Once()
	identity := env.register(t, "a@x.com", "secret1")

	err := env.resets.RequestReset(context.Background(), &usecase.RequestResetInput{Email: "  A@X.com "})
	require.NoError(t, err)

	assert.True(t, env.identities.Get(identity.ID).HasPendingReset(env.clock.Now()))
	env.mailer.AssertExpectations(t)
}

func TestPasswordResetService_UnknownEmailLooksLikeSuccess(t *testing.T) {
	env := newTestEnv(t)

	err := env.resets.RequestReset(context.Background(), &usecase.RequestResetInput{Email: "ghost@x.com"})
	require.NoError(t, err)

	assert.Zero(t, env.identities.Writes())
	env.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Equal(t, 1, env.metrics.count(opResetRequest, outcomeIgnored))
}

func TestPasswordResetService_TokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	env.register(t, "once@x.com", "secret1")

	token := env.requestReset(t, "once@x.com")

	require.NoError(t, env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: token, NewPassword: "newpass"}))
	err := env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: token, NewPassword: "another1"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOrExpiredToken)

	_, err = env.auth.Login(ctx, &usecase.LoginInput{Email: "once@x.com", Password: "newpass"})
	assert.NoError(t, err)
}

func TestPasswordResetService_ExpiredTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	env.register(t, "late@x.com", "secret1")

	token := env.requestReset(t, "late@x.com")
	env.clock.Advance(time.Hour)

	err := env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: token, NewPassword: "newpass"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOrExpiredToken)

	_, err = env.auth.Login(ctx, &usecase.LoginInput{Email: "late@x.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestPasswordResetService_NewRequestSupersedesOldToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	env.register(t, "twice@x.com", "secret1")

	first := env.requestReset(t, "twice@x.com")
	second := env.requestReset(t, "twice@x.com")
	require.NotEqual(t, first, second)

	err := env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: first, NewPassword: "newpass"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOrExpiredToken)

	assert.NoError(t, env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: second, NewPassword: "newpass"}))
}

func TestPasswordResetService_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	env.register(t, "race@x.com", "secret1")
	token := env.requestReset(t, "race@x.com")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.resets.RedeemReset(context.Background(), &usecase.RedeemResetInput{Token: token, NewPassword: "newpass"})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainerrors.ErrInvalidOrExpiredToken):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, rejected)
}

func TestPasswordResetService_RedeemRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	env.register(t, "revoke@x.com", "secret1")

	login, err := env.auth.Login(ctx, &usecase.LoginInput{Email: "revoke@x.com", Password: "secret1"})
	require.NoError(t, err)

	token := env.requestReset(t, "revoke@x.com")
	require.NoError(t, env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: token, NewPassword: "newpass"}))

	_, err = env.sessions.Resolve(ctx, login.Tokens.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestPasswordResetService_DeliveryFailureClearsToken(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: connection refused"))
	identity := env.register(t, "bounce@x.com", "secret1")

	err := env.resets.RequestReset(context.Background(), &usecase.RequestResetInput{Email: "bounce@x.com"})
	require.ErrorIs(t, err, domainerrors.ErrDeliveryFailed)

	stored := env.identities.Get(identity.ID)
	assert.False(t, stored.HasPendingReset(env.clock.Now()))
	assert.Empty(t, stored.ResetTokenHash)
	assert.Nil(t, stored.ResetTokenExpiry)
	assert.Equal(t, 1, env.metrics.count(opResetRequest, outcomeDeliveryFailed))
}

func TestPasswordResetService_DeliveryFailureKeepsTokenWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		keep := false
		cfg.PasswordReset.ClearTokenOnDeliveryFailure = &keep
	})
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: connection refused"))
	identity := env.register(t, "keep@x.com", "secret1")

	err := env.resets.RequestReset(context.Background(), &usecase.RequestResetInput{Email: "keep@x.com"})
	require.ErrorIs(t, err, domainerrors.ErrDeliveryFailed)

	stored := env.identities.Get(identity.ID)
	assert.True(t, stored.HasPendingReset(env.clock.Now()))

	token := env.renderer.lastToken(t)
	assert.NoError(t, env.resets.RedeemReset(context.Background(), &usecase.RedeemResetInput{Token: token, NewPassword: "newpass"}))
}

func TestPasswordResetService_RedeemValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: "", NewPassword: "newpass"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	err = env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: "abc", NewPassword: "123"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	err = env.resets.RedeemReset(ctx, &usecase.RedeemResetInput{Token: "unknown", NewPassword: "newpass"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOrExpiredToken)
}

func TestBuildResetLink(t *testing.T) {
	link, err := buildResetLink("https://campus.example/reset?lang=en", "a+b/c")
	require.NoError(t, err)
	assert.Equal(t, "https://campus.example/reset?lang=en&token=a%2Bb%2Fc", link)

	_, err = buildResetLink("://bad", "t")
	assert.Error(t, err)
}
