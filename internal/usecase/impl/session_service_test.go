package impl

import (
	"context"
	"testing"
	"time"

	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_IssueKeepsEarlierSessionsValid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identity := env.register(t, "multi@x.com", "secret1")

	first, err := env.sessions.Issue(ctx, identity.ID)
	require.NoError(t, err)
	second, err := env.sessions.Issue(ctx, identity.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	for _, tokens := range []*usecase.SessionTokens{first, second} {
		resolved, err := env.sessions.Resolve(ctx, tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, identity.ID, resolved.Identity.ID)
		assert.Equal(t, tokens.SessionID, resolved.SessionID)
	}
}

func TestSessionService_ArtifactCarriesNoSecrets(t *testing.T) {
	env := newTestEnv(t)
	identity := env.register(t, "secret@x.com", "secret1")

	tokens, err := env.sessions.Issue(context.Background(), identity.ID)
	require.NoError(t, err)

	stored := env.identities.Get(identity.ID)
	for _, artifact := range []string{tokens.AccessToken, tokens.RefreshToken} {
		assert.NotContains(t, artifact, stored.PasswordHash)
		assert.NotContains(t, artifact, stored.Email)
	}

	session, err := env.sessionRepo.FindByID(context.Background(), tokens.SessionID)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, session.TokenHash)
	assert.Equal(t, env.tokens.HashToken(tokens.RefreshToken), session.TokenHash)
}

func TestSessionService_RefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identity := env.register(t, "refresh@x.com", "secret1")

	tokens, err := env.sessions.Issue(ctx, identity.ID)
	require.NoError(t, err)

	refreshed, err := env.sessions.Refresh(ctx, &usecase.RefreshInput{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	resolved, err := env.sessions.Resolve(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.SessionID, resolved.SessionID)

	require.NoError(t, env.sessions.Logout(ctx, &usecase.LogoutInput{RefreshToken: tokens.RefreshToken}))
	// A second logout of the same session is a no-op.
	require.NoError(t, env.sessions.Logout(ctx, &usecase.LogoutInput{RefreshToken: tokens.RefreshToken}))

	_, err = env.sessions.Refresh(ctx, &usecase.RefreshInput{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	_, err = env.sessions.Resolve(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	assert.Contains(t, env.publisher.eventTypes(), entity.AuthEventSessionRevoked)
}

func TestSessionService_RejectsWrongTokenType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identity := env.register(t, "types@x.com", "secret1")

	tokens, err := env.sessions.Issue(ctx, identity.ID)
	require.NoError(t, err)

	_, err = env.sessions.Refresh(ctx, &usecase.RefreshInput{RefreshToken: tokens.AccessToken})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	_, err = env.sessions.Resolve(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	err = env.sessions.Logout(ctx, &usecase.LogoutInput{RefreshToken: "garbage"})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestSessionService_LogoutAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identity := env.register(t, "all@x.com", "secret1")
	other := env.register(t, "other@x.com", "secret1")

	for range 3 {
		_, err := env.sessions.Issue(ctx, identity.ID)
		require.NoError(t, err)
	}
	otherTokens, err := env.sessions.Issue(ctx, other.ID)
	require.NoError(t, err)

	revoked, err := env.sessions.LogoutAll(ctx, identity.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, revoked)

	sessions, err := env.sessions.ListSessions(ctx, identity.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = env.sessions.Resolve(ctx, otherTokens.AccessToken)
	assert.NoError(t, err)
}

func TestSessionService_ListSessionsMarksCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identity := env.register(t, "list@x.com", "secret1")

	older, err := env.sessions.Issue(ctx, identity.ID)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	newer, err := env.sessions.Issue(ctx, identity.ID)
	require.NoError(t, err)

	sessions, err := env.sessions.ListSessions(ctx, identity.ID, older.SessionID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, newer.SessionID, sessions[0].ID)
	assert.False(t, sessions[0].Current)
	assert.Equal(t, older.SessionID, sessions[1].ID)
	assert.True(t, sessions[1].Current)
}

func TestSessionService_RevokeSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner@x.com", "secret1")
	intruder := env.register(t, "intruder@x.com", "secret1")

	tokens, err := env.sessions.Issue(ctx, owner.ID)
	require.NoError(t, err)

	err = env.sessions.RevokeSession(ctx, intruder.ID, tokens.SessionID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = env.sessions.Resolve(ctx, tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.sessions.RevokeSession(ctx, owner.ID, tokens.SessionID))
	_, err = env.sessions.Resolve(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	err = env.sessions.RevokeSession(ctx, owner.ID, tokens.SessionID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
