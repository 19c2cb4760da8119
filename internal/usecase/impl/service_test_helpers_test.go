package impl

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campuseval/config"
	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/domain/repository"
	"campuseval/internal/domain/service"
	"campuseval/internal/infra/auth"
	"campuseval/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Env.ServiceName = "campuseval-test"
	cfg.SecretKey.Access = "test-access-secret"
	cfg.SecretKey.Refresh = "test-refresh-secret"
	cfg.Auth.Hasher = config.HasherBcrypt
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.ApplyDefaults()

	return cfg
}

// fakeClock is a settable time source shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeIdentityRepository keeps identities in memory with the same unique and
// compare-and-set guarantees as the real stores.
type fakeIdentityRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*entity.Identity
	writes int
}

func newFakeIdentityRepository() *fakeIdentityRepository {
	return &fakeIdentityRepository{byID: make(map[uuid.UUID]*entity.Identity)}
}

func cloneIdentity(identity *entity.Identity) *entity.Identity {
	clone := *identity
	if identity.ResetTokenExpiry != nil {
		expiry := *identity.ResetTokenExpiry
		clone.ResetTokenExpiry = &expiry
	}

	return &clone
}

func (r *fakeIdentityRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writes
}

func (r *fakeIdentityRepository) Get(id uuid.UUID) *entity.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if identity, ok := r.byID[id]; ok {
		return cloneIdentity(identity)
	}

	return nil
}

func (r *fakeIdentityRepository) Create(_ context.Context, identity *entity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == identity.Email {
			return domainerrors.ErrDuplicateAccount.WrapMessage("identity already exists")
		}
		if identity.ExternalSubjectID != "" && existing.ExternalSubjectID == identity.ExternalSubjectID {
			return domainerrors.ErrDuplicateAccount.WrapMessage("identity already exists")
		}
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	r.byID[identity.ID] = cloneIdentity(identity)
	r.writes++

	return nil
}

func (r *fakeIdentityRepository) find(match func(*entity.Identity) bool) (*entity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, identity := range r.byID {
		if match(identity) {
			return cloneIdentity(identity), nil
		}
	}

	return nil, repository.ErrIdentityNotFound
}

func (r *fakeIdentityRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Identity, error) {
	return r.find(func(i *entity.Identity) bool { return i.ID == id })
}

func (r *fakeIdentityRepository) FindByEmail(_ context.Context, email string) (*entity.Identity, error) {
	return r.find(func(i *entity.Identity) bool { return i.Email == email })
}

func (r *fakeIdentityRepository) FindByExternalSubject(_ context.Context, subject string) (*entity.Identity, error) {
	return r.find(func(i *entity.Identity) bool { return i.ExternalSubjectID == subject })
}

func (r *fakeIdentityRepository) LinkExternalSubject(_ context.Context, id uuid.UUID, subject string) (*entity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.ExternalSubjectID == subject {
			return nil, domainerrors.ErrDuplicateAccount.WrapMessage("external subject already linked")
		}
	}
	identity, ok := r.byID[id]
	if !ok || identity.ExternalSubjectID != "" {
		return nil, repository.ErrIdentityNotFound
	}
	identity.ExternalSubjectID = subject
	r.writes++

	return cloneIdentity(identity), nil
}

func (r *fakeIdentityRepository) SetResetToken(_ context.Context, id uuid.UUID, tokenHash string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byID[id]
	if !ok {
		return repository.ErrIdentityNotFound
	}
	identity.ResetTokenHash = tokenHash
	identity.ResetTokenExpiry = &expiry
	r.writes++

	return nil
}

func (r *fakeIdentityRepository) RedeemResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*entity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, identity := range r.byID {
		if identity.ResetTokenHash == tokenHash && identity.ResetTokenExpiry != nil && identity.ResetTokenExpiry.After(now) {
			identity.PasswordHash = passwordHash
			identity.ResetTokenHash = ""
			identity.ResetTokenExpiry = nil
			r.writes++

			return cloneIdentity(identity), nil
		}
	}

	return nil, repository.ErrIdentityNotFound
}

func (r *fakeIdentityRepository) ClearResetToken(_ context.Context, id uuid.UUID, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byID[id]
	if !ok || identity.ResetTokenHash != tokenHash {
		return repository.ErrIdentityNotFound
	}
	identity.ResetTokenHash = ""
	identity.ResetTokenExpiry = nil
	r.writes++

	return nil
}

func (r *fakeIdentityRepository) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.byID)), nil
}

// fakeSessionRepository hides expired sessions like the real stores do.
type fakeSessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
	now      func() time.Time
}

func newFakeSessionRepository(now func() time.Time) *fakeSessionRepository {
	return &fakeSessionRepository{sessions: make(map[uuid.UUID]*entity.Session), now: now}
}

func (r *fakeSessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *session
	r.sessions[session.ID] = &clone

	return nil
}

func (r *fakeSessionRepository) live(session *entity.Session) bool {
	return !session.Expired(r.now())
}

func (r *fakeSessionRepository) FindByTokenHash(_ context.Context, tokenHash string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.TokenHash == tokenHash && r.live(session) {
			clone := *session

			return &clone, nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

func (r *fakeSessionRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || !r.live(session) {
		return nil, repository.ErrSessionNotFound
	}
	clone := *session

	return &clone, nil
}

func (r *fakeSessionRepository) ListByIdentity(_ context.Context, identityID uuid.UUID) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sessions []*entity.Session
	for _, session := range r.sessions {
		if session.IdentityID == identityID && r.live(session) {
			clone := *session
			sessions = append(sessions, &clone)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (r *fakeSessionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(r.sessions, id)

	return nil
}

func (r *fakeSessionRepository) DeleteByIdentity(_ context.Context, identityID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, session := range r.sessions {
		if session.IdentityID == identityID {
			delete(r.sessions, id)
			deleted++
		}
	}

	return deleted, nil
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, email *service.OutboundEmail) error {
	args := m.Called(ctx, email)

	return args.Error(0)
}

func (m *mockMailer) Ping(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAuthEvent(ctx context.Context, event *entity.AuthEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

// eventTypes lists the types of every published event in order.
func (m *mockPublisher) eventTypes() []entity.AuthEventType {
	var types []entity.AuthEventType
	for _, call := range m.Calls {
		if call.Method == "PublishAuthEvent" {
			types = append(types, call.Arguments.Get(1).(*entity.AuthEvent).Type)
		}
	}

	return types
}

type mockOAuthProvider struct {
	mock.Mock
}

func (m *mockOAuthProvider) AuthCodeURL(state, verifier string) string {
	return m.Called(state, verifier).String(0)
}

func (m *mockOAuthProvider) Exchange(ctx context.Context, code, verifier string) (*entity.ExternalProfile, error) {
	args := m.Called(ctx, code, verifier)
	if profile, ok := args.Get(0).(*entity.ExternalProfile); ok {
		return profile, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockOAuthProvider) VerifyIDToken(ctx context.Context, idToken string) (*entity.ExternalProfile, error) {
	args := m.Called(ctx, idToken)
	if profile, ok := args.Get(0).(*entity.ExternalProfile); ok {
		return profile, args.Error(1)
	}

	return nil, args.Error(1)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) Observe(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[operation+"/"+outcome]++
}

func (m *countingMetrics) count(operation, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counts[operation+"/"+outcome]
}

// recordingRenderer keeps every reset link it renders so tests can read
// the token the user would have received.
type recordingRenderer struct {
	mu    sync.Mutex
	links []string
}

func (r *recordingRenderer) RenderPasswordReset(to, link string, _ time.Duration) (*service.OutboundEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, link)

	return &service.OutboundEmail{To: to, Subject: "Password reset", TextBody: link}, nil
}

func (r *recordingRenderer) lastToken(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.links, "no reset link rendered")
	parsed, err := url.Parse(r.links[len(r.links)-1])
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	return token
}

// testEnv wires the real hasher, token and secret services over in-memory
// stores.
type testEnv struct {
	cfg         *config.Config
	clock       *fakeClock
	identities  *fakeIdentityRepository
	sessionRepo *fakeSessionRepository
	mailer      *mockMailer
	renderer    *recordingRenderer
	publisher   *mockPublisher
	metrics     *countingMetrics
	tokens      service.TokenService

	auth     *authService
	sessions *sessionService
	resets   *passwordResetService
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	for _, fn := range configure {
		fn(cfg)
	}

	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	env := &testEnv{
		cfg:        cfg,
		clock:      newFakeClock(),
		identities: newFakeIdentityRepository(),
		mailer:     &mockMailer{},
		renderer:   &recordingRenderer{},
		publisher:  &mockPublisher{},
		metrics:    newCountingMetrics(),
		tokens:     tokens,
	}
	// Sessions expire on the token clock, which is real time.
	env.sessionRepo = newFakeSessionRepository(time.Now)
	env.publisher.On("PublishAuthEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	hasher := auth.NewPasswordHasher(cfg)
	logger := newDiscardLogger()

	env.sessions = newSessionService(SessionServiceParams{
		Identities: env.identities,
		Sessions:   env.sessionRepo,
		Tokens:     tokens,
		Publisher:  env.publisher,
		Metrics:    env.metrics,
		Logger:     logger,
	}, env.clock.Now)

	env.auth = newAuthService(AuthServiceParams{
		Identities: env.identities,
		Sessions:   env.sessions,
		Hasher:     hasher,
		Publisher:  env.publisher,
		Metrics:    env.metrics,
		Config:     cfg,
		Logger:     logger,
	}, env.clock.Now)

	env.resets = newPasswordResetService(PasswordResetServiceParams{
		Identities: env.identities,
		Sessions:   env.sessionRepo,
		Hasher:     hasher,
		Tokens:     tokens,
		Secrets:    auth.NewSecretGenerator(),
		Mailer:     env.mailer,
		Renderer:   env.renderer,
		Publisher:  env.publisher,
		Metrics:    env.metrics,
		Config:     cfg,
		Logger:     logger,
	}, env.clock.Now)

	return env
}

func (env *testEnv) register(t *testing.T, email, password string) *entity.Identity {
	t.Helper()

	out, err := env.auth.Register(context.Background(), &usecase.RegisterInput{Email: email, Password: password})
	require.NoError(t, err)

	return out.Identity
}

// countingHasher counts Check calls on top of a real hasher.
type countingHasher struct {
	service.PasswordHasher
	checks atomic.Int32
}

func (h *countingHasher) Check(password, hash string) (bool, error) {
	h.checks.Add(1)

	return h.PasswordHasher.Check(password, hash)
}
