package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyforge-platform/copyforge/internal/auth"
	"github.com/copyforge-platform/copyforge/internal/metering"
	"github.com/copyforge-platform/copyforge/internal/plan"
	"github.com/copyforge-platform/copyforge/internal/session"
	"github.com/copyforge-platform/copyforge/internal/users"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*users.User
}

func (f *fakeUserRepo) Create(_ context.Context, u *users.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := f.GetByEmail(ctx, email)
	return u != nil, nil
}

func (f *fakeUserRepo) UpdatePlan(_ context.Context, id uuid.UUID, tier plan.Tier) error {
	f.users[id].Plan = tier
	return nil
}

type fakeLedgerStore struct{}

func (fakeLedgerStore) GetOrCreate(_ context.Context, _ uuid.UUID, now time.Time) (*metering.Ledger, error) {
	return metering.NewLedger(now), nil
}

func (fakeLedgerStore) Save(_ context.Context, _ uuid.UUID, _ *metering.Ledger) error {
	return nil
}

func newTestResolver(t *testing.T) (*Resolver, *auth.JWTManager, *users.User) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	jwtManager := auth.NewJWTManager(
		"access-secret-for-tests-0123456789ab",
		"refresh-secret-for-tests-0123456789a",
		15*time.Minute,
		168*time.Hour,
	)

	user := &users.User{
		ID:    uuid.New(),
		Email: "premium@example.com",
		Plan:  plan.TierPremium,
	}
	repo := &fakeUserRepo{users: map[uuid.UUID]*users.User{user.ID: user}}

	resolver := NewResolver(
		jwtManager,
		users.NewService(repo),
		fakeLedgerStore{},
		session.NewStore(rdb, time.Hour),
		false,
	)
	return resolver, jwtManager, user
}

func TestResolve_AuthenticatedUser(t *testing.T) {
	resolver, jwtManager, user := newTestResolver(t)

	pair, _, err := jwtManager.GenerateTokenPair(user.ID.String(), user.Email)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/content/generate", nil)
	r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()

	subject := resolver.Resolve(w, r)
	require.NotNil(t, subject)

	durable, ok := subject.(*metering.DurableSubject)
	require.True(t, ok)
	assert.Equal(t, user.ID, durable.UserID)
	assert.Equal(t, plan.TierPremium, subject.Tier())
	assert.Empty(t, w.Result().Cookies())
}

func TestResolve_NoToken_MintsSessionCookie(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	r := httptest.NewRequest(http.MethodPost, "/content/generate", nil)
	w := httptest.NewRecorder()

	subject := resolver.Resolve(w, r)
	require.NotNil(t, subject)
	assert.Equal(t, plan.TierAnonymous, subject.Tier())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "session:"+cookies[0].Value, subject.Key())
}

func TestResolve_ExistingCookieReused(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	r := httptest.NewRequest(http.MethodGet, "/content/status", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "existing-token"})
	w := httptest.NewRecorder()

	subject := resolver.Resolve(w, r)
	require.NotNil(t, subject)
	assert.Equal(t, "session:existing-token", subject.Key())
	assert.Empty(t, w.Result().Cookies())
}

func TestResolve_InvalidTokenFallsBackToAnonymous(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	r := httptest.NewRequest(http.MethodPost, "/content/generate", nil)
	r.Header.Set("Authorization", "Bearer not.a.real.token")
	w := httptest.NewRecorder()

	subject := resolver.Resolve(w, r)
	require.NotNil(t, subject)
	assert.Equal(t, plan.TierAnonymous, subject.Tier())
}

func TestResolve_UnknownUserFallsBackToAnonymous(t *testing.T) {
	resolver, jwtManager, _ := newTestResolver(t)

	pair, _, err := jwtManager.GenerateTokenPair(uuid.NewString(), "ghost@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/content/generate", nil)
	r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()

	subject := resolver.Resolve(w, r)
	require.NotNil(t, subject)
	assert.Equal(t, plan.TierAnonymous, subject.Tier())
}

func TestMiddleware_PutsSubjectInContext(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	var got metering.Subject
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/content/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.NotNil(t, got)
	assert.Equal(t, plan.TierAnonymous, got.Tier())
}
