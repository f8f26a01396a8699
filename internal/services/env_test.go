package services

import (
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/cache"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	clock    *testClock
	users    *fakeUserStore
	tokens   *fakeTokenStore
	notifier *fakeNotifier
	codec    *auth.TokenCodec
	sessions *SessionService
	accounts *UserService
}

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

func newTestEnv(t *testing.T, profileCache cache.ProfileCache) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "account-service",
		AccessTTL: testAccessTTL,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	env := &testEnv{
		clock:    clock,
		users:    newFakeUserStore(),
		tokens:   newFakeTokenStore(),
		notifier: &fakeNotifier{},
		codec:    codec,
	}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost, 4)

	env.sessions = NewSessionService(env.users, env.tokens, hasher, codec, profileCache, env.notifier, SessionConfig{
		RefreshTTL:   testRefreshTTL,
		StoreTimeout: time.Second,
		Now:          clock.Now,
	})
	env.accounts = NewUserService(env.users, env.tokens, hasher, profileCache, env.notifier, time.Second)
	return env
}
