package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/cache"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/repository"
	"github.com/google/uuid"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	err   error
	reads int
	// beforeSave runs at the start of Save, outside the lock.
	beforeSave func()
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserStore) byField(match func(u *models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return f.byField(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUserStore) FindActiveByUsername(_ context.Context, username string) (*models.User, error) {
	return f.byField(func(u *models.User) bool { return u.Username == username && u.IsActive })
}

func (f *fakeUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.byField(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := f.FindByUsername(ctx, username)
	return existsResult(err)
}

func (f *fakeUserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := f.byField(func(u *models.User) bool { return u.Email == email })
	return existsResult(err)
}

func existsResult(err error) (bool, error) {
	if err == repository.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) Save(_ context.Context, user *models.User) error {
	if f.beforeSave != nil {
		f.beforeSave()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for id, u := range f.users {
		if id != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return repository.ErrDuplicate
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) filter(match func(u *models.User) bool) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []models.User
	for _, u := range f.users {
		if match(u) {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserStore) List(context.Context, repository.PageRequest) ([]models.User, int64, error) {
	return f.filter(func(*models.User) bool { return true })
}

func (f *fakeUserStore) ListByRole(_ context.Context, role string, _ repository.PageRequest) ([]models.User, int64, error) {
	return f.filter(func(u *models.User) bool { return u.Role == role })
}

func (f *fakeUserStore) Search(_ context.Context, term string, _ repository.PageRequest) ([]models.User, int64, error) {
	return f.filter(func(u *models.User) bool { return strings.Contains(u.Username, term) })
}

// setRole mutates a stored user directly, as another process would.
func (f *fakeUserStore) setRole(username, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			u.Role = role
		}
	}
}

// insert stores user without any checks, as a concurrent writer would.
func (f *fakeUserStore) insert(user models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = &user
}

func (f *fakeUserStore) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeUserStore) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// fakeTokenStore keeps records keyed by id. Rotate and MarkUsed are
// compare-and-swap under the mutex, matching the SQL implementation.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*models.RefreshToken
	err    error
	// block makes every call wait for ctx to end.
	block bool
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[uuid.UUID]*models.RefreshToken)}
}

func (f *fakeTokenStore) gate(ctx context.Context) error {
	f.mu.Lock()
	block, err := f.block, f.err
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeTokenStore) Save(ctx context.Context, token *models.RefreshToken) error {
	if err := f.gate(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *token
	cp.IsUsed = false
	f.tokens[cp.ID] = &cp
	return nil
}

func (f *fakeTokenStore) FindUsable(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if err := f.gate(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash && !t.IsUsed {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTokenStore) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := f.gate(ctx); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[id]
	if !ok || t.IsUsed {
		return false, nil
	}
	t.IsUsed = true
	return true, nil
}

func (f *fakeTokenStore) Rotate(ctx context.Context, consumedID uuid.UUID, next *models.RefreshToken) error {
	if err := f.gate(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[consumedID]
	if !ok || t.IsUsed {
		return repository.ErrAlreadyUsed
	}
	t.IsUsed = true
	cp := *next
	cp.IsUsed = false
	f.tokens[cp.ID] = &cp
	return nil
}

func (f *fakeTokenStore) InvalidateAllForUser(ctx context.Context, username string) (int64, error) {
	if err := f.gate(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tokens {
		if t.Username == username && !t.IsUsed {
			t.IsUsed = true
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) DeleteAllForUser(ctx context.Context, username string) (int64, error) {
	if err := f.gate(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.tokens {
		if t.Username == username {
			delete(f.tokens, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := f.gate(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.tokens {
		if t.ExpiresAt.Before(now) {
			delete(f.tokens, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) snapshot() map[uuid.UUID]models.RefreshToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]models.RefreshToken, len(f.tokens))
	for id, t := range f.tokens {
		out[id] = *t
	}
	return out
}

func (f *fakeTokenStore) countFor(username string) int {
	n := 0
	for _, t := range f.snapshot() {
		if t.Username == username {
			n++
		}
	}
	return n
}

type sentMail struct {
	kind string
	to   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) record(kind, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{kind: kind, to: to})
	return f.err
}

func (f *fakeNotifier) SendWelcome(_ context.Context, to, _, _ string) error {
	return f.record("welcome", to)
}

func (f *fakeNotifier) SendProfileUpdate(_ context.Context, to, _, _ string) error {
	return f.record("profile_update", to)
}

func (f *fakeNotifier) SendAdminPromotion(_ context.Context, to, _, _ string) error {
	return f.record("admin_promotion", to)
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.kind)
	}
	return out
}

// memoryCache is an in-process cache.ProfileCache.
type memoryCache struct {
	mu       sync.Mutex
	profiles map[string]dto.UserResponse
}

func newMemoryCache() *memoryCache {
	return &memoryCache{profiles: make(map[string]dto.UserResponse)}
}

func (m *memoryCache) Get(_ context.Context, username string) (*dto.UserResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[username]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &p, nil
}

func (m *memoryCache) Set(_ context.Context, profile *dto.UserResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.Username] = *profile
	return nil
}

func (m *memoryCache) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, username)
	return nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }

// brokenCache fails every call.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*dto.UserResponse, error) {
	return nil, cache.ErrCacheUnavailable
}
func (brokenCache) Set(context.Context, *dto.UserResponse) error { return cache.ErrCacheUnavailable }
func (brokenCache) Delete(context.Context, string) error         { return cache.ErrCacheUnavailable }
func (brokenCache) Ping(context.Context) error                   { return cache.ErrCacheUnavailable }

// writeFailingCache serves reads from memory but rejects every write and
// delete, as Redis does when it drops out between calls.
type writeFailingCache struct {
	*memoryCache
}

func (writeFailingCache) Set(context.Context, *dto.UserResponse) error { return cache.ErrCacheUnavailable }
func (writeFailingCache) Delete(context.Context, string) error         { return cache.ErrCacheUnavailable }

// deleteFailingCache accepts writes but cannot delete.
type deleteFailingCache struct {
	*memoryCache
}

func (deleteFailingCache) Delete(context.Context, string) error { return cache.ErrCacheUnavailable }
