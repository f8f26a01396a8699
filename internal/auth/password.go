package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher hashes and verifies secrets with bcrypt. Hash and compare
// calls share a fixed number of slots so CPU-bound work cannot starve request
// handling.
type PasswordHasher struct {
	cost  int
	slots *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash []byte
}

func NewPasswordHasher(cost, concurrency int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &PasswordHasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(concurrency)),
	}
}

func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches the stored hash. A malformed stored
// hash is reported as a mismatch. The only error is ctx expiring while
// waiting for a slot.
func (h *PasswordHasher) Verify(ctx context.Context, plain, hash string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.slots.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil, nil
}

// VerifyDummy burns the same amount of work as Verify against a throwaway
// hash, so unknown accounts are not distinguishable by response time.
func (h *PasswordHasher) VerifyDummy(ctx context.Context, plain string) {
	h.dummyOnce.Do(func() {
		seed := make([]byte, 32)
		_, _ = rand.Read(seed)
		h.dummyHash, _ = bcrypt.GenerateFromPassword(seed[:], h.cost)
	})
	_, _ = h.Verify(ctx, plain, string(h.dummyHash))
}
