package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/cache"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
)

// profiles wraps the cache so that every failure reads as a miss and every
// write is fire and forget.
type profiles struct {
	cache cache.ProfileCache
}

func newProfiles(c cache.ProfileCache) profiles {
	if c == nil {
		c = cache.Noop{}
	}
	return profiles{cache: c}
}

func (p profiles) get(ctx context.Context, username string) (*dto.UserResponse, bool) {
	profile, err := p.cache.Get(ctx, username)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("profile cache read failed", "username", username, "error", err)
		}
		return nil, false
	}
	return profile, true
}

func (p profiles) put(ctx context.Context, user *models.User) {
	profile := dto.NewUserResponse(user)
	if err := p.cache.Set(ctx, &profile); err != nil {
		slog.Warn("profile cache write failed", "username", user.Username, "error", err)
	}
}

// retire makes sure the entry under username no longer reads as active. It
// overwrites the entry with an inactive profile and falls back to deleting
// it when the write fails.
func (p profiles) retire(ctx context.Context, username string, user *models.User) {
	profile := dto.NewUserResponse(user)
	profile.Username = username
	profile.IsActive = false
	if err := p.cache.Set(ctx, &profile); err == nil {
		return
	}
	if err := p.cache.Delete(ctx, username); err != nil {
		slog.Warn("profile cache retire failed", "username", username, "error", err)
	}
}
