// Package cache holds the read-through profile cache. It is advisory only:
// callers treat every error as a miss.
package cache

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
)

var (
	ErrMiss             = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("cache unavailable")
)

type ProfileCache interface {
	Get(ctx context.Context, username string) (*dto.UserResponse, error)
	Set(ctx context.Context, profile *dto.UserResponse) error
	Delete(ctx context.Context, username string) error
	Ping(ctx context.Context) error
}

// Noop is used when no cache is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*dto.UserResponse, error) { return nil, ErrMiss }
func (Noop) Set(context.Context, *dto.UserResponse) error           { return nil }
func (Noop) Delete(context.Context, string) error                   { return nil }
func (Noop) Ping(context.Context) error                             { return nil }
