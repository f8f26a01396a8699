package services

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
)

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrUserNotFound        = errors.New("user not found")
	// ErrStoreUnavailable marks transient infrastructure failures. Callers may
	// retry; rotation never commits partially.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrValidation       = dto.ErrValidation
)

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
