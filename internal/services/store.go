package services

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/repository"
	"github.com/google/uuid"
)

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindActiveByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	List(ctx context.Context, page repository.PageRequest) ([]models.User, int64, error)
	ListByRole(ctx context.Context, role string, page repository.PageRequest) ([]models.User, int64, error)
	Search(ctx context.Context, term string, page repository.PageRequest) ([]models.User, int64, error)
}

type RefreshTokenStore interface {
	Save(ctx context.Context, token *models.RefreshToken) error
	FindUsable(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
	Rotate(ctx context.Context, consumedID uuid.UUID, next *models.RefreshToken) error
	InvalidateAllForUser(ctx context.Context, username string) (int64, error)
	DeleteAllForUser(ctx context.Context, username string) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type Notifier interface {
	SendWelcome(ctx context.Context, to, firstName, lastName string) error
	SendProfileUpdate(ctx context.Context, to, firstName, lastName string) error
	SendAdminPromotion(ctx context.Context, to, firstName, lastName string) error
}

// withTimeout bounds a single store call by d.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
