package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshTokenRepository is the single source of truth for refresh token
// state. Lookups are by token hash; the plaintext never reaches the database.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Save(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.IsUsed = false

	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("save refresh token: %w", translate(err))
	}
	return nil
}

// FindUsable returns the record for tokenHash only while it is unused. Used
// and missing records both yield ErrNotFound.
func (r *RefreshTokenRepository) FindUsable(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND is_used = ?", tokenHash, false).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &token, nil
}

// MarkUsed flips is_used for id. It reports whether this call made the
// change, so concurrent callers can tell who won.
func (r *RefreshTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	flipped, err := markUsed(r.db.WithContext(ctx), id)
	if err != nil {
		return false, fmt.Errorf("mark refresh token used: %w", err)
	}
	return flipped, nil
}

// Rotate consumes consumedID and inserts next in one transaction. If another
// caller consumed the record first nothing is written and ErrAlreadyUsed is
// returned.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, consumedID uuid.UUID, next *models.RefreshToken) error {
	if next.ID == uuid.Nil {
		next.ID = uuid.New()
	}
	next.IsUsed = false

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := markUsed(tx, consumedID)
		if err != nil {
			return fmt.Errorf("consume refresh token: %w", err)
		}
		if !flipped {
			return ErrAlreadyUsed
		}
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("insert rotated refresh token: %w", translate(err))
		}
		return nil
	})
}

// InvalidateAllForUser marks every outstanding token of username as used.
func (r *RefreshTokenRepository) InvalidateAllForUser(ctx context.Context, username string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("username = ? AND is_used = ?", username, false).
		Update("is_used", true)
	if res.Error != nil {
		return 0, fmt.Errorf("invalidate refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *RefreshTokenRepository) DeleteAllForUser(ctx context.Context, username string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeExpired deletes every record whose expiry is before now.
func (r *RefreshTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func markUsed(db *gorm.DB, id uuid.UUID) (bool, error) {
	res := db.Model(&models.RefreshToken{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
