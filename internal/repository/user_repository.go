package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Page*Size within an int32 offset.
	MaxPage = math.MaxInt32 / MaxPageSize
)

var sortableColumns = map[string]string{
	"id":         "id",
	"username":   "username",
	"email":      "email",
	"first_name": "first_name",
	"firstName":  "first_name",
	"last_name":  "last_name",
	"lastName":   "last_name",
	"created_at": "created_at",
	"createdAt":  "created_at",
}

// PageRequest selects one page of users. Page is zero-based.
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Normalize clamps the request into range and resolves the sort column.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	col, ok := sortableColumns[p.SortBy]
	if !ok {
		col = "id"
	}
	p.SortBy = col
	if strings.EqualFold(p.SortDir, "desc") {
		p.SortDir = "desc"
	} else {
		p.SortDir = "asc"
	}
	return p
}

func (p PageRequest) offset() int {
	return p.Page * p.Size
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) FindActiveByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ? AND is_active = ?", username, true)
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

// ExistsByEmail ignores case, matching the idx_users_email_lower index.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// Save writes every column of user.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save user: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, page PageRequest) ([]models.User, int64, error) {
	return paged(r.db.WithContext(ctx).Model(&models.User{}), page)
}

func (r *UserRepository) ListByRole(ctx context.Context, role string, page PageRequest) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role)
	return paged(q, page)
}

// Search matches term as a case-insensitive substring of username, email,
// first name or last name.
func (r *UserRepository) Search(ctx context.Context, term string, page PageRequest) ([]models.User, int64, error) {
	pattern := "%" + escapeLike(term) + "%"
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username ILIKE ? OR email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			pattern, pattern, pattern, pattern)
	return paged(q, page)
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where(query, args...).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func paged(q *gorm.DB, page PageRequest) ([]models.User, int64, error) {
	page = page.Normalize()

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	err := q.Session(&gorm.Session{}).
		Order(page.SortBy + " " + page.SortDir).
		Offset(page.offset()).
		Limit(page.Size).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
