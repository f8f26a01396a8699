package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/cache"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/repository"
	"github.com/google/uuid"
)

// UserService serves profile reads and writes and admin user management.
type UserService struct {
	users        UserStore
	tokens       RefreshTokenStore
	hasher       *auth.PasswordHasher
	profiles     profiles
	notifier     Notifier
	storeTimeout time.Duration
}

func NewUserService(
	users UserStore,
	tokens RefreshTokenStore,
	hasher *auth.PasswordHasher,
	profileCache cache.ProfileCache,
	notifier Notifier,
	storeTimeout time.Duration,
) *UserService {
	return &UserService{
		users:        users,
		tokens:       tokens,
		hasher:       hasher,
		profiles:     newProfiles(profileCache),
		notifier:     notifier,
		storeTimeout: storeTimeout,
	}
}

// GetUserByUsername reads through the profile cache. Inactive users are not
// found.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*dto.UserResponse, error) {
	if profile, ok := s.profiles.get(ctx, username); ok && profile.IsActive {
		return profile, nil
	}

	user, err := s.findActive(ctx, username)
	if err != nil {
		return nil, err
	}
	s.profiles.put(ctx, user)

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// SubjectActive reports whether username still names an active account. It
// always asks the store; a cached profile may lag behind a deactivation.
func (s *UserService) SubjectActive(ctx context.Context, username string) (bool, error) {
	_, err := s.findActive(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, username string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.findActive(ctx, username)
	if err != nil {
		return nil, err
	}

	if user.Email != req.Email {
		if err := s.ensureEmailFree(ctx, req.Email); err != nil {
			return nil, err
		}
	}

	user.Email = req.Email
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if req.Password != "" {
		hash, err := s.hasher.Hash(ctx, req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = hash
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("profile updated", "username", username)
	s.profiles.put(ctx, user)
	if err := s.notifier.SendProfileUpdate(ctx, user.Email, user.FirstName, user.LastName); err != nil {
		slog.Error("failed to send profile update email", "username", username, "error", err)
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *UserService) ListUsers(ctx context.Context, page repository.PageRequest) (*dto.PageResponse, error) {
	page = page.Normalize()

	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	users, total, err := s.users.List(sctx, page)
	if err != nil {
		return nil, storeError("list users", err)
	}
	resp := dto.NewPageResponse(users, page.Page, page.Size, total)
	return &resp, nil
}

func (s *UserService) ListUsersByRole(ctx context.Context, role string, page repository.PageRequest) (*dto.PageResponse, error) {
	role = strings.ToUpper(role)
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	page = page.Normalize()

	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	users, total, err := s.users.ListByRole(sctx, role, page)
	if err != nil {
		return nil, storeError("list users by role", err)
	}
	resp := dto.NewPageResponse(users, page.Page, page.Size, total)
	return &resp, nil
}

func (s *UserService) SearchUsers(ctx context.Context, term string, page repository.PageRequest) (*dto.PageResponse, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: searchTerm is required", ErrValidation)
	}
	page = page.Normalize()

	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	users, total, err := s.users.Search(sctx, term, page)
	if err != nil {
		return nil, storeError("search users", err)
	}
	resp := dto.NewPageResponse(users, page.Page, page.Size, total)
	return &resp, nil
}

// UpdateUserAsAdmin applies the non-nil fields of req. Renaming or
// deactivating a user ends all of their sessions.
func (s *UserService) UpdateUserAsAdmin(ctx context.Context, id uuid.UUID, req *dto.AdminUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldUsername := user.Username
	wasAdmin := user.Role == models.RoleAdmin
	wasActive := user.IsActive

	if req.Username != nil && *req.Username != user.Username {
		if err := s.ensureUsernameFree(ctx, *req.Username); err != nil {
			return nil, err
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *req.Email); err != nil {
			return nil, err
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("user updated by admin", "user_id", id, "username", user.Username)

	if !user.IsActive || oldUsername != user.Username {
		s.profiles.retire(ctx, oldUsername, user)
	}
	if (wasActive && !user.IsActive) || oldUsername != user.Username {
		if err := s.endSessions(ctx, oldUsername); err != nil {
			return nil, err
		}
	}
	if user.IsActive {
		s.profiles.put(ctx, user)
	}

	if !wasAdmin && user.Role == models.RoleAdmin {
		s.notifyPromotion(ctx, user)
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *UserService) PromoteToAdmin(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Role != models.RoleAdmin {
		user.Role = models.RoleAdmin
		if err := s.save(ctx, user); err != nil {
			return nil, err
		}
		slog.Info("user promoted to admin", "user_id", id, "username", user.Username)
		s.notifyPromotion(ctx, user)
	}

	if user.IsActive {
		s.profiles.put(ctx, user)
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// DeactivateUser disables the account and hard-deletes its refresh tokens.
// Repeating it is harmless.
func (s *UserService) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if user.IsActive {
		user.IsActive = false
		if err := s.save(ctx, user); err != nil {
			return err
		}
	}

	s.profiles.retire(ctx, user.Username, user)
	if err := s.endSessions(ctx, user.Username); err != nil {
		return err
	}

	slog.Info("user deactivated", "user_id", id, "username", user.Username)
	return nil
}

func (s *UserService) endSessions(ctx context.Context, username string) error {
	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	n, err := s.tokens.DeleteAllForUser(sctx, username)
	if err != nil {
		return storeError("delete refresh tokens", err)
	}
	slog.Info("refresh tokens deleted", "username", username, "count", n)
	return nil
}

func (s *UserService) notifyPromotion(ctx context.Context, user *models.User) {
	if err := s.notifier.SendAdminPromotion(ctx, user.Email, user.FirstName, user.LastName); err != nil {
		slog.Error("failed to send admin promotion email", "username", user.Username, "error", err)
	}
}

func (s *UserService) findActive(ctx context.Context, username string) (*models.User, error) {
	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.FindActiveByUsername(sctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("find user", err)
	}
	return user, nil
}

func (s *UserService) findByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.FindByID(sctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("find user", err)
	}
	return user, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	taken, err := s.users.ExistsByUsername(sctx, username)
	if err != nil {
		return storeError("check username", err)
	}
	if taken {
		return ErrDuplicateUsername
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	taken, err := s.users.ExistsByEmail(sctx, email)
	if err != nil {
		return storeError("check email", err)
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	err := s.users.Save(sctx, user)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.conflictFor(ctx, user)
		}
		return storeError("save user", err)
	}
	return nil
}

// conflictFor names the unique field a rejected save collided on. Username
// and email are the only unique columns besides the id.
func (s *UserService) conflictFor(ctx context.Context, user *models.User) error {
	sctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	other, err := s.users.FindByUsername(sctx, user.Username)
	switch {
	case err == nil && other.ID != user.ID:
		return ErrDuplicateUsername
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return ErrDuplicateEmail
	default:
		return storeError("check username", err)
	}
}
