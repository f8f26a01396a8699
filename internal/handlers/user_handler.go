package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserManager interface {
	GetUserByUsername(ctx context.Context, username string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, username string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, page repository.PageRequest) (*dto.PageResponse, error)
	ListUsersByRole(ctx context.Context, role string, page repository.PageRequest) (*dto.PageResponse, error)
	SearchUsers(ctx context.Context, term string, page repository.PageRequest) (*dto.PageResponse, error)
	UpdateUserAsAdmin(ctx context.Context, id uuid.UUID, req *dto.AdminUserRequest) (*dto.UserResponse, error)
	PromoteToAdmin(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) error
}

type UserHandler struct {
	users UserManager
}

func NewUserHandler(users UserManager) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.users.GetUserByUsername(c.UserContext(), identity.Username)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Data: user})
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.users.UpdateProfile(c.UserContext(), identity.Username, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Message: "Profile updated successfully", Data: user})
}

func (h *UserHandler) GetByUsername(c *fiber.Ctx) error {
	user, err := h.users.GetUserByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Data: user})
}
