package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminHandler serves /api/admin/users. Routes are guarded by
// middleware.RequireRole(models.RoleAdmin).
type AdminHandler struct {
	users UserManager
}

func NewAdminHandler(users UserManager) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.users.ListUsers(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Data: resp})
}

func (h *AdminHandler) ListByRole(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.users.ListUsersByRole(c.UserContext(), c.Params("role"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Data: resp})
}

func (h *AdminHandler) Search(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.users.SearchUsers(c.UserContext(), c.Query("searchTerm"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Data: resp})
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	var req dto.AdminUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.users.UpdateUserAsAdmin(c.UserContext(), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Message: "User updated successfully", Data: user})
}

func (h *AdminHandler) Promote(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	user, err := h.users.PromoteToAdmin(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Message: "User promoted to admin successfully", Data: user})
}

func (h *AdminHandler) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	if err := h.users.DeactivateUser(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.Envelope{Success: true, Message: "User deactivated successfully"})
}

// pageFromQuery reads page, size, sortBy and sortDir. Out of range values are
// clamped later by PageRequest.Normalize; only non-numbers are rejected here.
func pageFromQuery(c *fiber.Ctx) (repository.PageRequest, error) {
	var q struct {
		Page    int    `query:"page"`
		Size    int    `query:"size"`
		SortBy  string `query:"sortBy"`
		SortDir string `query:"sortDir"`
	}
	if err := c.QueryParser(&q); err != nil {
		return repository.PageRequest{}, fiber.NewError(fiber.StatusBadRequest, "Invalid paging parameters")
	}
	return repository.PageRequest{Page: q.Page, Size: q.Size, SortBy: q.SortBy, SortDir: q.SortDir}, nil
}
