package dto

import "github.com/ahmetcoskunkizilkaya/account-service/internal/models"

// UpdateProfileRequest replaces email and names. Password is changed only
// when non-empty.
type UpdateProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password,omitempty"`
}

// Validate also normalizes Email.
func (r *UpdateProfileRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password != "" {
		if err := validatePassword(r.Password); err != nil {
			return err
		}
	}
	return validateNames(r.FirstName, r.LastName)
}

// AdminUserRequest is a partial update; nil fields are left unchanged.
type AdminUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
}

func (r *AdminUserRequest) Validate() error {
	if r.Username != nil {
		if err := validateUsername(*r.Username); err != nil {
			return err
		}
	}
	if r.Email != nil {
		email := normalizeEmail(*r.Email)
		r.Email = &email
		if err := validateEmail(email); err != nil {
			return err
		}
	}
	if r.Role != nil && !models.IsValidRole(*r.Role) {
		return validationError("role must be USER or ADMIN")
	}
	first, last := "", ""
	if r.FirstName != nil {
		first = *r.FirstName
	}
	if r.LastName != nil {
		last = *r.LastName
	}
	return validateNames(first, last)
}

type PageResponse struct {
	Items         []UserResponse `json:"items"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
}

func NewPageResponse(users []models.User, page, size int, total int64) PageResponse {
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, NewUserResponse(&users[i]))
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return PageResponse{
		Items:         items,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
