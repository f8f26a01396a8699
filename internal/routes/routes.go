package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler
}

// Setup mounts every route under /api. authenticate runs on all of them and
// only establishes identity; guards on each group decide access.
func Setup(app *fiber.App, authenticate fiber.Handler, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	api.Use(authenticate)

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", middleware.RequireAuth(), h.Auth.Logout)

	users := api.Group("/users", middleware.RequireAuth())
	users.Get("/profile", h.User.GetProfile)
	users.Put("/profile", h.User.UpdateProfile)
	users.Get("/:username", h.User.GetByUsername)

	admin := api.Group("/admin/users", middleware.RequireRole(models.RoleAdmin))
	admin.Get("/", h.Admin.ListUsers)
	admin.Get("/role/:role", h.Admin.ListByRole)
	admin.Get("/search", h.Admin.Search)
	admin.Put("/:id", h.Admin.UpdateUser)
	admin.Post("/:id/promote", h.Admin.Promote)
	admin.Delete("/:id", h.Admin.Deactivate)
}
