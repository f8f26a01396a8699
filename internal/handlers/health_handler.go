package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	db      PingFunc
	cache   PingFunc
	timeout time.Duration
}

func NewHealthHandler(db, cache PingFunc, timeout time.Duration) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, timeout: timeout}
}

// Check reports 503 when the database is down. A broken cache only degrades
// the status since every cached read falls back to the store.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        probe(ctx, h.db),
		Cache:     probe(ctx, h.cache),
	}

	status := fiber.StatusOK
	switch {
	case resp.DB != "ok":
		resp.Status = "unavailable"
		status = fiber.StatusServiceUnavailable
	case resp.Cache != "ok" && resp.Cache != "disabled":
		resp.Status = "degraded"
	}
	return c.Status(status).JSON(resp)
}

func probe(ctx context.Context, ping PingFunc) string {
	if ping == nil {
		return "disabled"
	}
	if err := ping(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "ok"
}
