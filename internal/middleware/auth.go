package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/auth"
	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// Paths that never carry an access token.
var authBypassPaths = map[string]struct{}{
	"/api/auth/register": {},
	"/api/auth/login":    {},
	"/api/auth/refresh":  {},
}

type TokenValidator interface {
	ParseAndValidate(token, expectedSubject string) (*auth.Identity, error)
}

// SubjectChecker confirms a token subject is still an active account.
type SubjectChecker interface {
	SubjectActive(ctx context.Context, username string) (bool, error)
}

// Authenticate establishes the request identity from a bearer token. It
// never rejects a request: a missing, malformed, invalid or expired token
// leaves the request anonymous and route guards decide what that means.
// subjects may be nil to skip the liveness check.
func Authenticate(tokens TokenValidator, subjects SubjectChecker, checkTimeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := authBypassPaths[strings.TrimSuffix(c.Path(), "/")]; ok {
			return c.Next()
		}

		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return c.Next()
		}

		identity, err := tokens.ParseAndValidate(raw, "")
		if err != nil {
			slog.Debug("access token rejected", "path", c.Path(), "error", err)
			return c.Next()
		}

		if subjects != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), checkTimeout)
			active, err := subjects.SubjectActive(ctx, identity.Username)
			cancel()
			if err != nil {
				slog.Warn("subject check failed", "username", identity.Username, "error", err)
				return c.Next()
			}
			if !active {
				slog.Debug("token subject is not active", "username", identity.Username)
				return c.Next()
			}
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// IdentityFrom returns the identity established by Authenticate, if any.
func IdentityFrom(c *fiber.Ctx) (*auth.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*auth.Identity)
	return identity, ok && identity != nil
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
