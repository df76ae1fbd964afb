// Package middleware holds the Fiber middleware guarding authenticated routes.
package middleware

import (
	"context"
	"strings"

	"cinema/internal/access"
	"cinema/internal/logging"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const actorKey = "actor"

// Authenticator resolves a bearer token to the actor it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*access.Actor, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(auth Authenticator, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		actor, err := auth.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			log.Debug("JWT validation failed", zap.String(logging.RequestIDKey, logging.RequestID(c)), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(actorKey, *actor)
		return c.Next()
	}
}

// RequireCapability rejects actors whose role lacks capability. It must run
// after AuthRequired.
func RequireCapability(capability access.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ActorFrom(c).Can(capability) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Not authorized",
			})
		}
		return c.Next()
	}
}

// ActorFrom returns the actor stored by AuthRequired, or the zero Actor.
func ActorFrom(c *fiber.Ctx) access.Actor {
	actor, _ := c.Locals(actorKey).(access.Actor)
	return actor
}
