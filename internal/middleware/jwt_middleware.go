package middleware

import (
	"strings"

	"warranty/internal/apperror"
	"warranty/internal/models"
	"warranty/internal/services"
	"warranty/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	identityKey      = "identity"
	errMissingHeader = "Authorization header missing or malformed"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "") {
			return apperror.Unauthorized(errMissingHeader)
		}

		identity, err := authService.ValidateToken(parts[1])
		if err != nil {
			logger.FromCtx(c).Info("JWT validation failed", zap.Error(err))
			return err
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// CurrentIdentity returns the caller stored by AuthRequired, or nil.
func CurrentIdentity(c *fiber.Ctx) *services.Identity {
	identity, _ := c.Locals(identityKey).(*services.Identity)
	return identity
}

// RequireRole rejects callers whose role is not in roles. It must run after
// AuthRequired.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		if identity == nil {
			return apperror.Unauthorized(errMissingHeader)
		}
		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}
		if len(roles) == 1 && roles[0] == models.RoleAdmin {
			return apperror.Forbidden("Access denied: Admins only")
		}
		return apperror.Forbidden("Access denied")
	}
}

// RequireSelfOrAdmin checks that the caller may act on the account for email.
func RequireSelfOrAdmin(c *fiber.Ctx, email string) error {
	if !CurrentIdentity(c).CanActFor(email) {
		return apperror.Forbidden("Access denied")
	}
	return nil
}
