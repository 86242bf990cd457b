package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/utils"
)

// AuthRoleAny accepts every caller, authenticated or not unless RequireUser is set.
const AuthRoleAny = "any"

// AuthOptions configures WithAuth. Role is one of the models.Role* values or
// AuthRoleAny; an empty Role means AuthRoleAny.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth guards a single handler. A concrete role implies RequireUser, and
// admins pass every role check.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := normalizeRoleValue(opts.Role)
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if requireUser && UserID(c) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if role == AuthRoleAny {
			return handler(c)
		}

		switch UserRole(c) {
		case role, models.RoleAdmin:
			return handler(c)
		default:
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{"required_role": role})
		}
	}
}
