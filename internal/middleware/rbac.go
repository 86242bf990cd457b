package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/homefix-api/internal/utils"
)

// RequireRole admits only users holding one of roles. Unlike WithAuth, admin
// is not implied and must be listed. Anonymous requests get 401.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		normalized := normalizeRoleValue(role)
		if normalized == "" {
			continue
		}
		if _, ok := allowed[normalized]; !ok {
			names = append(names, normalized)
		}
		allowed[normalized] = struct{}{}
	}
	details := fiber.Map{"allowed_roles": names}

	return func(c *fiber.Ctx) error {
		if UserID(c) == "" && UserRole(c) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[UserRole(c)]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", details)
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
	}
}
