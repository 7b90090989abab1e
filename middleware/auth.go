// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	RoleAdmin   = "admin"
	RoleMusyrif = "musyrif"
	RoleUstadz  = "ustadz"
	RoleSantri  = "santri"
)

// UserContextMiddleware extracts user identity and roles set by Gateway.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		rolesStr := c.Get("X-User-Roles")

		var roles []string
		if rolesStr != "" {
			roles = normalizeRoles(strings.Split(rolesStr, ","))
		}

		// Attach to ctx for handlers
		if userID != "" {
			c.Locals("user_id", userID)
		}
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// normalizeRoles trims and lowercases role names and drops blanks.
func normalizeRoles(in []string) []string {
	var out []string
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// RequireUser rejects requests without a gateway user context.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, _ := c.Locals("user_id").(string); id == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}
		return c.Next()
	}
}

// RequireRoles allows the request when the user holds any of roles.
func RequireRoles(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		held, _ := c.Locals("user_roles").([]string)
		for _, r := range held {
			if allowed[r] {
				return c.Next()
			}
		}
		userID, _ := c.Locals("user_id").(string)
		log.Printf("🚫 [USER_CTX] %q with roles %v denied on %s", userID, held, c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role",
		})
	}
}
