// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"santri-progress-system/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource clients, which cannot set
// headers, from the `token` and `device_id` query params via the auth
// service. Requests that already carry a gateway user context pass through.
//
// Usage:
//
//	app.Get("/santri/me/badges/stream", middleware.SSEAuthMiddleware(authClient), badgeService.StreamSantriBadgesSSE)
func SSEAuthMiddleware(authClient services.TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, _ := c.Locals("user_id").(string); id != "" {
			return c.Next()
		}
		if authClient == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing user context",
			})
		}

		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))
		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := authClient.ValidateToken(c.Context(), accessToken, deviceID)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for device %s: %v", deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", resp.UserID)
		c.Locals("user_roles", normalizeRoles(resp.Roles))
		log.Printf("[SSEAuth] ✅ Authenticated %s (device %s)", resp.UserID, resp.DeviceID)
		return c.Next()
	}
}
