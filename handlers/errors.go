// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"santri-progress-system/middleware"
	"santri-progress-system/services"
	"santri-progress-system/utils"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors to status codes; anything unknown is a 500
// carrying msg and the cause.
func respondError(c *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, services.ErrSantriNotFound), errors.Is(err, services.ErrBadgeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrBadgeCodeTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidAdjustment):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrArchiveDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("❌ [HTTP] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	body := fiber.Map{"error": msg}
	if details := utils.ValidationDetails(err); details != nil {
		body["fields"] = details
	} else if err != nil {
		body["cause"] = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

// parseAndValidate decodes the body into dst and runs struct validation. When
// ok is false the 400 response has been written and err is its send error.
func parseAndValidate(c *fiber.Ctx, dst any) (ok bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return false, badRequest(c, "invalid JSON", err)
	}
	if err := utils.ValidateStruct(dst); err != nil {
		return false, badRequest(c, "validation failed", err)
	}
	return true, nil
}

func hasRole(c *fiber.Ctx, roles ...string) bool {
	held, _ := c.Locals("user_roles").([]string)
	for _, h := range held {
		for _, r := range roles {
			if h == r {
				return true
			}
		}
	}
	return false
}

// canViewSantri lets staff see everyone and a santri see only themself.
func canViewSantri(c *fiber.Ctx, santriID string) bool {
	if hasRole(c, middleware.RoleAdmin, middleware.RoleMusyrif, middleware.RoleUstadz) {
		return true
	}
	userID, _ := c.Locals("user_id").(string)
	return userID != "" && userID == santriID
}

func actorID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
