// handlers/badge_routes.go
package handlers

import (
	"santri-progress-system/middleware"
	"santri-progress-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBadgeRoutes(app *fiber.App, badgeService *services.BadgeService, sseAuth fiber.Handler) {
	app.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := badgeService.ListCatalog(c.UserContext())
		if err != nil {
			return respondError(c, err, "failed to list badges")
		}
		return c.JSON(badges)
	})

	// 📡 EventSource clients authenticate through query params
	app.Get("/santri/me/badges/stream", sseAuth, badgeService.StreamSantriBadgesSSE)

	admin := app.Group("/admin/badges",
		middleware.RequireUser(),
		middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleMusyrif),
	)

	admin.Post("/", middleware.RequireRoles(middleware.RoleAdmin), func(c *fiber.Ctx) error {
		var req services.CreateBadgeInput
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}
		badge, err := badgeService.CreateBadge(c.UserContext(), req)
		if err != nil {
			return respondError(c, err, "failed to create badge")
		}
		return c.Status(fiber.StatusCreated).JSON(badge)
	})

	admin.Post("/award", func(c *fiber.Ctx) error {
		type Req struct {
			SantriID  string `json:"santri_id" validate:"required"`
			BadgeCode string `json:"badge_code" validate:"required"`
		}
		var req Req
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}

		result, err := badgeService.AwardBadge(c.UserContext(), req.SantriID, req.BadgeCode)
		if err != nil {
			if result != nil {
				// not-found outcomes carry a result message
				return c.Status(fiber.StatusNotFound).JSON(result)
			}
			return respondError(c, err, "badge award failed")
		}
		return c.JSON(result)
	})
}
