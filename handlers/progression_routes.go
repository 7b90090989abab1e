// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"santri-progress-system/middleware"
	"santri-progress-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, pointsService *services.PointsService, badgeService *services.BadgeService) {
	// 🔓 Level table lookups need no user context
	app.Get("/levels/tiers", func(c *fiber.Ctx) error {
		return c.JSON(services.LevelTiers)
	})

	app.Get("/levels/calculate", func(c *fiber.Ctx) error {
		points, err := strconv.ParseInt(c.Query("points"), 10, 64)
		if err != nil {
			return badRequest(c, "points must be an integer", err)
		}
		return c.JSON(services.CalculateLevel(points))
	})

	// 🔐 Secured routes — require user context. Attached per route so the
	// badge stream under /santri/me keeps its own auth.
	requireUser := middleware.RequireUser()
	santri := app.Group("/santri")

	santri.Get("/:id/progress", requireUser, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !canViewSantri(c, id) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not allowed to view this santri"})
		}
		progress, err := pointsService.Progress(c.UserContext(), id)
		if err != nil {
			return respondError(c, err, "failed to get progress")
		}
		return c.JSON(progress)
	})

	santri.Get("/:id/ledger", requireUser, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !canViewSantri(c, id) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not allowed to view this santri"})
		}
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 20)
		ledger, err := pointsService.Ledger(c.UserContext(), id, page, size)
		if err != nil {
			return respondError(c, err, "failed to get ledger")
		}
		return c.JSON(ledger)
	})

	santri.Get("/:id/badges", requireUser, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !canViewSantri(c, id) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not allowed to view this santri"})
		}
		earned, err := badgeService.EarnedBadges(c.UserContext(), id)
		if err != nil {
			return respondError(c, err, "failed to get badges")
		}
		return c.JSON(earned)
	})

	santri.Post("/:id/badges/check", requireUser, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !canViewSantri(c, id) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not allowed to check this santri"})
		}
		awarded, err := badgeService.CheckAndAwardBadges(c.UserContext(), id)
		if err != nil {
			return respondError(c, err, "badge evaluation failed")
		}
		return c.JSON(fiber.Map{
			"santri_id": id,
			"awarded":   awarded,
		})
	})

	app.Get("/leaderboard", requireUser, func(c *fiber.Ctx) error {
		board, err := pointsService.Leaderboard(c.UserContext(), services.LeaderboardFilter{
			Limit:   c.QueryInt("limit", 10),
			Gender:  c.Query("gender"),
			Halaqoh: c.Query("halaqoh"),
		})
		if err != nil {
			return respondError(c, err, "failed to build leaderboard")
		}
		return c.JSON(board)
	})

	// Admin endpoints
	admin := app.Group("/admin/points",
		middleware.RequireUser(),
		middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleMusyrif),
	)

	admin.Post("/adjust", func(c *fiber.Ctx) error {
		type Req struct {
			SantriID string `json:"santri_id" validate:"required"`
			Amount   int64  `json:"amount" validate:"required"`
			Reason   string `json:"reason" validate:"required,max=255"`
		}
		var req Req
		if ok, err := parseAndValidate(c, &req); !ok {
			return err
		}

		result, err := pointsService.AdjustPoints(c.UserContext(), req.SantriID, req.Amount, req.Reason, actorID(c))
		if err != nil {
			return respondError(c, err, "points adjustment failed")
		}
		return c.JSON(result)
	})

	admin.Post("/reconcile", middleware.RequireRoles(middleware.RoleAdmin), func(c *fiber.Ctx) error {
		report, err := pointsService.ReconcileAll(c.UserContext())
		if err != nil {
			return respondError(c, err, "reconcile failed")
		}
		return c.JSON(report)
	})
}
