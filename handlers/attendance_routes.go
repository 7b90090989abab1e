// handlers/attendance_routes.go
package handlers

import (
	"santri-progress-system/middleware"
	"santri-progress-system/services"
	"santri-progress-system/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupAttendanceRoutes(app *fiber.App, attendanceService *services.AttendanceService, reportService *services.ReportService) {
	staff := app.Group("/attendance",
		middleware.RequireUser(),
		middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleMusyrif, middleware.RoleUstadz),
	)

	staff.Get("/rekap", func(c *fiber.Ctx) error {
		var q services.RekapQuery
		if err := c.QueryParser(&q); err != nil {
			return badRequest(c, "invalid query", err)
		}
		if err := utils.ValidateStruct(&q); err != nil {
			return badRequest(c, "validation failed", err)
		}
		rekap, err := attendanceService.Rekap(c.UserContext(), q)
		if err != nil {
			return respondError(c, err, "failed to build rekap")
		}
		return c.JSON(rekap)
	})

	staff.Post("/rekap/export", func(c *fiber.Ctx) error {
		var q services.RekapQuery
		if ok, err := parseAndValidate(c, &q); !ok {
			return err
		}
		result, err := reportService.ExportRekap(c.UserContext(), q)
		if err != nil {
			return respondError(c, err, "rekap export failed")
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})
}
