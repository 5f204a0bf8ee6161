package Controllers

import (
	"Diligent/Models"

	"github.com/gofiber/fiber/v2"
)

// Health reports service and database liveness.
func Health(c *fiber.Ctx) error {
	sqlDB, err := Models.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}

	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"database": "unreachable",
		})
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"database": "ok",
	})
}
