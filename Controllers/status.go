package Controllers

import (
	"errors"

	"Diligent/CronJobs"

	"github.com/gofiber/fiber/v2"
)

// StatusController exposes the force-update trigger for the status
// updater job.
type StatusController struct {
	Updater *CronJobs.StatusUpdater
}

func NewStatusController(updater *CronJobs.StatusUpdater) *StatusController {
	return &StatusController{Updater: updater}
}

// ForceUpdate runs one recalculation pass immediately. A pass already
// in flight is not queued; the caller gets a conflict and can retry.
func (ctrl *StatusController) ForceUpdate(ctx *fiber.Ctx) error {
	if err := ctrl.Updater.RunPass(); err != nil {
		if errors.Is(err, CronJobs.ErrPassInProgress) {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A status update pass is already running"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Status update pass failed"})
	}

	return ctx.JSON(fiber.Map{"message": "Status update completed"})
}
