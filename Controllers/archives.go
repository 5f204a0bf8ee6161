package Controllers

import (
	"strconv"
	"strings"
	"time"

	"Diligent/CronJobs"
	"Diligent/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ArchiveController moves finished diligences into the audit archive.
type ArchiveController struct {
	DB      *gorm.DB
	Sweeper *CronJobs.ArchiveSweeper
}

func NewArchiveController(db *gorm.DB, sweeper *CronJobs.ArchiveSweeper) *ArchiveController {
	return &ArchiveController{DB: db, Sweeper: sweeper}
}

// ArchiveDiligence archives one Done diligence. Archiving an already
// archived diligence is a success no-op so clients can retry blindly.
func (ctrl *ArchiveController) ArchiveDiligence(ctx *fiber.Ctx) error {
	user := ctx.Locals("user").(Models.User)

	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid diligence ID"})
	}

	var diligence Models.Diligence
	if err := ctrl.DB.First(&diligence, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Diligence not found"})
	}

	if diligence.CreatedByID != user.ID && !user.IsAdmin() {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the creator may archive this diligence"})
	}

	if diligence.Archived {
		return ctx.JSON(fiber.Map{"message": "Diligence already archived"})
	}

	if diligence.Status != Models.StatusDone {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only completed diligences can be archived"})
	}

	var decisive Models.DiligenceValidation
	ctrl.DB.Where("diligence_id = ? AND validation_status = ?", diligence.ID, Models.ValidationApproved).
		Order("created_at DESC").
		First(&decisive)

	if err := Models.ArchiveDiligence(ctrl.DB, &diligence, decisive, time.Now()); err != nil {
		// The unique index on diligence_id turns a concurrent double
		// archive into a constraint error; report it as success.
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "Duplicate entry") {
			return ctx.JSON(fiber.Map{"message": "Diligence already archived"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to archive diligence"})
	}

	return ctx.JSON(fiber.Map{"message": "Diligence archived successfully"})
}

// GetArchives lists archive records, newest first.
func (ctrl *ArchiveController) GetArchives(ctx *fiber.Ctx) error {
	var archives []Models.DiligenceArchive
	if err := ctrl.DB.Preload("Diligence").Order("archived_at DESC").Find(&archives).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve archives"})
	}

	return ctx.JSON(archives)
}

// RunSweep triggers the archive-finished batch on demand.
func (ctrl *ArchiveController) RunSweep(ctx *fiber.Ctx) error {
	archived, err := ctrl.Sweeper.RunSweep()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Archive sweep failed"})
	}

	return ctx.JSON(fiber.Map{
		"message":  "Archive sweep completed",
		"archived": archived,
	})
}
