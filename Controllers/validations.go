package Controllers

import (
	"strconv"
	"time"

	"Diligent/Models"
	"Diligent/Notifications"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ValidationController resolves diligences awaiting validation.
type ValidationController struct {
	DB         *gorm.DB
	Dispatcher *Notifications.Dispatcher
}

func NewValidationController(db *gorm.DB, dispatcher *Notifications.Dispatcher) *ValidationController {
	return &ValidationController{DB: db, Dispatcher: dispatcher}
}

type validationInput struct {
	Status  string `json:"status" validate:"required,oneof=approved rejected"`
	Comment string `json:"comment"`
}

// ValidateDiligence records the creator's decision on a
// PendingValidation diligence. Approval finalizes it as Done at 100%;
// rejection sends it back to InProgress and emails the recipients.
func (ctrl *ValidationController) ValidateDiligence(ctx *fiber.Ctx) error {
	user := ctx.Locals("user").(Models.User)

	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid diligence ID"})
	}

	var diligence Models.Diligence
	if err := ctrl.DB.Preload("Recipients").First(&diligence, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Diligence not found"})
	}

	if diligence.CreatedByID != user.ID && !user.IsAdmin() {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the creator may validate this diligence"})
	}

	if diligence.Status != Models.StatusPendingValidation {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Diligence is not awaiting validation"})
	}

	var input validationInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessages(err)})
	}

	validation := Models.DiligenceValidation{
		DiligenceID:      diligence.ID,
		ValidatorID:      user.ID,
		ValidationStatus: input.Status,
		Comment:          input.Comment,
	}

	if err := ctrl.DB.Create(&validation).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record validation"})
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if input.Status == Models.ValidationApproved {
		updates["status"] = Models.StatusDone
		updates["progression"] = 100
	} else {
		updates["status"] = Models.StatusInProgress
	}

	if err := ctrl.DB.Model(&diligence).Updates(updates).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update diligence"})
	}

	if input.Status == Models.ValidationApproved {
		diligence.Status = Models.StatusDone
		diligence.Progression = 100
		go ctrl.Dispatcher.NotifyCompleted(&diligence)
	} else {
		diligence.Status = Models.StatusInProgress
		go ctrl.Dispatcher.NotifyRejected(&diligence, input.Comment)
	}

	return ctx.JSON(fiber.Map{
		"validation": validation,
		"diligence":  diligence,
	})
}
