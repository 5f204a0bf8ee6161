package Controllers

import (
	"errors"
	"strconv"
	"time"

	"Diligent/Models"
	"Diligent/Notifications"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var errInvalidRecipients = errors.New("one or more recipients do not exist or are inactive")

// DiligenceController handles diligence CRUD and the mark-as-viewed
// transition.
type DiligenceController struct {
	DB         *gorm.DB
	Dispatcher *Notifications.Dispatcher
}

func NewDiligenceController(db *gorm.DB, dispatcher *Notifications.Dispatcher) *DiligenceController {
	return &DiligenceController{DB: db, Dispatcher: dispatcher}
}

type diligenceInput struct {
	Title        string `json:"title" validate:"required"`
	Direction    string `json:"direction"`
	StartDate    string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Description  string `json:"description"`
	Priority     string `json:"priority" validate:"omitempty,oneof=High Medium Low"`
	AssignedToID *uint  `json:"assigned_to_id"`
	RecipientIDs []uint `json:"recipient_ids"`
}

// GetDiligences lists diligences visible to the caller. Admins see
// everything; other users see what they created or received. Supports
// status, priority and archived filters.
func (ctrl *DiligenceController) GetDiligences(ctx *fiber.Ctx) error {
	user := ctx.Locals("user").(Models.User)

	query := ctrl.DB.Model(&Models.Diligence{}).Preload("Recipients").Distinct("diligences.*")

	if !user.IsAdmin() {
		query = query.
			Joins("LEFT JOIN diligence_recipients ON diligence_recipients.diligence_id = diligences.id").
			Where("diligences.created_by_id = ? OR diligence_recipients.user_id = ?", user.ID, user.ID)
	}

	if status := ctx.Query("status"); status != "" {
		query = query.Where("diligences.status = ?", status)
	}
	if priority := ctx.Query("priority"); priority != "" {
		query = query.Where("diligences.priority = ?", priority)
	}
	switch ctx.Query("archived") {
	case "true":
		query = query.Where("diligences.archived = ?", true)
	case "", "false":
		query = query.Where("diligences.archived = ?", false)
	case "all":
	}

	var diligences []Models.Diligence
	if err := query.Order("diligences.created_at DESC").Find(&diligences).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve diligences"})
	}

	return ctx.JSON(diligences)
}

// GetDiligence retrieves one diligence with its treatment and
// validation history.
func (ctrl *DiligenceController) GetDiligence(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid diligence ID"})
	}

	var diligence Models.Diligence
	result := ctrl.DB.
		Preload("Recipients").
		Preload("Traitements").
		Preload("Validations").
		First(&diligence, id)
	if result.Error != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Diligence not found"})
	}

	return ctx.JSON(diligence)
}

// CreateDiligence creates a task and notifies its recipients.
func (ctrl *DiligenceController) CreateDiligence(ctx *fiber.Ctx) error {
	user := ctx.Locals("user").(Models.User)

	var input diligenceInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessages(err)})
	}

	recipients, err := ctrl.loadRecipients(input.RecipientIDs)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	priority := input.Priority
	if priority == "" {
		priority = Models.PriorityMedium
	}

	diligence := Models.Diligence{
		Title:        input.Title,
		Direction:    input.Direction,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Description:  input.Description,
		Priority:     priority,
		Status:       Models.StatusPlanned,
		CreatedByID:  user.ID,
		AssignedToID: input.AssignedToID,
		Recipients:   recipients,
	}

	if err := ctrl.DB.Create(&diligence).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create diligence"})
	}

	creator := user
	go ctrl.Dispatcher.NotifyCreated(&diligence, &creator)

	return ctx.Status(fiber.StatusCreated).JSON(diligence)
}

// UpdateDiligence edits core fields. Creator or admin only; recipients
// submit treatments instead.
func (ctrl *DiligenceController) UpdateDiligence(ctx *fiber.Ctx) error {
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
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the creator may edit this diligence"})
	}

	var input diligenceInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessages(err)})
	}

	updates := map[string]interface{}{
		"title":       input.Title,
		"direction":   input.Direction,
		"start_date":  input.StartDate,
		"end_date":    input.EndDate,
		"description": input.Description,
	}
	if input.Priority != "" {
		updates["priority"] = input.Priority
	}
	if input.AssignedToID != nil {
		updates["assigned_to_id"] = *input.AssignedToID
	}

	if err := ctrl.DB.Model(&diligence).Updates(updates).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update diligence"})
	}

	if input.RecipientIDs != nil {
		recipients, err := ctrl.loadRecipients(input.RecipientIDs)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := ctrl.DB.Model(&diligence).Association("Recipients").Replace(recipients); err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update recipients"})
		}
	}

	return ctx.JSON(diligence)
}

// DeleteDiligence removes a diligence and, through the cascade, its
// treatment history. Creator or admin only.
func (ctrl *DiligenceController) DeleteDiligence(ctx *fiber.Ctx) error {
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
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the creator may delete this diligence"})
	}

	if err := ctrl.DB.Select("Traitements", "Validations").Delete(&diligence).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete diligence"})
	}

	return ctx.JSON(fiber.Map{"message": "Diligence deleted successfully"})
}

// MarkViewed records that a recipient opened a Planned diligence, which
// moves it to InProgress.
func (ctrl *DiligenceController) MarkViewed(ctx *fiber.Ctx) error {
	user := ctx.Locals("user").(Models.User)

	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid diligence ID"})
	}

	var diligence Models.Diligence
	if err := ctrl.DB.Preload("Recipients").First(&diligence, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Diligence not found"})
	}

	if !isRecipient(&diligence, user.ID) {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not a recipient of this diligence"})
	}

	if diligence.Status == Models.StatusPlanned {
		if err := ctrl.DB.Model(&diligence).Updates(map[string]interface{}{
			"status":     Models.StatusInProgress,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update diligence"})
		}
	}

	return ctx.JSON(diligence)
}

func (ctrl *DiligenceController) loadRecipients(ids []uint) ([]Models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var recipients []Models.User
	if err := ctrl.DB.Where("id IN ? AND active = ?", ids, true).Find(&recipients).Error; err != nil {
		return nil, err
	}

	if len(recipients) != len(ids) {
		return nil, errInvalidRecipients
	}

	return recipients, nil
}

func isRecipient(diligence *Models.Diligence, userID uint) bool {
	for _, recipient := range diligence.Recipients {
		if recipient.ID == userID {
			return true
		}
	}
	return false
}
