package Controllers

import (
	"errors"

	"Diligent/Models"
	"Diligent/Notifications"
	"Diligent/email"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SmtpController manages the stored mail configuration and the
// send-notification endpoint. Admin only except SendNotification.
type SmtpController struct {
	DB         *gorm.DB
	Dispatcher *Notifications.Dispatcher
}

func NewSmtpController(db *gorm.DB, dispatcher *Notifications.Dispatcher) *SmtpController {
	return &SmtpController{DB: db, Dispatcher: dispatcher}
}

// GetConfig returns the active SMTP configuration. The password never
// leaves the server (json:"-" on the model).
func (ctrl *SmtpController) GetConfig(ctx *fiber.Ctx) error {
	config, err := ctrl.Dispatcher.ActiveConfig()
	if err != nil {
		if errors.Is(err, Notifications.ErrNoActiveConfig) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active SMTP configuration"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load SMTP configuration"})
	}

	return ctx.JSON(config)
}

type smtpInput struct {
	Host      string `json:"host" validate:"required"`
	Port      int    `json:"port" validate:"required,min=1,max=65535"`
	Secure    bool   `json:"secure"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email" validate:"required,email"`
	FromName  string `json:"from_name"`
}

// SaveConfig stores a new configuration and makes it the single active
// one. Deactivation of previous rows happens in the same transaction,
// so duplicate active rows cannot accumulate.
func (ctrl *SmtpController) SaveConfig(ctx *fiber.Ctx) error {
	var input smtpInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessages(err)})
	}

	config := Models.SmtpConfig{
		Host:      input.Host,
		Port:      input.Port,
		Secure:    input.Secure,
		Username:  input.Username,
		Password:  input.Password,
		FromEmail: input.FromEmail,
		FromName:  input.FromName,
		Active:    true,
	}

	err := ctrl.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Models.SmtpConfig{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(&config).Error
	})

	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save SMTP configuration"})
	}

	return ctx.Status(fiber.StatusCreated).JSON(config)
}

// TestConnection dials the active configuration without sending mail.
func (ctrl *SmtpController) TestConnection(ctx *fiber.Ctx) error {
	config, err := ctrl.Dispatcher.ActiveConfig()
	if err != nil {
		if errors.Is(err, Notifications.ErrNoActiveConfig) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active SMTP configuration"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load SMTP configuration"})
	}

	if err := email.TestConnection(config.ToEmailConfig()); err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "SMTP connection successful"})
}

type notificationInput struct {
	To      []string `json:"to" validate:"required,min=1,dive,email"`
	Subject string   `json:"subject" validate:"required"`
	Body    string   `json:"body" validate:"required"`
}

// SendNotification dispatches an ad hoc message through the configured
// transport. Delivery is best-effort; the outcome lives in email_logs.
func (ctrl *SmtpController) SendNotification(ctx *fiber.Ctx) error {
	var input notificationInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessages(err)})
	}

	go ctrl.Dispatcher.Notify(input.To, input.Subject, input.Body)

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Notification queued"})
}
