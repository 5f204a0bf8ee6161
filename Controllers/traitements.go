package Controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"Diligent/Models"
	"Diligent/Notifications"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MaxAttachmentSize is the per-file upload ceiling (10 MB).
const MaxAttachmentSize = 10 << 20

// TraitementController accepts recipient work submissions.
type TraitementController struct {
	DB         *gorm.DB
	Dispatcher *Notifications.Dispatcher
	UploadDir  string
}

func NewTraitementController(db *gorm.DB, dispatcher *Notifications.Dispatcher, uploadDir string) *TraitementController {
	return &TraitementController{DB: db, Dispatcher: dispatcher, UploadDir: uploadDir}
}

// SubmitTraitement records a recipient's progress update. A submission
// with status Done never marks the diligence Done; it goes to
// PendingValidation and waits for the creator's decision. The creator
// is emailed best-effort; email failure never fails the request.
func (ctrl *TraitementController) SubmitTraitement(ctx *fiber.Ctx) error {
	user := ctx.Locals("user").(Models.User)

	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid diligence ID"})
	}

	var diligence Models.Diligence
	if err := ctrl.DB.Preload("Recipients").First(&diligence, id).Error; err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Diligence not found"})
	}

	if !isRecipient(&diligence, user.ID) && !user.IsAdmin() {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not a recipient of this diligence"})
	}

	comment := ctx.FormValue("comment")
	status := ctx.FormValue("status")
	progression, err := strconv.Atoi(ctx.FormValue("progression", "0"))
	if err != nil || progression < 0 || progression > 100 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Progression must be between 0 and 100"})
	}

	switch status {
	case Models.StatusInProgress, Models.StatusDone, Models.StatusPendingValidation:
	default:
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Status must be InProgress, Done or PendingValidation"})
	}

	attachments, err := ctrl.saveAttachments(ctx, diligence.ID)
	if err != nil {
		if err == errAttachmentTooLarge {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Attachments must be 10MB or smaller"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store attachments"})
	}

	attachmentsJSON, _ := json.Marshal(attachments)

	traitement := Models.DiligenceTraitement{
		DiligenceID: diligence.ID,
		UserID:      user.ID,
		Comment:     comment,
		Progression: progression,
		Status:      status,
		Attachments: attachmentsJSON,
	}

	if err := ctrl.DB.Create(&traitement).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record treatment"})
	}

	// A recipient can never complete a diligence on their own; Done
	// becomes PendingValidation until the creator validates.
	liveStatus := status
	if status == Models.StatusDone {
		liveStatus = Models.StatusPendingValidation
	}

	if err := ctrl.DB.Model(&diligence).Updates(map[string]interface{}{
		"status":      liveStatus,
		"progression": progression,
		"updated_at":  time.Now(),
	}).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update diligence"})
	}

	var creator Models.User
	if err := ctrl.DB.First(&creator, diligence.CreatedByID).Error; err == nil {
		submitter := user
		go ctrl.Dispatcher.NotifySubmitted(&diligence, &creator, &submitter, &traitement)
	}

	diligence.Status = liveStatus
	diligence.Progression = progression

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"traitement": traitement,
		"diligence":  diligence,
	})
}

var errAttachmentTooLarge = fmt.Errorf("attachment exceeds size limit")

// saveAttachments persists uploaded files under the diligence's upload
// directory and returns their relative paths. Partially written files
// from a failed batch are left on disk.
func (ctrl *TraitementController) saveAttachments(ctx *fiber.Ctx, diligenceID uint) ([]string, error) {
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}

	files := form.File["attachments"]
	if len(files) == 0 {
		return nil, nil
	}

	dir := filepath.Join(ctrl.UploadDir, "diligences", strconv.Itoa(int(diligenceID)))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var saved []string
	for _, file := range files {
		if file.Size > MaxAttachmentSize {
			return nil, errAttachmentTooLarge
		}

		name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(file.Filename))
		path := filepath.Join(dir, name)

		if err := ctx.SaveFile(file, path); err != nil {
			return nil, err
		}

		saved = append(saved, path)

		if isImage(file.Filename) {
			makeThumbnail(path)
		}
	}

	return saved, nil
}

func isImage(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// makeThumbnail writes a 320px-wide preview next to the original.
// Thumbnails are a convenience for the dashboard; failure is logged
// and ignored.
func makeThumbnail(path string) {
	img, err := imaging.Open(path)
	if err != nil {
		log.Printf("Error opening image %s for thumbnail: %v\n", path, err)
		return
	}

	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
	thumbPath := strings.TrimSuffix(path, filepath.Ext(path)) + "_thumb.jpg"

	if err := imaging.Save(thumb, thumbPath); err != nil {
		log.Printf("Error saving thumbnail %s: %v\n", thumbPath, err)
	}
}
