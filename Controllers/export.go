package Controllers

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"Diligent/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportController produces the Excel register of diligences.
type ExportController struct {
	DB *gorm.DB
}

func NewExportController(db *gorm.DB) *ExportController {
	return &ExportController{DB: db}
}

// ExportDiligences streams the full diligence register as an .xlsx
// workbook. Honors the same status/priority filters as the list
// endpoint.
func (ctrl *ExportController) ExportDiligences(ctx *fiber.Ctx) error {
	query := ctrl.DB.Preload("Recipients").Order("created_at")

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := ctx.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}

	var diligences []Models.Diligence
	if err := query.Find(&diligences).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve diligences"})
	}

	buf, err := buildDiligenceWorkbook(diligences)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build export"})
	}

	filename := fmt.Sprintf("diligences_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	return ctx.Send(buf.Bytes())
}

func buildDiligenceWorkbook(diligences []Models.Diligence) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Diligences"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Title", "Direction", "Start Date", "End Date",
		"Priority", "Status", "Progress %", "Recipients", "Archived", "Created"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, d := range diligences {
		names := make([]string, 0, len(d.Recipients))
		for _, r := range d.Recipients {
			names = append(names, r.Name)
		}

		values := []interface{}{
			d.ID, d.Title, d.Direction, d.StartDate, d.EndDate,
			d.Priority, d.Status, d.Progression, strings.Join(names, ", "),
			d.Archived, d.CreatedAt.Format(Models.DateLayout),
		}

		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %v", err)
	}

	return &buf, nil
}
