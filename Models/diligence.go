package Models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateLayout is the storage format for start/end dates. Dates are kept
// as strings so an unset date is the empty string, and lexicographic
// comparison matches chronological order in SQL.
const DateLayout = "2006-01-02"

const (
	StatusPlanned           = "Planned"
	StatusInProgress        = "InProgress"
	StatusDone              = "Done"
	StatusLate              = "Late"
	StatusPendingValidation = "PendingValidation"
)

const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

const (
	ValidationApproved = "approved"
	ValidationRejected = "rejected"
)

type Diligence struct {
	gorm.Model
	Title       string `json:"title" gorm:"not null"`
	Direction   string `json:"direction"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
	Priority    string `json:"priority" gorm:"default:Medium"`
	Status      string `json:"status" gorm:"default:Planned;index"`
	Progression int    `json:"progression" gorm:"default:0"`

	CreatedByID  uint  `json:"created_by_id" gorm:"index;not null"`
	AssignedToID *uint `json:"assigned_to_id"`

	Recipients  []User         `json:"recipients,omitempty" gorm:"many2many:diligence_recipients"`
	Attachments datatypes.JSON `json:"attachments,omitempty"`

	Archived   bool       `json:"archived" gorm:"default:false;index"`
	ArchivedAt *time.Time `json:"archived_at"`

	Traitements []DiligenceTraitement `json:"traitements,omitempty" gorm:"foreignKey:DiligenceID;constraint:OnDelete:CASCADE"`
	Validations []DiligenceValidation `json:"validations,omitempty" gorm:"foreignKey:DiligenceID;constraint:OnDelete:CASCADE"`
}

// DiligenceTraitement is one recipient submission against a diligence.
// Rows are append-only.
type DiligenceTraitement struct {
	gorm.Model
	DiligenceID uint           `json:"diligence_id" gorm:"index;not null"`
	UserID      uint           `json:"user_id" gorm:"not null"`
	Comment     string         `json:"comment"`
	Progression int            `json:"progression"`
	Status      string         `json:"status"`
	Attachments datatypes.JSON `json:"attachments,omitempty"`
}

// DiligenceValidation is one creator decision. Rows are append-only.
type DiligenceValidation struct {
	gorm.Model
	DiligenceID      uint   `json:"diligence_id" gorm:"index;not null"`
	ValidatorID      uint   `json:"validator_id" gorm:"not null"`
	ValidationStatus string `json:"validation_status" gorm:"not null"`
	Comment          string `json:"comment"`
}

// DiligenceArchive is the audit copy of the decisive validation. The
// unique index on DiligenceID makes a second archive attempt surface as
// a constraint error, which the API layer recasts as a no-op success.
type DiligenceArchive struct {
	gorm.Model
	DiligenceID      uint      `json:"diligence_id" gorm:"uniqueIndex;not null"`
	ValidatorID      uint      `json:"validator_id"`
	ValidationStatus string    `json:"validation_status"`
	Comment          string    `json:"comment"`
	ArchivedAt       time.Time `json:"archived_at"`

	Diligence Diligence `json:"diligence,omitempty" gorm:"foreignKey:DiligenceID"`
}

// ArchiveDiligence writes the archive row and flips the live task's
// archived flag. Validation and archival stay non-transactional with
// each other, but these two writes go together.
func ArchiveDiligence(db *gorm.DB, diligence *Diligence, decisive DiligenceValidation, at time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		archive := DiligenceArchive{
			DiligenceID:      diligence.ID,
			ValidatorID:      decisive.ValidatorID,
			ValidationStatus: decisive.ValidationStatus,
			Comment:          decisive.Comment,
			ArchivedAt:       at,
		}
		if err := tx.Create(&archive).Error; err != nil {
			return err
		}

		return tx.Model(diligence).Updates(map[string]interface{}{
			"archived":    true,
			"archived_at": at,
		}).Error
	})
}
