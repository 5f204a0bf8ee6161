package CronJobs

import (
	"fmt"
	"log"
	"strings"
	"time"

	"Diligent/Models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ArchiveSweeper moves finished diligences into the archive table once
// they have sat untouched long enough. It re-scans every unarchived
// Done task on each run, so a diligence left Done-but-unarchived by a
// crash is picked up on the next sweep.
type ArchiveSweeper struct {
	db            *gorm.DB
	cronScheduler *cron.Cron
	jobID         cron.EntryID
	minAge        time.Duration
	now           func() time.Time
}

func NewArchiveSweeper(db *gorm.DB, minAge time.Duration) *ArchiveSweeper {
	return &ArchiveSweeper{
		db:            db,
		cronScheduler: cron.New(),
		minAge:        minAge,
		now:           time.Now,
	}
}

// Start schedules the sweep to run daily.
func (s *ArchiveSweeper) Start() error {
	var err error
	s.jobID, err = s.cronScheduler.AddFunc("@daily", func() {
		if _, err := s.RunSweep(); err != nil {
			log.Printf("Archive sweep failed: %v\n", err)
		}
	})

	if err != nil {
		return fmt.Errorf("error scheduling archive sweeper: %w", err)
	}

	s.cronScheduler.Start()
	log.Println("Archive sweeper started, running daily")
	return nil
}

func (s *ArchiveSweeper) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Archive sweeper stopped")
	}
}

// RunSweep archives every Done, unarchived diligence whose last update
// is older than minAge. Returns the number of diligences archived.
func (s *ArchiveSweeper) RunSweep() (int, error) {
	now := s.now()
	cutoff := now.Add(-s.minAge)

	var candidates []Models.Diligence
	if err := s.db.
		Where("status = ? AND archived = ? AND updated_at < ?",
			Models.StatusDone, false, cutoff).
		Find(&candidates).Error; err != nil {
		return 0, fmt.Errorf("scanning finished diligences: %w", err)
	}

	archived := 0
	for i := range candidates {
		diligence := &candidates[i]

		var decisive Models.DiligenceValidation
		if err := s.db.
			Where("diligence_id = ? AND validation_status = ?",
				diligence.ID, Models.ValidationApproved).
			Order("created_at DESC").
			First(&decisive).Error; err != nil {
			// A Done task without an approval can only come from legacy
			// data; archive it with an empty decision rather than leave
			// it in the live table forever.
			log.Printf("Diligence %d is Done without an approval record\n", diligence.ID)
		}

		if err := Models.ArchiveDiligence(s.db, diligence, decisive, now); err != nil {
			if isDuplicateError(err) {
				continue
			}
			log.Printf("Failed to archive diligence %d: %v\n", diligence.ID, err)
			continue
		}

		archived++
	}

	if archived > 0 {
		log.Printf("Archive sweep: archived %d diligences\n", archived)
	}

	return archived, nil
}

// isDuplicateError reports whether err is a unique-constraint violation
// (sqlite and MySQL spell these differently).
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "unique constraint")
}
