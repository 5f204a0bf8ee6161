package CronJobs

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"Diligent/Models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ErrPassInProgress is returned when a pass is requested while a
// previous one is still running. The request is skipped, not queued.
var ErrPassInProgress = errors.New("status update pass already in progress")

// StatusUpdater keeps every diligence's status consistent with the
// wall-clock date, independent of user action. One pass is three
// UPDATE statements evaluated in a fixed order; rule order matters (a
// task that is both overdue and startable must end up Late).
type StatusUpdater struct {
	db            *gorm.DB
	cronScheduler *cron.Cron
	jobID         cron.EntryID
	schedule      string
	running       atomic.Bool
	now           func() time.Time
}

// NewStatusUpdater creates an updater on the given schedule
// (cron expression, e.g. "@every 5m").
func NewStatusUpdater(db *gorm.DB, schedule string) *StatusUpdater {
	return &StatusUpdater{
		db:            db,
		cronScheduler: cron.New(),
		schedule:      schedule,
		now:           time.Now,
	}
}

// Start schedules the periodic pass and runs one immediately.
func (s *StatusUpdater) Start() error {
	var err error
	s.jobID, err = s.cronScheduler.AddFunc(s.schedule, func() {
		if err := s.RunPass(); err != nil && !errors.Is(err, ErrPassInProgress) {
			log.Printf("Status update pass failed: %v\n", err)
		}
	})

	if err != nil {
		return fmt.Errorf("error scheduling status updater: %w", err)
	}

	s.cronScheduler.Start()
	log.Printf("Status updater started, schedule %s\n", s.schedule)

	if err := s.RunPass(); err != nil {
		log.Printf("Initial status update pass failed: %v\n", err)
	}

	return nil
}

// Stop terminates the scheduler.
func (s *StatusUpdater) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Status updater stopped")
	}
}

// RunPass executes one recalculation pass. A pass started while a
// previous one is in flight performs zero writes and returns
// ErrPassInProgress. Any database error aborts the pass; the guard is
// always cleared so the next tick can proceed.
func (s *StatusUpdater) RunPass() error {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("Status update pass skipped, previous pass still running")
		return ErrPassInProgress
	}
	defer s.running.Store(false)

	now := s.now()
	today := now.Format(Models.DateLayout)

	// Rule 1: overdue Planned/InProgress tasks become Late. Runs before
	// rule 2 so an overdue task that also satisfies the start-date rule
	// stays Late.
	late := s.db.Model(&Models.Diligence{}).
		Where("status IN ? AND end_date <> '' AND end_date < ?",
			[]string{Models.StatusPlanned, Models.StatusInProgress}, today).
		Updates(map[string]interface{}{"status": Models.StatusLate, "updated_at": now})
	if late.Error != nil {
		return fmt.Errorf("marking late diligences: %w", late.Error)
	}

	// Rule 2: Planned tasks whose start date has arrived begin.
	started := s.db.Model(&Models.Diligence{}).
		Where("status = ? AND start_date <> '' AND start_date <= ?",
			Models.StatusPlanned, today).
		Updates(map[string]interface{}{"status": Models.StatusInProgress, "updated_at": now})
	if started.Error != nil {
		return fmt.Errorf("starting planned diligences: %w", started.Error)
	}

	// Rule 3: a Done task whose end date is still in the future goes
	// back to InProgress, undoing premature completion.
	reverted := s.db.Model(&Models.Diligence{}).
		Where("status = ? AND end_date <> '' AND end_date > ?",
			Models.StatusDone, today).
		Updates(map[string]interface{}{"status": Models.StatusInProgress, "updated_at": now})
	if reverted.Error != nil {
		return fmt.Errorf("reverting premature completions: %w", reverted.Error)
	}

	if late.RowsAffected+started.RowsAffected+reverted.RowsAffected > 0 {
		log.Printf("Status update pass: %d late, %d started, %d reverted\n",
			late.RowsAffected, started.RowsAffected, reverted.RowsAffected)
	}

	return nil
}
