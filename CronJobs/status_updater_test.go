package CronJobs

import (
	"path/filepath"
	"testing"
	"time"

	"Diligent/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&Models.User{},
		&Models.Diligence{},
		&Models.DiligenceTraitement{},
		&Models.DiligenceValidation{},
		&Models.DiligenceArchive{},
	))

	return db
}

func newTestUpdater(db *gorm.DB, now time.Time) *StatusUpdater {
	updater := NewStatusUpdater(db, "@every 5m")
	updater.now = func() time.Time { return now }
	return updater
}

func dateOffset(now time.Time, days int) string {
	return now.AddDate(0, 0, days).Format(Models.DateLayout)
}

func reload(t *testing.T, db *gorm.DB, id uint) Models.Diligence {
	t.Helper()
	var d Models.Diligence
	require.NoError(t, db.First(&d, id).Error)
	return d
}

func TestOverdueTaskBecomesLate(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	d := Models.Diligence{
		Title:       "Quarterly report",
		Status:      Models.StatusInProgress,
		StartDate:   dateOffset(now, -10),
		EndDate:     dateOffset(now, -1),
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(&d).Error)

	require.NoError(t, newTestUpdater(db, now).RunPass())

	assert.Equal(t, Models.StatusLate, reload(t, db, d.ID).Status)
}

func TestOverdueBeatsStartRule(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	// Satisfies both the late rule and the start rule; the late rule
	// runs first and must win.
	d := Models.Diligence{
		Title:       "Both rules",
		Status:      Models.StatusPlanned,
		StartDate:   dateOffset(now, -5),
		EndDate:     dateOffset(now, -2),
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(&d).Error)

	require.NoError(t, newTestUpdater(db, now).RunPass())

	assert.Equal(t, Models.StatusLate, reload(t, db, d.ID).Status)
}

func TestPlannedTaskStarts(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	started := Models.Diligence{
		Title:       "Starts today",
		Status:      Models.StatusPlanned,
		StartDate:   dateOffset(now, 0),
		EndDate:     dateOffset(now, 7),
		CreatedByID: 1,
	}
	future := Models.Diligence{
		Title:       "Starts next week",
		Status:      Models.StatusPlanned,
		StartDate:   dateOffset(now, 7),
		EndDate:     dateOffset(now, 14),
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(&started).Error)
	require.NoError(t, db.Create(&future).Error)

	require.NoError(t, newTestUpdater(db, now).RunPass())

	assert.Equal(t, Models.StatusInProgress, reload(t, db, started.ID).Status)
	assert.Equal(t, Models.StatusPlanned, reload(t, db, future.ID).Status)
}

func TestPrematureCompletionReverted(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	premature := Models.Diligence{
		Title:       "Done too early",
		Status:      Models.StatusDone,
		StartDate:   dateOffset(now, -5),
		EndDate:     dateOffset(now, 5),
		CreatedByID: 1,
	}
	legitimate := Models.Diligence{
		Title:       "Done on time",
		Status:      Models.StatusDone,
		StartDate:   dateOffset(now, -10),
		EndDate:     dateOffset(now, -1),
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(&premature).Error)
	require.NoError(t, db.Create(&legitimate).Error)

	require.NoError(t, newTestUpdater(db, now).RunPass())

	assert.Equal(t, Models.StatusInProgress, reload(t, db, premature.ID).Status)
	assert.Equal(t, Models.StatusDone, reload(t, db, legitimate.ID).Status)
}

func TestEmptyEndDateIgnored(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	d := Models.Diligence{
		Title:       "Open-ended",
		Status:      Models.StatusInProgress,
		StartDate:   dateOffset(now, -30),
		EndDate:     "",
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(&d).Error)

	require.NoError(t, newTestUpdater(db, now).RunPass())

	assert.Equal(t, Models.StatusInProgress, reload(t, db, d.ID).Status)
}

func TestPassRefreshesUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	d := Models.Diligence{
		Title:       "Overdue",
		Status:      Models.StatusInProgress,
		EndDate:     dateOffset(now, -1),
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(&d).Error)

	require.NoError(t, newTestUpdater(db, now).RunPass())

	assert.WithinDuration(t, now, reload(t, db, d.ID).UpdatedAt, time.Second)
}

func TestReentrancyGuardSkipsOverlappingPass(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	d := Models.Diligence{
		Title:       "Overdue",
		Status:      Models.StatusInProgress,
		EndDate:     dateOffset(now, -1),
		CreatedByID: 1,
	}
	require.NoError(t, db.Create(&d).Error)

	updater := newTestUpdater(db, now)
	updater.running.Store(true)

	err := updater.RunPass()
	assert.ErrorIs(t, err, ErrPassInProgress)
	assert.Equal(t, Models.StatusInProgress, reload(t, db, d.ID).Status, "skipped pass must perform zero writes")

	// Once the in-flight pass finishes the next one proceeds.
	updater.running.Store(false)
	require.NoError(t, updater.RunPass())
	assert.Equal(t, Models.StatusLate, reload(t, db, d.ID).Status)
}

func TestGuardClearsAfterPass(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	updater := newTestUpdater(db, now)
	require.NoError(t, updater.RunPass())
	require.NoError(t, updater.RunPass(), "guard must clear between sequential passes")
}
