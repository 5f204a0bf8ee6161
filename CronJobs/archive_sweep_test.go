package CronJobs

import (
	"testing"
	"time"

	"Diligent/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestSweeper(db *gorm.DB, now time.Time, minAge time.Duration) *ArchiveSweeper {
	sweeper := NewArchiveSweeper(db, minAge)
	sweeper.now = func() time.Time { return now }
	return sweeper
}

func TestSweepArchivesOldDoneTasks(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	old := Models.Diligence{Title: "Finished last month", Status: Models.StatusDone, CreatedByID: 1}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&Models.DiligenceValidation{
		DiligenceID:      old.ID,
		ValidatorID:      1,
		ValidationStatus: Models.ValidationApproved,
		Comment:          "good work",
	}).Error)
	// Backdate the last update past the archive age.
	require.NoError(t, db.Model(&Models.Diligence{}).Where("id = ?", old.ID).
		Update("updated_at", now.AddDate(0, -1, 0)).Error)

	fresh := Models.Diligence{Title: "Finished yesterday", Status: Models.StatusDone, CreatedByID: 1}
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Model(&Models.Diligence{}).Where("id = ?", fresh.ID).
		Update("updated_at", now.Add(-12*time.Hour)).Error)

	inProgress := Models.Diligence{Title: "Still running", Status: Models.StatusInProgress, CreatedByID: 1}
	require.NoError(t, db.Create(&inProgress).Error)

	archived, err := newTestSweeper(db, now, 7*24*time.Hour).RunSweep()
	require.NoError(t, err)
	assert.Equal(t, 1, archived)

	got := reload(t, db, old.ID)
	assert.True(t, got.Archived)
	require.NotNil(t, got.ArchivedAt)

	var record Models.DiligenceArchive
	require.NoError(t, db.Where("diligence_id = ?", old.ID).First(&record).Error)
	assert.Equal(t, Models.ValidationApproved, record.ValidationStatus)
	assert.Equal(t, "good work", record.Comment)

	assert.False(t, reload(t, db, fresh.ID).Archived)
	assert.False(t, reload(t, db, inProgress.ID).Archived)
}

func TestSweepIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	d := Models.Diligence{Title: "Finished", Status: Models.StatusDone, CreatedByID: 1}
	require.NoError(t, db.Create(&d).Error)
	require.NoError(t, db.Model(&Models.Diligence{}).Where("id = ?", d.ID).
		Update("updated_at", now.AddDate(0, -1, 0)).Error)

	sweeper := newTestSweeper(db, now, 7*24*time.Hour)

	archived, err := sweeper.RunSweep()
	require.NoError(t, err)
	assert.Equal(t, 1, archived)

	archived, err = sweeper.RunSweep()
	require.NoError(t, err)
	assert.Equal(t, 0, archived, "already archived tasks are not re-archived")

	var count int64
	require.NoError(t, db.Model(&Models.DiligenceArchive{}).
		Where("diligence_id = ?", d.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
