package Controllers

import (
	"net/http"
	"testing"

	"Diligent/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDiligence(t *testing.T) {
	env := newTestEnv(t)

	env.actAs(env.creator)
	resp := env.doJSON(t, http.MethodPost, "/api/diligences/", map[string]interface{}{
		"title":         "Prepare audit file",
		"direction":     "Legal",
		"start_date":    "2025-06-01",
		"end_date":      "2025-06-30",
		"priority":      Models.PriorityHigh,
		"recipient_ids": []uint{env.recipient.ID},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created Models.Diligence
	decodeJSON(t, resp, &created)
	assert.Equal(t, Models.StatusPlanned, created.Status)
	assert.Equal(t, env.creator.ID, created.CreatedByID)
	require.Len(t, created.Recipients, 1)
	assert.Equal(t, env.recipient.ID, created.Recipients[0].ID)
}

func TestCreateDiligenceRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.actAs(env.creator)

	// Missing title
	resp := env.doJSON(t, http.MethodPost, "/api/diligences/", map[string]interface{}{
		"end_date": "2025-06-30",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed date
	resp = env.doJSON(t, http.MethodPost, "/api/diligences/", map[string]interface{}{
		"title":    "Bad date",
		"end_date": "30/06/2025",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown recipient
	resp = env.doJSON(t, http.MethodPost, "/api/diligences/", map[string]interface{}{
		"title":         "Ghost recipient",
		"recipient_ids": []uint{9999},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateDiligenceRequiresCreatorOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDiligence(t, Models.StatusPlanned, "2025-06-01", "2025-06-30")

	payload := map[string]interface{}{
		"title":    "Renamed",
		"end_date": "2025-07-15",
	}

	env.actAs(env.recipient)
	resp := env.doJSON(t, http.MethodPut, diligencePath(d.ID), payload)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	env.actAs(env.creator)
	resp = env.doJSON(t, http.MethodPut, diligencePath(d.ID), payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := env.reloadDiligence(t, d.ID)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "2025-07-15", got.EndDate)
}

func TestDeleteDiligenceCascades(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDiligence(t, Models.StatusInProgress, "2025-06-01", "2025-06-30")
	require.NoError(t, env.db.Create(&Models.DiligenceTraitement{
		DiligenceID: d.ID,
		UserID:      env.recipient.ID,
		Comment:     "halfway",
		Progression: 50,
		Status:      Models.StatusInProgress,
	}).Error)

	env.actAs(env.creator)
	resp := env.doJSON(t, http.MethodDelete, diligencePath(d.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&Models.DiligenceTraitement{}).
		Where("diligence_id = ?", d.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count, "treatment rows are owned by the task")
}

func TestListScopedToCallerUnlessAdmin(t *testing.T) {
	env := newTestEnv(t)
	mine := env.createDiligence(t, Models.StatusPlanned, "2025-06-01", "2025-06-30")

	outsider := env.createUser(t, "Outsider", "outsider@example.com", Models.RoleUser)
	other := Models.Diligence{
		Title:       "Someone else's task",
		Status:      Models.StatusPlanned,
		CreatedByID: outsider.ID,
	}
	require.NoError(t, env.db.Create(&other).Error)

	env.actAs(env.creator)
	resp := env.doJSON(t, http.MethodGet, "/api/diligences/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []Models.Diligence
	decodeJSON(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)

	env.actAs(env.admin)
	resp = env.doJSON(t, http.MethodGet, "/api/diligences/", nil)
	decodeJSON(t, resp, &listed)
	assert.Len(t, listed, 2)
}

func TestRecipientSeesAssignedDiligences(t *testing.T) {
	env := newTestEnv(t)
	d := env.createDiligence(t, Models.StatusPlanned, "2025-06-01", "2025-06-30")

	env.actAs(env.recipient)
	resp := env.doJSON(t, http.MethodGet, "/api/diligences/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []Models.Diligence
	decodeJSON(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, d.ID, listed[0].ID)
}
