package Controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"Diligent/CronJobs"
	"Diligent/Models"
	"Diligent/Notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv wires the controllers onto a fiber app with a stub auth
// middleware so tests can act as any user without minting tokens.
type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	current   Models.User
	admin     Models.User
	creator   Models.User
	recipient Models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&Models.User{},
		&Models.SmtpConfig{},
		&Models.EmailLog{},
		&Models.Diligence{},
		&Models.DiligenceTraitement{},
		&Models.DiligenceValidation{},
		&Models.DiligenceArchive{},
	))

	env := &testEnv{db: db}
	env.admin = env.createUser(t, "Admin", "admin@example.com", Models.RoleAdmin)
	env.creator = env.createUser(t, "Creator", "creator@example.com", Models.RoleUser)
	env.recipient = env.createUser(t, "Recipient", "recipient@example.com", Models.RoleUser)
	env.current = env.creator

	dispatcher := &Notifications.Dispatcher{
		DB:   db,
		Send: func(Models.EmailConfig, Models.EmailMessage) error { return nil },
	}

	diligenceController := NewDiligenceController(db, dispatcher)
	traitementController := NewTraitementController(db, dispatcher, t.TempDir())
	validationController := NewValidationController(db, dispatcher)
	archiveController := NewArchiveController(db, CronJobs.NewArchiveSweeper(db, 0))
	smtpController := NewSmtpController(db, dispatcher)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", env.current)
		return c.Next()
	})

	api := app.Group("/api")
	diligences := api.Group("/diligences")
	diligences.Get("/", diligenceController.GetDiligences)
	diligences.Post("/", diligenceController.CreateDiligence)
	diligences.Get("/:id", diligenceController.GetDiligence)
	diligences.Put("/:id", diligenceController.UpdateDiligence)
	diligences.Delete("/:id", diligenceController.DeleteDiligence)
	diligences.Post("/:id/view", diligenceController.MarkViewed)
	diligences.Post("/:id/traitement", traitementController.SubmitTraitement)
	diligences.Post("/:id/validate", validationController.ValidateDiligence)
	diligences.Post("/:id/archive", archiveController.ArchiveDiligence)
	api.Get("/archives", archiveController.GetArchives)
	api.Post("/smtp-config", smtpController.SaveConfig)

	env.app = app
	return env
}

func (env *testEnv) createUser(t *testing.T, name, email, role string) Models.User {
	t.Helper()

	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := Models.User{Name: name, Email: email, Password: password, Role: role, Active: true}
	require.NoError(t, env.db.Create(&user).Error)
	return user
}

// actAs switches the user the stub middleware injects.
func (env *testEnv) actAs(user Models.User) {
	env.current = user
}

func (env *testEnv) doJSON(t *testing.T, method, path string, payload interface{}) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, jsonBody(t, payload))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (env *testEnv) doMultipart(t *testing.T, path string, fields map[string]string, filename string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	if filename != "" {
		part, err := writer.CreateFormFile("attachments", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func jsonBody(t *testing.T, payload interface{}) io.Reader {
	t.Helper()

	if payload == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func diligencePath(id uint) string {
	return fmt.Sprintf("/api/diligences/%d", id)
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (env *testEnv) reloadDiligence(t *testing.T, id uint) Models.Diligence {
	t.Helper()
	var d Models.Diligence
	require.NoError(t, env.db.First(&d, id).Error)
	return d
}

// createDiligence seeds a task from the creator to the recipient.
func (env *testEnv) createDiligence(t *testing.T, status, startDate, endDate string) Models.Diligence {
	t.Helper()

	d := Models.Diligence{
		Title:       "Review contract",
		Status:      status,
		StartDate:   startDate,
		EndDate:     endDate,
		Priority:    Models.PriorityHigh,
		CreatedByID: env.creator.ID,
		Recipients:  []Models.User{env.recipient},
	}
	require.NoError(t, env.db.Create(&d).Error)
	return d
}
