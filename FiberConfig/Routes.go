package FiberConfig

import (
	"fmt"
	"log"

	"Diligent/Config"
	"Diligent/Controllers"
	"Diligent/CronJobs"
	"Diligent/Models"
	"Diligent/Notifications"
	"Diligent/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"
)

// SetupRoutes wires the API surface onto the app.
func SetupRoutes(app *fiber.App, db *gorm.DB, updater *CronJobs.StatusUpdater, sweeper *CronJobs.ArchiveSweeper, dispatcher *Notifications.Dispatcher) {
	diligenceController := Controllers.NewDiligenceController(db, dispatcher)
	traitementController := Controllers.NewTraitementController(db, dispatcher, Config.C.UploadDir)
	validationController := Controllers.NewValidationController(db, dispatcher)
	archiveController := Controllers.NewArchiveController(db, sweeper)
	statusController := Controllers.NewStatusController(updater)
	smtpController := Controllers.NewSmtpController(db, dispatcher)
	exportController := Controllers.NewExportController(db)

	api := app.Group("/api")

	api.Get("/health", Controllers.Health)

	// Auth
	api.Post("/Login", Controllers.Login)
	api.Get("/User", middleware.Verify(), Controllers.User)
	api.Post("/Logout", Controllers.Logout)
	api.Get("/validate-token", middleware.Verify(), Controllers.ValidateToken)

	// User management (admin)
	api.Post("/RegisterUser", middleware.Verify(Models.RoleAdmin), Controllers.RegisterUser)
	api.Get("/FetchUsers", middleware.Verify(Models.RoleAdmin), Controllers.FetchUsers)
	api.Patch("/UpdateUser", middleware.Verify(Models.RoleAdmin), Controllers.UpdateUser)
	api.Delete("/DeleteUser", middleware.Verify(Models.RoleAdmin), Controllers.DeleteUser)

	// Diligences
	diligences := api.Group("/diligences", middleware.Verify())
	diligences.Get("/", diligenceController.GetDiligences)
	diligences.Post("/", diligenceController.CreateDiligence)
	diligences.Get("/export", exportController.ExportDiligences)
	diligences.Get("/:id", diligenceController.GetDiligence)
	diligences.Put("/:id", diligenceController.UpdateDiligence)
	diligences.Delete("/:id", diligenceController.DeleteDiligence)
	diligences.Post("/:id/view", diligenceController.MarkViewed)
	diligences.Post("/:id/traitement", traitementController.SubmitTraitement)
	diligences.Post("/:id/validate", validationController.ValidateDiligence)
	diligences.Post("/:id/archive", archiveController.ArchiveDiligence)

	// Archives
	api.Get("/archives", middleware.Verify(), archiveController.GetArchives)
	api.Post("/archives/run", middleware.Verify(Models.RoleAdmin), archiveController.RunSweep)

	// Status recalculation
	api.Post("/status/force-update", middleware.Verify(Models.RoleAdmin), statusController.ForceUpdate)

	// SMTP configuration and notifications
	api.Get("/smtp-config", middleware.Verify(Models.RoleAdmin), smtpController.GetConfig)
	api.Post("/smtp-config", middleware.Verify(Models.RoleAdmin), smtpController.SaveConfig)
	api.Post("/smtp-config/test", middleware.Verify(Models.RoleAdmin), smtpController.TestConnection)
	api.Post("/notifications/send", middleware.Verify(), smtpController.SendNotification)

	// Request logs (admin)
	api.Get("/logs", middleware.Verify(Models.RoleAdmin), Controllers.GetLogs)
	api.Get("/logs/stats", middleware.Verify(Models.RoleAdmin), Controllers.GetLogStats)
}

// FiberConfig builds the app and blocks serving it.
func FiberConfig(updater *CronJobs.StatusUpdater, sweeper *CronJobs.ArchiveSweeper, dispatcher *Notifications.Dispatcher) {
	fmt.Println("Server Up...")

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024,
	})

	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     Config.C.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: Config.C.FrontendURL != "*",
		MaxAge:           300,
	}))

	SetupRoutes(app, Models.DB, updater, sweeper, dispatcher)

	// Uploaded attachments and the SPA bundle
	app.Static("/uploads", Config.C.UploadDir)
	app.Static("/", "static/")

	if err := app.Listen(":" + Config.C.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
