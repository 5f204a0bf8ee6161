package Config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// AppConfig holds runtime configuration. Values are resolved in order:
// built-in defaults, then config.json5 if present, then environment
// variables (including anything loaded from .env).
type AppConfig struct {
	Port           string `json:"port"`
	DatabaseDSN    string `json:"database_dsn"`
	JWTSecret      string `json:"jwt_secret"`
	FrontendURL    string `json:"frontend_url"`
	UploadDir      string `json:"upload_dir"`
	StatusSchedule string `json:"status_schedule"`
	ArchiveAgeDays int    `json:"archive_age_days"`
}

var C AppConfig

// Load populates Config.C. A missing .env or config.json5 is not an
// error; both are optional overrides.
func Load() {
	C = AppConfig{
		Port:           "8080",
		DatabaseDSN:    "database.db",
		JWTSecret:      "secret",
		FrontendURL:    "*",
		UploadDir:      "uploads",
		StatusSchedule: "@every 5m",
		ArchiveAgeDays: 7,
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults and environment")
	}

	if data, err := os.ReadFile("config.json5"); err == nil {
		if err := json5.Unmarshal(data, &C); err != nil {
			log.Printf("Error parsing config.json5: %v\n", err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		C.Port = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		C.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		C.JWTSecret = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		C.FrontendURL = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		C.UploadDir = v
	}
	if v := os.Getenv("STATUS_SCHEDULE"); v != "" {
		C.StatusSchedule = v
	}
	if v := os.Getenv("ARCHIVE_AGE_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			C.ArchiveAgeDays = days
		}
	}
}
