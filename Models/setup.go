package Models

import (
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database and applies migrations. A DSN containing
// "@tcp(" is treated as MySQL, anything else as a sqlite file path.
func Connect(dsn string) error {
	var err error

	if strings.Contains(dsn, "@tcp(") {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	} else {
		DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}

	if err != nil {
		return err
	}

	// 1. Base tables with no dependencies
	if err := DB.AutoMigrate(
		&User{},
		&SmtpConfig{},
		&EmailLog{},
	); err != nil {
		return err
	}

	// 2. Diligences and everything hanging off them
	if err := DB.AutoMigrate(
		&Diligence{},
		&DiligenceTraitement{},
		&DiligenceValidation{},
		&DiligenceArchive{},
	); err != nil {
		return err
	}

	seedAdmin()

	return nil
}

// seedAdmin creates the bootstrap admin account on an empty database so
// a fresh deployment can log in and register real users.
func seedAdmin() {
	var count int64
	if err := DB.Model(&User{}).Count(&count).Error; err != nil {
		log.Printf("Error counting users: %v\n", err)
		return
	}

	if count > 0 {
		return
	}

	password, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing bootstrap password: %v\n", err)
		return
	}

	admin := User{
		Name:     "Administrator",
		Email:    "admin@localhost",
		Password: password,
		Role:     RoleAdmin,
		Active:   true,
	}

	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Error seeding admin user: %v\n", err)
		return
	}

	log.Println("Seeded bootstrap admin account (admin@localhost / admin), change the password immediately")
}
