package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/config"
	"github.com/sevasangh/portal-api/internal/models"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto Migrate
	err = db.AutoMigrate(
		&models.Member{},
		&models.Activity{},
		&models.Registration{},
		&models.RegistrationAudit{},
		&models.Donation{},
		&models.RecurringPledge{},
		&models.LogisticsAssignment{},
		&models.APIKey{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}
