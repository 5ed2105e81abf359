package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/incidentdesk/incidentdesk/internal/models"
)

func ConnectDatabase(dsn string) (*gorm.DB, error) {
	// TranslateError maps driver unique-constraint violations onto
	// gorm.ErrDuplicatedKey so duplicates surface as Conflict upstream.
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

func MigrateDatabase(database *gorm.DB) error {
	tables := []interface{}{
		&models.User{},
		&models.Incident{},
		&models.IncidentAttachment{},
		&models.IncidentResponse{},
	}

	migrator := database.Migrator()

	for _, table := range tables {
		if !migrator.HasTable(table) {
			if err := database.AutoMigrate(table); err != nil {
				return err
			}
		}
	}

	return nil
}
