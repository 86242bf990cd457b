package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/models"
)

// Migrate creates or updates every table owned by the API.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserProfile{},
		&models.Thread{},
		&models.ThreadParticipant{},
		&models.Message{},
		&models.Category{},
		&models.Service{},
		&models.ProfessionalProfile{},
		&models.ProfessionalService{},
		&models.PastWork{},
		&models.ServiceRequest{},
		&models.Quote{},
		&models.UploadRecord{},
	)
}
