package database

import "github.com/Kellia855/mindbridge/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Booking{},
		&models.Event{},
		&models.EventRegistration{},
		&models.Post{},
		&models.LibraryBook{},
	}
}
