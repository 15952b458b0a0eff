package database

import (
	"testing"

	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesBookingAndRegistrations(t *testing.T) {
	var hasBooking, hasRegistration bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Booking:
			hasBooking = true
		case *models.EventRegistration:
			hasRegistration = true
		}
	}
	assert.True(t, hasBooking, "PersistentModels should include Booking")
	assert.True(t, hasRegistration, "PersistentModels should include EventRegistration")
}

func TestAutoMigrate_SQLite(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"users", "bookings", "events", "event_registrations", "posts", "library_books"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.False(t, db.Migrator().HasColumn(&models.Event{}, "registered_count"))
}
