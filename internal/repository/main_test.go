package repository

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Kellia855/mindbridge/internal/database"
	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// newTestDB returns an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username:  username,
		Email:     username + "@alu.edu",
		Password:  "hash",
		FirstName: "First" + username,
		LastName:  "Last",
		Role:      role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
