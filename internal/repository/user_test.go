package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_ListStaffQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "email", "role"}).
		AddRow(4, "counselor", "counselor@alu.edu", "wellness_team")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE role = $1 ORDER BY id ASC`)).
		WithArgs(models.RoleWellnessTeam).
		WillReturnRows(rows)

	staff, err := repo.ListStaff(context.Background())
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "counselor", staff[0].Username)
	assert.True(t, staff[0].IsWellnessTeam())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetByID(context.Background(), 99)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Username: "amani", Email: "Amani@alu.edu", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))

	byName, err := repo.GetByLogin(ctx, "amani")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := repo.GetByLogin(ctx, "amani@ALU.edu")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := repo.GetByLogin(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &models.User{Username: "amani", Email: "other@alu.edu", Password: "hash"}
	err = repo.Create(ctx, dup)
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
}

func TestUserRepository_UpdateProfileKeepsPassword(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "keza", models.RoleStudent)

	patch := &models.User{ID: u.ID, FirstName: "Keza", LastName: "M", PhoneNumber: "+250788000000"}
	require.NoError(t, repo.UpdateProfile(ctx, patch))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keza", got.FirstName)
	assert.Equal(t, "+250788000000", got.PhoneNumber)

	var raw models.User
	require.NoError(t, db.First(&raw, u.ID).Error)
	assert.Equal(t, "hash", raw.Password)
}

func TestUserRepository_UpdateRole(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "staffer", models.RoleStudent)

	got, err := repo.UpdateRole(ctx, u.ID, models.RoleWellnessTeam)
	require.NoError(t, err)
	assert.True(t, got.IsWellnessTeam())

	_, err = repo.UpdateRole(ctx, 999, models.RoleWellnessTeam)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	staff, err := repo.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, u.ID, staff[0].ID)
}
