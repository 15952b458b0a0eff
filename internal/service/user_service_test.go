package service

import (
	"context"
	"testing"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/repository"
	"github.com/Kellia855/mindbridge/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T) (*UserService, *middleware.TokenManager, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	tokens := middleware.NewTokenManager("test-secret", time.Hour)
	return NewUserService(repository.NewUserRepository(db), tokens), tokens, db
}

func TestSignup_CreatesStudentAndIssuesToken(t *testing.T) {
	svc, tokens, _ := newUserService(t)

	res, err := svc.Signup(context.Background(), SignupInput{
		Username: "wanjiru",
		Email:    "wanjiru@alu.edu",
		Password: "Calm#Mind2030",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.NotEqual(t, "Calm#Mind2030", res.User.Password)

	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)
	assert.Equal(t, string(models.RoleStudent), claims.Role)
}

func TestSignup_Validation(t *testing.T) {
	svc, _, db := newUserService(t)
	testutil.CreateUser(t, db, "taken", models.RoleStudent)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignupInput
		code string
	}{
		{"missing fields", SignupInput{Username: "x"}, models.CodeValidation},
		{"short username", SignupInput{Username: "ab", Email: "ab@alu.edu", Password: "Calm#Mind2030"}, models.CodeValidation},
		{"bad email", SignupInput{Username: "abc", Email: "nope", Password: "Calm#Mind2030"}, models.CodeValidation},
		{"weak password", SignupInput{Username: "abc", Email: "abc@alu.edu", Password: "password"}, models.CodeValidation},
		{"duplicate email", SignupInput{Username: "fresh", Email: "TAKEN@alu.edu", Password: "Calm#Mind2030"}, models.CodeConflict},
		{"duplicate username", SignupInput{Username: "taken", Email: "other@alu.edu", Password: "Calm#Mind2030"}, models.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestLogin_ByUsernameOrEmail(t *testing.T) {
	svc, _, db := newUserService(t)
	testutil.CreateUser(t, db, "kofi", models.RoleWellnessTeam)
	ctx := context.Background()

	for _, login := range []string{"kofi", "KOFI@alu.edu"} {
		res, err := svc.Login(ctx, LoginInput{Login: login, Password: testutil.TestPassword})
		require.NoError(t, err, login)
		assert.Equal(t, "kofi", res.User.Username)
		assert.Equal(t, models.RoleWellnessTeam, res.User.Role)
	}

	_, err := svc.Login(ctx, LoginInput{Login: "kofi", Password: "wrong"})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	_, err = svc.Login(ctx, LoginInput{Login: "ghost", Password: testutil.TestPassword})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestLogout_RevokesUntilExpiry(t *testing.T) {
	svc, tokens, _ := newUserService(t)
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	var gotJTI string
	var gotTTL time.Duration
	svc.revoke = func(_ context.Context, jti string, ttl time.Duration) error {
		gotJTI, gotTTL = jti, ttl
		return nil
	}

	_, claims, err := tokens.Issue(1, "amina", "student")
	require.NoError(t, err)
	claims.ExpiresAt.Time = now.Add(30 * time.Minute)

	require.NoError(t, svc.Logout(context.Background(), claims))
	assert.Equal(t, claims.ID, gotJTI)
	assert.Equal(t, 30*time.Minute, gotTTL)
}

func TestUpdateProfile_KeepsNilFields(t *testing.T) {
	svc, _, db := newUserService(t)
	u := testutil.CreateUser(t, db, "amina", models.RoleStudent)
	phone := "+250 788 000 000"
	sid := "ALU-2025-001"

	got, err := svc.UpdateProfile(context.Background(), u.ID, UpdateProfileInput{PhoneNumber: &phone, StudentID: &sid})
	require.NoError(t, err)
	assert.Equal(t, "Firstamina", got.FirstName)
	assert.Equal(t, phone, got.PhoneNumber)
	require.NotNil(t, got.StudentID)
	assert.Equal(t, sid, *got.StudentID)

	var stored models.User
	require.NoError(t, db.First(&stored, u.ID).Error)
	assert.Equal(t, phone, stored.PhoneNumber)
	assert.Equal(t, models.RoleStudent, stored.Role)
}

func TestSetRole(t *testing.T) {
	svc, _, db := newUserService(t)
	staff := testutil.CreateUser(t, db, "counselor", models.RoleWellnessTeam)
	student := testutil.CreateUser(t, db, "amina", models.RoleStudent)
	ctx := context.Background()

	_, err := svc.SetRole(ctx, ActorFor(student), student.ID, models.RoleWellnessTeam)
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	_, err = svc.SetRole(ctx, ActorFor(staff), student.ID, "admin")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.SetRole(ctx, ActorFor(staff), staff.ID, models.RoleStudent)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	got, err := svc.SetRole(ctx, ActorFor(staff), student.ID, models.RoleWellnessTeam)
	require.NoError(t, err)
	assert.Equal(t, models.RoleWellnessTeam, got.Role)
}
