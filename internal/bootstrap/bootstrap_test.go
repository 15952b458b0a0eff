package bootstrap

import (
	"context"
	"testing"

	"github.com/Kellia855/mindbridge/internal/broker"
	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/jobs"
	"github.com/Kellia855/mindbridge/internal/mailer"
	"github.com/Kellia855/mindbridge/internal/meeting"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevStaffEmail:    "Wellness@ALUeducation.com",
		DevStaffPassword: "Counsel#2030",
		SessionTimezone:  "UTC",
	}
}

func TestEnsureDevStaff_CreatesAccount(t *testing.T) {
	db := testutil.NewTestDB(t)

	require.NoError(t, EnsureDevStaff(devConfig(), db))
	// Running twice is harmless.
	require.NoError(t, EnsureDevStaff(devConfig(), db))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "wellness@alueducation.com", users[0].Email)
	assert.Equal(t, models.RoleWellnessTeam, users[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("Counsel#2030")))
}

func TestEnsureDevStaff_PromotesExistingUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	u := testutil.CreateUser(t, db, "wellness", models.RoleStudent)
	cfg := devConfig()
	cfg.DevStaffEmail = u.Email

	require.NoError(t, EnsureDevStaff(cfg, db))

	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.Equal(t, models.RoleWellnessTeam, got.Role)
	assert.Equal(t, u.Password, got.Password)
}

func TestEnsureDevStaff_Skipped(t *testing.T) {
	tests := []struct {
		name string
		edit func(*config.Config)
	}{
		{"production", func(c *config.Config) { c.Env = "production" }},
		{"no password", func(c *config.Config) { c.DevStaffPassword = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			cfg := devConfig()
			tt.edit(cfg)

			require.NoError(t, EnsureDevStaff(cfg, db))
			var count int64
			require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestBuildCollaborators_Defaults(t *testing.T) {
	cfg := devConfig()
	cfg.MeetingProvider = config.ProviderDisabled
	cfg.MailProvider = config.ProviderLog

	c, err := BuildCollaborators(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.IsType(t, meeting.Noop{}, c.Meetings)
	assert.IsType(t, mailer.Log{}, c.Mail)
	assert.IsType(t, broker.Discard{}, c.Events)
	assert.Nil(t, c.Reminders)
	assert.Nil(t, c.Deps().Reminders)
}

func TestBuildCollaborators_AsyncMail(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := devConfig()
	cfg.RedisURL = mr.Addr()
	cfg.MailAsync = true

	c, err := BuildCollaborators(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.Reminders)
	assert.IsType(t, jobs.QueuedSender{}, c.Mail)
	assert.IsType(t, mailer.Log{}, c.Direct)
	assert.NotNil(t, c.Deps().Reminders)
}

func TestBuildCollaborators_MissingGoogleSecret(t *testing.T) {
	cfg := devConfig()
	cfg.MeetingProvider = config.ProviderGoogle
	cfg.GoogleClientSecretFile = t.TempDir() + "/missing.json"
	cfg.GoogleTokenFile = t.TempDir() + "/token.json"

	_, err := BuildCollaborators(context.Background(), cfg)
	assert.Error(t, err)
}
