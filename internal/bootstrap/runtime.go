// Package bootstrap wires process-level dependencies shared by the
// commands: database, Redis, the development staff account and the
// external booking collaborators.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Kellia855/mindbridge/internal/cache"
	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/database"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const devStaffUsername = "wellness_team"

// Options control runtime initialization behavior.
type Options struct {
	// SeedLibrary loads the built-in library catalog when the table is empty.
	SeedLibrary bool
}

// InitRuntime connects to DB and Redis and prepares development data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevStaff(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development staff account: %w", err)
	}

	if opts.SeedLibrary {
		n, err := seed.Library(db)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed library catalog: %w", err)
		}
		if n > 0 {
			middleware.Logger.Info("library catalog seeded", slog.Int("books", n))
		}
	}

	return db, r, nil
}

// EnsureDevStaff makes sure a wellness-team login exists in development.
// An existing account with the configured email is promoted and keeps its
// password.
func EnsureDevStaff(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if cfg.Env != "development" || cfg.DevStaffPassword == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.DevStaffEmail))
	if email == "" {
		return errors.New("DEV_STAFF_EMAIL must be set when DEV_STAFF_PASSWORD is set")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var staff models.User
		err := tx.Where("LOWER(email) = ?", email).First(&staff).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevStaffPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash staff password: %w", err)
			}
			staff = models.User{
				Username:  devStaffUsername,
				Email:     email,
				Password:  string(hashed),
				FirstName: "Wellness",
				LastName:  "Team",
				Role:      models.RoleWellnessTeam,
			}
			if err := tx.Create(&staff).Error; err != nil {
				return err
			}
			middleware.Logger.Info("development staff account created", slog.String("email", email))
		case err != nil:
			return err
		case staff.Role != models.RoleWellnessTeam:
			if err := tx.Model(&staff).Update("role", models.RoleWellnessTeam).Error; err != nil {
				return err
			}
			middleware.Logger.Info("development staff account promoted", slog.String("email", email))
		}
		return nil
	})
}
