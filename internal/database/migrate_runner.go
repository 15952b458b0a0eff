package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"

	"gorm.io/gorm"
)

// MigrationStore tracks which migrations have been applied.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
	ApplyMigration(ctx context.Context, m Migration) error
	RemoveMigration(ctx context.Context, m Migration) error
}

// MigrationLog represents a record of an applied migration in the database.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

const ensureMigrationLogTableSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_migration_logs_applied_at ON migration_logs (applied_at);`

type migrationStore struct {
	db *gorm.DB
}

// NewMigrationStore creates a MigrationStore backed by the migration_logs table.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

func (s *migrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	var versions []int
	err := s.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return versions, nil
}

// isMissingTableError matches the postgres and sqlite wording.
func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// ApplyMigration runs the up script and records it in one transaction.
func (s *migrationStore) ApplyMigration(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m, err)
		}
		if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration applied", slog.Int("version", m.Version), slog.String("name", m.Name))
	return nil
}

// RemoveMigration runs the down script and drops the log row in one transaction.
func (s *migrationStore) RemoveMigration(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %s: %w", m, err)
		}
		if err := tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error; err != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", m.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.Int("version", m.Version), slog.String("name", m.Name))
	return nil
}

// Migrator applies a fixed set of migrations to a database.
type Migrator struct {
	db    *gorm.DB
	store MigrationStore
	set   []Migration
}

// NewMigrator returns a Migrator for set.
func NewMigrator(db *gorm.DB, set []Migration) *Migrator {
	return &Migrator{db: db, store: NewMigrationStore(db), set: set}
}

// Up applies every pending migration in version order and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).Exec(ensureMigrationLogTableSQL).Error; err != nil {
		return 0, fmt.Errorf("failed to ensure migration logs table: %w", err)
	}

	applied, err := m.store.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateAppliedVersions(applied, m.set); err != nil {
		return 0, err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	ran := 0
	for _, mig := range m.set {
		if done[mig.Version] {
			middleware.Logger.Debug("Migration already applied", slog.Int("version", mig.Version), slog.String("name", mig.Name))
			continue
		}
		middleware.Logger.Info("Applying migration", slog.Int("version", mig.Version), slog.String("name", mig.Name))
		if err := m.store.ApplyMigration(ctx, mig); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

// Down reverts the migration with the given version.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig := findMigration(m.set, version)
	if mig == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := m.store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !containsVersion(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration", slog.Int("version", version), slog.String("name", mig.Name))
	return m.store.RemoveMigration(ctx, *mig)
}

// Pending lists migrations not yet applied.
func (m *Migrator) Pending(ctx context.Context) (applied []int, pending []Migration, err error) {
	applied, err = m.store.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, mig := range m.set {
		if !containsVersion(applied, mig.Version) {
			pending = append(pending, mig)
		}
	}
	return applied, pending, nil
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	_, err := NewMigrator(db, GetMigrations()).Up(ctx)
	return err
}

// RollbackMigration reverts one embedded migration by version number.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db, GetMigrations()).Down(ctx, version)
}

func containsVersion(versions []int, version int) bool {
	for _, v := range versions {
		if v == version {
			return true
		}
	}
	return false
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []int
	for _, version := range applied {
		if findMigration(registered, version) == nil {
			unknown = append(unknown, version)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, 0, len(unknown))
	for _, version := range unknown {
		parts = append(parts, fmt.Sprintf("%06d", version))
	}
	return fmt.Errorf("migration_logs contains versions unknown to this build: %s", strings.Join(parts, ", "))
}
