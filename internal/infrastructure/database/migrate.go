package database

import (
	"errors"
	"fmt"

	"clinic-queue/config"

	"github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

const migrationsSource = "file://migrations/postgres"

// MigrateUp applies every pending migration. Running it on an up-to-date schema is a no-op.
func MigrateUp(db *gorm.DB, cfg config.DBConfig) error {
	m, err := newMigrate(db, cfg)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back every migration.
func MigrateDown(db *gorm.DB, cfg config.DBConfig) error {
	m, err := newMigrate(db, cfg)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func newMigrate(db *gorm.DB, cfg config.DBConfig) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsSource, cfg.Name, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations instance: %w", err)
	}
	return m, nil
}
