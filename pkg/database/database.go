package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lease-service/internal/model"
	"lease-service/pkg/config"
)

var db *gorm.DB

// InitDB opens the record store and runs migrations. The default
// sqlite driver keeps every aggregate collection in a single durable
// file; postgres is selected with DB_DRIVER=postgres.
func InitDB(appConfig *config.Config) error {
	logLevel := logger.Warn
	switch appConfig.Database.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "info":
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var err error
	switch appConfig.Database.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(appConfig.Database.Path), gormConfig)
	case "postgres":
		pgConfig := postgres.Config{
			DSN:                  appConfig.Database.GetDSN(),
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		}
		db, err = gorm.Open(postgres.New(pgConfig), gormConfig)
	default:
		return fmt.Errorf("unknown database driver %q", appConfig.Database.Driver)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.SetMaxIdleConns(appConfig.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(appConfig.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(appConfig.Database.ConnMaxLifetime)
	if appConfig.Database.Driver == "sqlite" {
		// sqlite serializes writers; a single connection avoids
		// SQLITE_BUSY under concurrent transactions.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

// Migrate creates or updates the aggregate collections.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Property{},
		&model.Booking{},
		&model.Invoice{},
		&model.RentalCase{},
		&model.Contract{},
		&model.Sequence{},
	)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}
