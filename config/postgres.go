package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yoockh/unistep/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var PostgresDB *gorm.DB

// InitPostgres opens the upload ledger database from POSTGRES_URI.
// POSTGRES_MAX_OPEN caps open connections.
func InitPostgres() error {
	dsn := os.Getenv("POSTGRES_URI")
	if dsn == "" {
		return errors.New("POSTGRES_URI environment variable is not set")
	}
	maxOpen, err := intEnv("POSTGRES_MAX_OPEN", 20)
	if err != nil {
		return err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("postgres open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(int(maxOpen))
	sqlDB.SetMaxIdleConns(int(maxOpen) / 2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}

	PostgresDB = db
	return nil
}

// MigrateLedger creates or updates the application_uploads table.
func MigrateLedger() error {
	if PostgresDB == nil {
		return errors.New("PostgresDB is nil; call InitPostgres() first")
	}
	return PostgresDB.AutoMigrate(&models.UploadRecord{})
}
