// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/imi-licensing/internal/config"
	"github.com/javajoker/imi-licensing/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	default:
		return logger.Info
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	// gen_random_uuid() for the outbox ids
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.ContractSettings{},
		&models.AgreementRecord{},
		&models.LicenseRecord{},
		&models.RoyaltyRecipientRecord{},
		&models.ValueIntent{},
		&models.OperationReceipt{},
		&models.ContentItem{},
		&models.LicenseTemplate{},
		&models.Creator{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_agreements_creator_status ON agreements(creator, status)",
		"CREATE INDEX IF NOT EXISTS idx_value_intents_pending ON value_intents(status, receipt_sequence, position) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_operation_receipts_caller ON operation_receipts(caller, sequence DESC)",
		"CREATE INDEX IF NOT EXISTS idx_content_items_tags ON content_items USING GIN(tags)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithFields(logrus.Fields{
				"index": index,
				"error": err.Error(),
			}).Warn("Failed to create index")
		}
	}

	return nil
}

// SeedSettings inserts the contract settings row on first start.
func SeedSettings(db *gorm.DB, platformFee uint64) error {
	var count int64
	if err := db.Model(&models.ContractSettings{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count contract settings: %w", err)
	}
	if count > 0 {
		return nil
	}

	settings := models.ContractSettings{
		ID:          models.ContractSettingsID,
		PlatformFee: platformFee,
	}
	if err := db.Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to create contract settings: %w", err)
	}

	logrus.WithField("platform_fee", platformFee).Info("Contract settings seeded")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
