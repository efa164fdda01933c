// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coverink/coverink-backend/internal/config"
	"github.com/coverink/coverink-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
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

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.IPAsset{},
		&models.IPReference{},
		&models.Royalty{},
		&models.DerivativeRegistration{},
		&models.CreditPurchase{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)",
		"CREATE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address)",

		// Document indexes
		"CREATE INDEX IF NOT EXISTS idx_documents_owner_type ON documents(owner_id, type)",
		"CREATE INDEX IF NOT EXISTS idx_documents_cid ON documents(cid)",
		"CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC)",

		// IP asset indexes
		"CREATE INDEX IF NOT EXISTS idx_ip_assets_owner ON ip_assets(owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_ip_assets_chain_id ON ip_assets(chain_asset_id)",
		"CREATE INDEX IF NOT EXISTS idx_ip_assets_created_at ON ip_assets(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_ip_references_child ON ip_references(child_asset_id)",
		"CREATE INDEX IF NOT EXISTS idx_ip_references_parent ON ip_references(parent_asset_id)",

		// Royalty indexes
		"CREATE INDEX IF NOT EXISTS idx_royalties_payee_created ON royalties(payee_asset_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_royalties_payer ON royalties(payer_asset_id)",

		// Registration indexes
		"CREATE INDEX IF NOT EXISTS idx_registrations_owner_step ON derivative_registrations(owner_id, step)",
		"CREATE INDEX IF NOT EXISTS idx_registrations_tx_hash ON derivative_registrations(registration_tx_hash)",
		"CREATE INDEX IF NOT EXISTS idx_registrations_created_at ON derivative_registrations(created_at DESC)",

		// Billing indexes
		"CREATE INDEX IF NOT EXISTS idx_credit_purchases_user_status ON credit_purchases(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_credit_purchases_reference ON credit_purchases(payment_reference)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

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
