package config

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/cv-formatter/internal/models"
)

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	var dia gorm.Dialector
	switch cfg.Database.Type {
	case "postgres":
		dia = postgres.Open(cfg.GetDatabaseDSN())
	case "sqlite":
		dia = sqlite.Open(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}

	db, err := gorm.Open(dia, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	zap.S().Named("database").Infow("✅ Database connected", "type", cfg.Database.Type)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	zap.S().Named("database").Info("✅ Database migration completed")

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.CV{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
