package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func gormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func Connect(cfg *config.Config) error {
	var err error
	if cfg.DBDriver == "sqlite" {
		DB, err = OpenSQLite(cfg.SQLitePath, logger.Warn)
	} else {
		DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig(logger.Warn))
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		slog.Info("database connected", "driver", "sqlite", "path", cfg.SQLitePath)
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected", "driver", "postgres")
	return nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.Post{},
		&models.Like{},
		&models.SavedPost{},
		&models.Comment{},
		&models.Follow{},
		&models.Block{},
		&models.Report{},
		&models.Notification{},
		&models.SystemLog{},
	}
}

// Migrate runs AutoMigrate for all models on the global connection.
func Migrate() error {
	return MigrateModels(DB, Models())
}

// MigrateModels runs AutoMigrate for arbitrary models on db.
func MigrateModels(db *gorm.DB, modelList []interface{}) error {
	if len(modelList) == 0 {
		return nil
	}
	return db.AutoMigrate(modelList...)
}

// Ping checks that db can still reach its server.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
