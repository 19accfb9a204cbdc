package utils

import (
	"fmt"
	"time"

	"philosofium/backend/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDB opens the database selected by DB_DRIVER
func InitDB(cfg *config.Config, log *Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres", "":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.PostgresDSN(),
			PreferSimpleProtocol: true,
		})
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(60 * time.Second)
		sqlDB.SetConnMaxLifetime(10 * time.Minute)
	}

	return db, nil
}
