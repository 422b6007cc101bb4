// Package database owns store connections and schema migration.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aurumdesk/aurumdesk/internal/catalog"
	"github.com/aurumdesk/aurumdesk/internal/custody"
	"github.com/aurumdesk/aurumdesk/internal/infrastructure/config"
	"github.com/aurumdesk/aurumdesk/internal/orders"
)

// Open connects to the configured store. TranslateError is enabled so
// unique-constraint violations surface as gorm.ErrDuplicatedKey across
// drivers; the event ledger depends on that.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	switch cfg.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// AutoMigrate creates or updates the schema for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&catalog.Product{},
		&custody.CustodyService{},
		&orders.Order{},
		&orders.OrderItem{},
		&orders.OrderStatusHistory{},
		&orders.ProcessedPaymentEvent{},
	)
}
