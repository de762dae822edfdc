// Package db opens the sales database and prepares development schemas.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/logging"
	"github.com/diewo77/go-sales-loader/internal/models"
)

// RequiredTables must exist before the loader starts.
var RequiredTables = []string{"Saida", "ItensSaida", "Produto", "Caracteristica", "ProdutoCaracteristica"}

// Dialector returns the gorm dialector for the configured driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := cfg.DSN()
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// GormConfig returns the gorm settings shared by production and tests.
// Unique violations are translated to gorm.ErrDuplicatedKey.
func GormConfig(debug bool) *gorm.Config {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}
}

// Connect opens the database, retrying with exponential backoff until it answers a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	log.Info("Connecting to database",
		zap.String("driver", cfg.Driver),
		zap.String("dsn", logging.SanitizeConnectionString(cfg.DSN())))

	var conn *gorm.DB
	attempt := 0
	op := func() error {
		attempt++
		dialector, err := Dialector(cfg)
		if err != nil {
			return backoff.Permanent(err)
		}
		c, err := gorm.Open(dialector, GormConfig(cfg.Debug))
		if err != nil {
			log.Warn("Database connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		if err := Ping(ctx, c); err != nil {
			log.Warn("Database ping failed", zap.Int("attempt", attempt), zap.Error(err))
			Close(c)
			return err
		}
		conn = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = cfg.ConnectTimeout
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, cfg.ConnectAttempts), ctx)); err != nil {
		return nil, &apperrors.ConnectionError{Op: "connect", Err: err}
	}
	return conn, nil
}

// Ping checks the underlying connection pool.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// CheckSchema verifies the loader's tables exist. The loader never migrates the
// production schema.
func CheckSchema(db *gorm.DB) error {
	var missing []string
	for _, table := range RequiredTables {
		if !db.Migrator().HasTable(table) {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables: %v", missing)
	}
	return nil
}

// Bootstrap creates every table on an empty development database.
func Bootstrap(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// Seed makes sure the fixed codes stamped on every Saida exist. It is idempotent.
func Seed(db *gorm.DB, cfg config.LoaderConfig) error {
	if err := ensure(db, &models.Empresa{ID: cfg.CompanyID, Nome: "Empresa padrão"}, cfg.CompanyID); err != nil {
		return err
	}
	if err := ensure(db, &models.TipoSaida{ID: cfg.SaleTypeID, Nome: "Venda"}, cfg.SaleTypeID); err != nil {
		return err
	}
	return ensure(db, &models.StatusVenda{ID: cfg.StatusID, Nome: "Concluída"}, cfg.StatusID)
}

// ensure inserts row unless a row with the same primary key already exists.
func ensure[T any](db *gorm.DB, row *T, id uint) error {
	var existing T
	err := db.First(&existing, id).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := db.Create(row).Error; err != nil {
		return fmt.Errorf("seed %T: %w", row, err)
	}
	return nil
}
