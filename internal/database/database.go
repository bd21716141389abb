// Package database manages the relational store connection and migrations.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gridstatus/internal-analytics/internal/accounts"
	"github.com/gridstatus/internal-analytics/internal/config"
)

// Manager owns the gorm connection for the relational store.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

// NewManager creates a database manager for the configured sqlite file.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// Init opens the connection and applies pool settings.
func (m *Manager) Init() error {
	if err := os.MkdirAll(m.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	dsn := m.cfg.DatabaseName + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	if m.cfg.DatabaseMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(m.cfg.DatabaseMaxOpenConns)
	}
	if m.cfg.DatabaseMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(m.cfg.DatabaseMaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	m.db = db
	return nil
}

// GetConnection returns the shared gorm connection.
func (m *Manager) GetConnection() *gorm.DB {
	return m.db
}

// Migrate runs schema migrations for all account models.
func (m *Manager) Migrate() error {
	if m.db == nil {
		return gorm.ErrInvalidDB
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(accounts.AllModels()...)
	})
	if err != nil {
		m.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	m.logger.Info("Database migration completed successfully")
	return nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
