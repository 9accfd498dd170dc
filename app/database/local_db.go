package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"PrintBridge/app/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// Initialize opens the local SQLite database holding the printer
// directory and runs migrations.
func Initialize(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// CGO-free driver
	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to open local database: %w", err)
	}

	if err := conn.AutoMigrate(&models.PrinterConfig{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db = conn
	return nil
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return db
}
