// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migration and the status catalog seed.
package repo

import (
	"context"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Query spans ride the request trace; DB metrics come from Prometheus.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Status{},
		&domain.Customer{},
		&domain.Vehicle{},
		&domain.Service{},
		&domain.Product{},
		&domain.Appointment{},
		&domain.ExtraService{},
		&domain.ConsumedPart{},
		&domain.OrderComment{},
		&domain.Invoice{},
		&domain.InvoiceSequence{},
		&domain.Idempotency{},
	)
}

// SeedStatuses inserts any missing canonical status rows. It is idempotent
// and runs once at startup, before the in-memory catalog is built.
func SeedStatuses(ctx context.Context, db *gorm.DB) error {
	for _, name := range domain.AllStatuses {
		var count int64
		if err := db.WithContext(ctx).
			Model(&domain.Status{}).
			Where("name = ?", name).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.WithContext(ctx).Create(&domain.Status{Name: name}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
