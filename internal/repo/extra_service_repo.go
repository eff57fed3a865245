// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for extra-service
// requests.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// CreateExtraService inserts a new pending request with its snapshot columns
// already hydrated by the service layer.
func CreateExtraService(ctx context.Context, db *gorm.DB, e *domain.ExtraService) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = domain.ExtraPending
	}
	e.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(e).Error
}

// GetExtraService fetches a request by id or returns ErrNotFound.
func GetExtraService(ctx context.Context, db *gorm.DB, id string) (*domain.ExtraService, error) {
	var e domain.ExtraService
	err := db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExtraServiceForUpdate loads a request inside tx under a row-level write
// lock. Approval/rejection decisions must read through this function.
func GetExtraServiceForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.ExtraService, error) {
	var e domain.ExtraService
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateExtraService persists the mutable columns of a request.
func UpdateExtraService(ctx context.Context, tx *gorm.DB, e *domain.ExtraService) error {
	e.UpdatedAt = time.Now().UTC()
	return tx.WithContext(ctx).
		Model(&domain.ExtraService{}).
		Where("id = ?", e.ID).
		Select("name", "description", "price", "labor_cost", "duration_minutes", "status", "updated_at").
		Updates(e).Error
}

// ListExtraServices returns every request for an appointment, oldest first.
func ListExtraServices(ctx context.Context, db *gorm.DB, appointmentID string) ([]domain.ExtraService, error) {
	var out []domain.ExtraService
	err := db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountPendingExtras returns the number of still-pending requests for an
// appointment. Zero pending requests means the appointment may return from
// Awaiting Approval to In Repair.
func CountPendingExtras(ctx context.Context, db *gorm.DB, appointmentID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ExtraService{}).
		Where("appointment_id = ? AND status = ?", appointmentID, domain.ExtraPending).
		Count(&total).Error
	return total, err
}
