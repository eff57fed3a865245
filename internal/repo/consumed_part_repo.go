// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-appointment
// consumed-part snapshots.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// CreateConsumedPart inserts a consumption snapshot. The stock decrement
// itself happens in ConsumeProduct; both run inside the same transaction.
func CreateConsumedPart(ctx context.Context, db *gorm.DB, p *domain.ConsumedPart) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// GetConsumedPart fetches a snapshot by id or returns ErrNotFound.
func GetConsumedPart(ctx context.Context, db *gorm.DB, id string) (*domain.ConsumedPart, error) {
	var p domain.ConsumedPart
	err := db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListConsumedParts returns every snapshot for an appointment, oldest first.
// Callers partition the result by ExtraServiceID (nil means base service).
func ListConsumedParts(ctx context.Context, db *gorm.DB, appointmentID string) ([]domain.ConsumedPart, error) {
	var out []domain.ConsumedPart
	err := db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountConsumedParts returns the number of snapshots for an appointment.
// Cancellation from In Repair is only permitted when this is zero.
func CountConsumedParts(ctx context.Context, db *gorm.DB, appointmentID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ConsumedPart{}).
		Where("appointment_id = ?", appointmentID).
		Count(&total).Error
	return total, err
}

// DeleteConsumedPart removes a snapshot. The decrement it recorded is not
// restocked; stock corrections go through AdjustProduct.
func DeleteConsumedPart(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.ConsumedPart{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
