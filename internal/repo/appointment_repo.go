// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Appointment
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. The engine
// always loads the row it is about to mutate with GetAppointmentForUpdate,
// which takes a row-level lock (SELECT ... FOR UPDATE on databases that
// support it) so concurrent mutations to the same appointment serialize.
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

// CreateAppointment inserts a new appointment row. The ID is a randomly
// generated UUID and CreatedAt is set to UTC.
func CreateAppointment(ctx context.Context, db *gorm.DB, a *domain.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(a).Error
}

// GetAppointment fetches an appointment with its relations (status, customer,
// vehicle, base service, extras, consumed parts, comments). Returns
// ErrNotFound if the record does not exist.
func GetAppointment(ctx context.Context, db *gorm.DB, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	err := db.WithContext(ctx).
		Preload("Status").
		Preload("Customer").
		Preload("Vehicle").
		Preload("Service").
		Preload("ExtraServices").
		Preload("ConsumedParts").
		Preload("Comments", func(q *gorm.DB) *gorm.DB { return q.Order("created_at asc") }).
		First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAppointmentForUpdate loads an appointment inside tx while holding a
// row-level write lock, together with the relations the engine needs for
// write decisions (status, base service, extras, parts). Every state used to
// decide a mutation must be read through this function.
func GetAppointmentForUpdate(ctx context.Context, tx *gorm.DB, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Status").
		Preload("Service").
		Preload("ExtraServices").
		Preload("ConsumedParts").
		First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAppointment persists the mutable scalar columns of an appointment.
// Relations are never written through this path.
func SaveAppointment(ctx context.Context, tx *gorm.DB, a *domain.Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	return tx.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ?", a.ID).
		Select("scheduled_at", "description", "estimated_budget", "actual_budget",
			"started_at", "total_worked_seconds", "is_paused", "paused_at",
			"status_id", "assigned_employee", "reminder_sent", "updated_at").
		Updates(a).Error
}

// CountAppointments returns the total number of appointments.
func CountAppointments(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Appointment{}).Count(&total).Error
	return total, err
}

// ListAppointmentsPage returns a page of appointments ordered by scheduled
// moment descending, with status and vehicle preloaded for list views.
func ListAppointmentsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := db.WithContext(ctx).
		Preload("Status").
		Preload("Vehicle").
		Order("scheduled_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
