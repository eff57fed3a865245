// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the order
// comment audit trail.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// CreateOrderComment appends one audit line for an appointment. serviceID may
// be nil when the comment is not tied to a specific catalog service.
func CreateOrderComment(ctx context.Context, db *gorm.DB, appointmentID, text string, serviceID *string) (*domain.OrderComment, error) {
	c := &domain.OrderComment{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		ServiceID:     serviceID,
		Text:          text,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListOrderComments returns the audit trail for an appointment, oldest first.
func ListOrderComments(ctx context.Context, db *gorm.DB, appointmentID string) ([]domain.OrderComment, error) {
	var out []domain.OrderComment
	err := db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
