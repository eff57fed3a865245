// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for invoices and
// the per-year invoice number sequence.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// ErrDuplicateInvoice indicates an invoice already exists for the appointment
// or invoice number (unique index violation).
var ErrDuplicateInvoice = errors.New("invoice already exists")

// NextInvoiceNumber increments the per-year sequence inside tx and formats
// the result as INV-YYYY-NNNNNN. Numbers are monotonic per year; a rolled
// back issuing transaction leaves a gap, which is acceptable.
func NextInvoiceNumber(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	var seq domain.InvoiceSequence
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "year = ?", year).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = domain.InvoiceSequence{Year: year, LastValue: 0}
		if err := tx.WithContext(ctx).Create(&seq).Error; err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	}

	seq.LastValue++
	res := tx.WithContext(ctx).
		Model(&domain.InvoiceSequence{}).
		Where("year = ?", year).
		UpdateColumn("last_value", seq.LastValue)
	if res.Error != nil {
		return "", res.Error
	}
	return fmt.Sprintf("INV-%04d-%06d", year, seq.LastValue), nil
}

// CreateInvoice inserts a paid invoice snapshot. Unique violations (replayed
// webhook racing itself) map to ErrDuplicateInvoice.
func CreateInvoice(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.CreatedAt = time.Now().UTC()
	if err := tx.WithContext(ctx).Create(inv).Error; err != nil {
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "duplicate key") {
			return ErrDuplicateInvoice
		}
		return err
	}
	return nil
}

// GetInvoiceByAppointment fetches the invoice for an appointment, or
// ErrNotFound when payment has not been confirmed yet.
func GetInvoiceByAppointment(ctx context.Context, db *gorm.DB, appointmentID string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).First(&inv, "appointment_id = ?", appointmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
