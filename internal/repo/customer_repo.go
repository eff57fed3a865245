// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for customers and
// their vehicles.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// ErrAlreadyExists indicates a uniqueness conflict (customer email, vehicle
// plate, product part number).
var ErrAlreadyExists = errors.New("record already exists")

// isUniqueViolation detects unique-constraint violations across drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") || strings.Contains(low, "duplicate key")
}

// CreateCustomer inserts a customer; duplicate emails map to ErrAlreadyExists.
func CreateCustomer(ctx context.Context, db *gorm.DB, c *domain.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetCustomer fetches a customer by id or returns ErrNotFound.
func GetCustomer(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns all customers ordered by name.
func ListCustomers(ctx context.Context, db *gorm.DB) ([]domain.Customer, error) {
	var out []domain.Customer
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// CreateVehicle inserts a vehicle; duplicate plates map to ErrAlreadyExists.
func CreateVehicle(ctx context.Context, db *gorm.DB, v *domain.Vehicle) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetVehicle fetches a vehicle by id or returns ErrNotFound.
func GetVehicle(ctx context.Context, db *gorm.DB, id string) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVehicles returns vehicles, optionally filtered by owner.
func ListVehicles(ctx context.Context, db *gorm.DB, customerID string) ([]domain.Vehicle, error) {
	q := db.WithContext(ctx).Order("plate asc")
	if customerID != "" {
		q = q.Where("customer_id = ?", customerID)
	}
	var out []domain.Vehicle
	err := q.Find(&out).Error
	return out, err
}
