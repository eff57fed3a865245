// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the service
// catalog.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// CreateService inserts a catalog service.
func CreateService(ctx context.Context, db *gorm.DB, s *domain.Service) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(s).Error
}

// GetService fetches a catalog service by id or returns ErrNotFound.
func GetService(ctx context.Context, db *gorm.DB, id string) (*domain.Service, error) {
	var s domain.Service
	err := db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListServices returns the catalog, optionally filtered by shop area.
func ListServices(ctx context.Context, db *gorm.DB, area string) ([]domain.Service, error) {
	q := db.WithContext(ctx).Order("name asc")
	if area != "" {
		q = q.Where("area = ?", area)
	}
	var out []domain.Service
	err := q.Find(&out).Error
	return out, err
}
