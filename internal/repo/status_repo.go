// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to the status catalog.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListStatuses returns every status catalog row. The service layer caches the
// result for the process lifetime; transitions are checked by canonical name,
// not by database id.
func ListStatuses(ctx context.Context, db *gorm.DB) ([]domain.Status, error) {
	var out []domain.Status
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}
