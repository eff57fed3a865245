// Package services – StatusCatalog
//
// The status catalog is seeded once at migration time and cached in memory
// for the process lifetime. Transitions are checked by canonical name; the
// numeric ids exist only for foreign keys.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// StatusCatalog is an immutable two-way mapping between canonical status
// names and their database ids. It is safe for concurrent reads.
type StatusCatalog struct {
	byName map[string]uint
	byID   map[uint]string
}

// LoadStatusCatalog reads the statuses table and verifies every canonical
// status is present. A missing row is a startup failure (ErrUnknownStatus).
func LoadStatusCatalog(ctx context.Context, db *gorm.DB) (*StatusCatalog, error) {
	rows, err := repo.ListStatuses(ctx, db)
	if err != nil {
		return nil, err
	}
	c := &StatusCatalog{
		byName: make(map[string]uint, len(rows)),
		byID:   make(map[uint]string, len(rows)),
	}
	for _, s := range rows {
		c.byName[s.Name] = s.ID
		c.byID[s.ID] = s.Name
	}
	for _, name := range domain.AllStatuses {
		if _, ok := c.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %q not seeded", ErrUnknownStatus, name)
		}
	}
	return c, nil
}

// IDOf returns the database id of a canonical status name.
func (c *StatusCatalog) IDOf(name string) (uint, error) {
	id, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
	return id, nil
}

// NameOf returns the canonical name for a status id.
func (c *StatusCatalog) NameOf(id uint) (string, error) {
	name, ok := c.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: id %d", ErrUnknownStatus, id)
	}
	return name, nil
}
