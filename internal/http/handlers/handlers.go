package handlers

import (
	"time"

	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/services"
)

// Handlers bundles the application services behind the HTTP layer. All
// endpoint methods hang off this struct; construction happens once in the
// router with every dependency injected.
type Handlers struct {
	db             *gorm.DB
	appointments   *services.AppointmentService
	parts          *services.PartsService
	extras         *services.ExtraServiceBook
	invoices       *services.InvoiceService
	inventory      *services.InventoryService
	catalog        *services.CatalogService
	idempotencyTTL time.Duration
}

// New constructs the handler set.
func New(
	db *gorm.DB,
	appointments *services.AppointmentService,
	parts *services.PartsService,
	extras *services.ExtraServiceBook,
	invoices *services.InvoiceService,
	inventory *services.InventoryService,
	catalog *services.CatalogService,
	idempotencyTTL time.Duration,
) *Handlers {
	return &Handlers{
		db:             db,
		appointments:   appointments,
		parts:          parts,
		extras:         extras,
		invoices:       invoices,
		inventory:      inventory,
		catalog:        catalog,
		idempotencyTTL: idempotencyTTL,
	}
}

// Pagination is the standard page metadata attached to list responses.
type Pagination struct {
	Page       int   `json:"page" example:"1"`
	PageSize   int   `json:"page_size" example:"20"`
	Total      int64 `json:"total" example:"42"`
	TotalPages int   `json:"total_pages" example:"3"`
	HasNext    bool  `json:"has_next" example:"true"`
}
