package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/outbox"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// InventoryService exposes the parts catalog and the admin side of the
// stock ledger. Order-driven consumption lives in PartsService; this
// service only creates products and corrects counted stock.
type InventoryService struct {
	DB        *gorm.DB
	Publisher outbox.Publisher
	Log       zerolog.Logger
}

// NewInventoryService wires the stock ledger.
func NewInventoryService(db *gorm.DB, pub outbox.Publisher, log zerolog.Logger) *InventoryService {
	return &InventoryService{DB: db, Publisher: pub, Log: log}
}

// CreateProduct registers a new stocked part.
func (s *InventoryService) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := repo.CreateProduct(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct returns one product by id.
func (s *InventoryService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := repo.GetProduct(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, repo.ErrProductMissing
		}
		return nil, err
	}
	return p, nil
}

// ListProducts returns the parts catalog, optionally only rows at or
// below their minimum stock.
func (s *InventoryService) ListProducts(ctx context.Context, lowStockOnly bool) ([]domain.Product, error) {
	return repo.ListProducts(ctx, s.DB, lowStockOnly)
}

// Adjust sets the counted on-hand quantity after a physical stock take
// and publishes the correction once it commits.
func (s *InventoryService) Adjust(ctx context.Context, productID string, newQuantity int) (*domain.Product, error) {
	ob := outbox.New()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, current, err := repo.AdjustProduct(ctx, tx, productID, newQuantity)
		if err != nil {
			return err
		}
		ob.Record(outbox.KindStockUpdated, outbox.StockUpdated{
			ProductID: productID,
			Old:       old,
			New:       current,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ob.Flush(ctx, s.Publisher, s.Log)
	return s.GetProduct(ctx, productID)
}
