// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the inventory ledger: it owns every write to
// products.on_hand_quantity.
//
// Error semantics:
//   - ErrProductMissing: no product row exists for the id.
//   - ErrProductDeleted: the product exists but is soft-deleted.
//   - ErrInsufficientStock: on_hand_quantity < requested quantity.
//
// Concurrency: ConsumeProduct performs the read-check-decrement as a single
// conditional UPDATE (`... WHERE on_hand_quantity >= ? AND deleted_at IS NULL`),
// so concurrent consumers can never drive the quantity below zero. Retries are
// caller-driven.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// Inventory ledger errors.
var (
	ErrProductMissing    = errors.New("product not found")
	ErrProductDeleted    = errors.New("product is deleted")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// ConsumedSnapshot captures the product state relevant to a consumption:
// the immutable line snapshot (name, part number, unit price) plus the stock
// levels around the decrement, which the service layer uses to decide whether
// low-stock events must be emitted.
type ConsumedSnapshot struct {
	ProductID    string
	Name         string
	PartNumber   string
	UnitPrice    decimal.Decimal
	Quantity     int
	CostValue    decimal.Decimal
	OnHandBefore int
	OnHandAfter  int
	MinimumStock int
}

// ConsumeProduct atomically decrements on_hand_quantity by quantity and
// returns the consumption snapshot. Zero rows affected by the conditional
// update means the stock was insufficient.
func ConsumeProduct(ctx context.Context, db *gorm.DB, productID string, quantity int) (*ConsumedSnapshot, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var p domain.Product
	err := db.WithContext(ctx).Unscoped().First(&p, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductMissing
	}
	if err != nil {
		return nil, err
	}
	if p.DeletedAt.Valid {
		return nil, ErrProductDeleted
	}

	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND on_hand_quantity >= ? AND deleted_at IS NULL", productID, quantity).
		UpdateColumn("on_hand_quantity", gorm.Expr("on_hand_quantity - ?", quantity))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientStock
	}

	var after domain.Product
	if err := db.WithContext(ctx).Select("on_hand_quantity").First(&after, "id = ?", productID).Error; err != nil {
		return nil, err
	}

	return &ConsumedSnapshot{
		ProductID:    p.ID,
		Name:         p.Name,
		PartNumber:   p.PartNumber,
		UnitPrice:    p.SaleValue,
		Quantity:     quantity,
		CostValue:    p.CostValue,
		OnHandBefore: p.OnHandQuantity,
		OnHandAfter:  after.OnHandQuantity,
		MinimumStock: p.MinimumStock,
	}, nil
}

// AdjustProduct sets on_hand_quantity to newQuantity (admin stock correction,
// outside the consumption path) and returns the previous and new values.
func AdjustProduct(ctx context.Context, db *gorm.DB, productID string, newQuantity int) (old, current int, err error) {
	if newQuantity < 0 {
		return 0, 0, ErrInvalidQuantity
	}

	var p domain.Product
	err = db.WithContext(ctx).First(&p, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, ErrProductMissing
	}
	if err != nil {
		return 0, 0, err
	}

	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", productID).
		UpdateColumn("on_hand_quantity", newQuantity)
	if res.Error != nil {
		return 0, 0, res.Error
	}
	return p.OnHandQuantity, newQuantity, nil
}

// CreateProduct inserts a new product row; duplicate part numbers map to
// ErrAlreadyExists.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetProduct fetches a product by id or returns ErrProductMissing.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductMissing
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns products ordered by part number. When lowStockOnly is
// set, only rows at or below their minimum stock are returned.
func ListProducts(ctx context.Context, db *gorm.DB, lowStockOnly bool) ([]domain.Product, error) {
	q := db.WithContext(ctx).Order("part_number asc")
	if lowStockOnly {
		q = q.Where("on_hand_quantity <= minimum_stock")
	}
	var out []domain.Product
	err := q.Find(&out).Error
	return out, err
}
