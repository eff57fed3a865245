// Product (parts inventory) HTTP handlers.
//
// This file exposes the stocked-parts catalog and the admin side of the
// inventory ledger:
//   - POST /products               (register a part)
//   - GET  /products               (list; ?low_stock=true filters)
//   - GET  /products/{id}          (fetch one part)
//   - PATCH /products/{id}/stock   (set counted stock after a stock take)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/sysutil"
)

// CreateProductRequest is the JSON payload for registering a stocked part.
type CreateProductRequest struct {
	PartNumber     string          `json:"part_number" binding:"required" example:"BRK-PAD-008"`
	Name           string          `json:"name" binding:"required" example:"Brake pad set"`
	Category       string          `json:"category" example:"brakes"`
	Brand          string          `json:"brand" example:"Brembo"`
	OnHandQuantity int             `json:"on_hand_quantity" binding:"min=0" example:"12"`
	CostValue      decimal.Decimal `json:"cost_value"`
	SaleValue      decimal.Decimal `json:"sale_value"`
	MinimumStock   int             `json:"minimum_stock" binding:"min=0" example:"4"`
}

// AdjustStockRequest sets the counted on-hand quantity.
type AdjustStockRequest struct {
	Quantity *int `json:"quantity" binding:"required" example:"9"`
}

// ProductResponse is the JSON envelope for one product.
type ProductResponse struct {
	Product *domain.Product `json:"product"`
}

// ListProductsResponse contains the parts catalog.
type ListProductsResponse struct {
	Products []domain.Product `json:"products"`
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Register a stocked part
// @Tags        Products
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateProductRequest  true  "Product payload"
//
// @Success     201  {object}  handlers.ProductResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse "Part number already exists"
// @Router      /products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "part_number and name are required")
		return
	}
	p, err := h.inventory.CreateProduct(c.Request.Context(), &domain.Product{
		PartNumber:     req.PartNumber,
		Name:           req.Name,
		Category:       req.Category,
		Brand:          req.Brand,
		OnHandQuantity: req.OnHandQuantity,
		CostValue:      req.CostValue,
		SaleValue:      req.SaleValue,
		MinimumStock:   req.MinimumStock,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ProductResponse{Product: p})
}

// ListProducts godoc
// @ID          listProducts
// @Summary     List stocked parts
// @Description Returns the parts catalog. Pass low_stock=true to get only rows at or below minimum stock.
// @Tags        Products
// @Produce     json
//
// @Param       low_stock  query  bool  false "Only parts at or below minimum stock"
//
// @Success     200  {object}  handlers.ListProductsResponse
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	lowStock := sysutil.IsTruthy(c.Query("low_stock"))
	products, err := h.inventory.ListProducts(c.Request.Context(), lowStock)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListProductsResponse{Products: products})
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Fetch one stocked part
// @Tags        Products
// @Produce     json
//
// @Param       id  path  string  true  "Product ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ProductResponse
// @Failure     404  {object}  handlers.ErrorResponse "Product not found"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	p, err := h.inventory.GetProduct(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ProductResponse{Product: p})
}

// AdjustStock godoc
// @ID          adjustStock
// @Summary     Correct counted stock
// @Description Sets on_hand_quantity after a physical stock take and publishes the correction.
// @Tags        Products
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Product ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AdjustStockRequest  true  "New counted quantity"
//
// @Success     200  {object}  handlers.ProductResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Product not found"
// @Router      /products/{id}/stock [patch]
func (h *Handlers) AdjustStock(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "quantity is required")
		return
	}
	if *req.Quantity < 0 {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "quantity must not be negative")
		return
	}
	p, err := h.inventory.Adjust(c.Request.Context(), id, *req.Quantity)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ProductResponse{Product: p})
}
