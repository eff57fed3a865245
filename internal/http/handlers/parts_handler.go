// Consumed-parts HTTP handlers.
//
// This file exposes the parts book of a service order:
//   - POST   /appointments/{id}/parts            (consume stock onto the order)
//   - GET    /appointments/{id}/parts            (grouped view: base + extras)
//   - DELETE /appointments/{id}/parts/{part_id}  (remove a line, no restock)
//
// Adding a part decrements inventory inside the same transaction that records
// the consumption, so an insufficient-stock failure leaves no trace on the
// order.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/services"
)

// AddPartRequest is the JSON payload for consuming a stocked part.
type AddPartRequest struct {
	ProductID      string  `json:"product_id" binding:"required" example:"b4f2a7de-57d1-4f7e-a3cf-2b9e4a6c8d10"`
	Quantity       int     `json:"quantity" binding:"required,min=1" example:"2"`
	ExtraServiceID *string `json:"extra_service_id,omitempty"`
}

// PartResponse is the JSON envelope for a newly recorded part line.
type PartResponse struct {
	Part *domain.ConsumedPart `json:"part"`
}

// AddPart godoc
// @ID          addPart
// @Summary     Consume a part onto an order
// @Description Decrements stock and records the part snapshot on the order.
// @Description Fails with INSUFFICIENT_STOCK when the shelf cannot cover the quantity.
// @Tags        Parts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Appointment ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AddPartRequest  true  "Part payload"
//
// @Success     201  {object}  handlers.PartResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment or product not found"
// @Failure     409  {object}  handlers.ErrorResponse "Insufficient stock or immutable order"
// @Router      /appointments/{id}/parts [post]
func (h *Handlers) AddPart(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	var req AddPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "product_id and a positive quantity are required")
		return
	}
	if req.ExtraServiceID != nil {
		if _, err := uuid.Parse(*req.ExtraServiceID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeValidation, "extra_service_id must be a UUID")
			return
		}
	}
	part, err := h.parts.AddPart(c.Request.Context(), id, services.AddPartInput{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		ExtraServiceID: req.ExtraServiceID,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, PartResponse{Part: part})
}

// ListParts godoc
// @ID          listParts
// @Summary     List an order's consumed parts
// @Description Returns the parts grouped by destination: base service, then each extra request.
// @Tags        Parts
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.PartsView
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Router      /appointments/{id}/parts [get]
func (h *Handlers) ListParts(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	view, err := h.parts.ListParts(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// RemovePart godoc
// @ID          removePart
// @Summary     Remove a part line
// @Description Deletes a consumed-part line from a still-mutable order. Stock is not restored.
// @Tags        Parts
// @Produce     json
//
// @Param       id       path  string  true  "Appointment ID (UUID)"   format(uuid)
// @Param       part_id  path  string  true  "Consumed part ID (UUID)" format(uuid)
//
// @Success     204  "Removed"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment or part not found"
// @Failure     409  {object}  handlers.ErrorResponse "Order no longer mutable"
// @Router      /appointments/{id}/parts/{part_id} [delete]
func (h *Handlers) RemovePart(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	partID, okPart := requireUUID(c, "part_id")
	if !okPart {
		return
	}
	if err := h.parts.RemovePart(c.Request.Context(), id, partID); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
