// Extra-service HTTP handlers.
//
// This file exposes the approval workflow for mid-repair extras:
//   - POST  /appointments/{id}/extra_services      (request an extra service)
//   - GET   /appointments/{id}/extra_services      (list requests, oldest first)
//   - PATCH /extra_services/{id}/approve           (approve a pending request)
//   - PATCH /extra_services/{id}/reject            (reject a pending request)
//
// A request parks the order in Awaiting Approval; once every request is
// decided the order returns to In Repair. Decisions are idempotent.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/services"
)

// RequestExtraRequest is the JSON payload for proposing an extra service.
// When service_id references a catalog entry, omitted fields are hydrated
// from it; the stored request is always a snapshot.
type RequestExtraRequest struct {
	ServiceID       *string          `json:"service_id,omitempty"`
	Name            string           `json:"name" example:"Wheel alignment"`
	Description     string           `json:"description" example:"Front axle pulling right"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	LaborCost       *decimal.Decimal `json:"labor_cost,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	RequestedBy     string           `json:"requested_by" example:"joao.m"`
}

// ExtraResponse is the JSON envelope for one extra-service request.
type ExtraResponse struct {
	Extra *domain.ExtraService `json:"extra"`
}

// ListExtrasResponse contains an order's extra-service requests.
type ListExtrasResponse struct {
	Extras []domain.ExtraService `json:"extras"`
}

// RequestExtra godoc
// @ID          requestExtra
// @Summary     Request an extra service
// @Description Records a pending extra on an order in execution and parks the order in Awaiting Approval.
// @Tags        Extras
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Appointment ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RequestExtraRequest  true  "Extra-service payload"
//
// @Success     201  {object}  handlers.ExtraResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment or catalog service not found"
// @Failure     409  {object}  handlers.ErrorResponse "Order not in execution"
// @Router      /appointments/{id}/extra_services [post]
func (h *Handlers) RequestExtra(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	var req RequestExtraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid payload")
		return
	}
	if req.ServiceID == nil && req.Name == "" {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "either service_id or name is required")
		return
	}
	if req.ServiceID != nil {
		if _, err := uuid.Parse(*req.ServiceID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeValidation, "service_id must be a UUID")
			return
		}
	}
	extra, err := h.extras.Request(c.Request.Context(), id, services.RequestExtraInput{
		ServiceID:       req.ServiceID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		LaborCost:       req.LaborCost,
		DurationMinutes: req.DurationMinutes,
		RequestedBy:     req.RequestedBy,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ExtraResponse{Extra: extra})
}

// ListExtras godoc
// @ID          listExtras
// @Summary     List an order's extra-service requests
// @Tags        Extras
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ListExtrasResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Router      /appointments/{id}/extra_services [get]
func (h *Handlers) ListExtras(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	extras, err := h.extras.List(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListExtrasResponse{Extras: extras})
}

// ApproveExtra godoc
// @ID          approveExtra
// @Summary     Approve an extra-service request
// @Description Folds the extra into the budget; once no request remains pending the order returns to In Repair.
// @Description Approving an already approved request is a no-op.
// @Tags        Extras
// @Produce     json
//
// @Param       id  path  string  true  "Extra-service request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ExtraResponse
// @Failure     404  {object}  handlers.ErrorResponse "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse "Request already rejected"
// @Router      /extra_services/{id}/approve [patch]
func (h *Handlers) ApproveExtra(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	extra, err := h.extras.Approve(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ExtraResponse{Extra: extra})
}

// RejectExtra godoc
// @ID          rejectExtra
// @Summary     Reject an extra-service request
// @Description Leaves the budget unchanged; the request can no longer receive parts.
// @Description Rejecting an already rejected request is a no-op.
// @Tags        Extras
// @Produce     json
//
// @Param       id  path  string  true  "Extra-service request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ExtraResponse
// @Failure     404  {object}  handlers.ErrorResponse "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse "Request already approved"
// @Router      /extra_services/{id}/reject [patch]
func (h *Handlers) RejectExtra(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	extra, err := h.extras.Reject(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ExtraResponse{Extra: extra})
}
