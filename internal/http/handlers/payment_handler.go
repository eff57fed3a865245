// Payment and invoice HTTP handlers.
//
// This file exposes the billing surface:
//   - POST /payments/webhook              (payment-provider confirmation)
//   - GET  /appointments/{id}/invoice     (fetch the issued invoice)
//
// The webhook is idempotent two ways: the issuing service replays the stored
// invoice when one already exists for the appointment, and the optional
// Idempotency-Key header short-circuits retried deliveries before they reach
// the engine.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/http/middleware"
	"github.com/oficinapro/workshop-backend/internal/repo"
	"github.com/oficinapro/workshop-backend/internal/services"
)

// PaymentWebhookRequest is the normalized payload delivered by the payment
// provider once a charge settles.
type PaymentWebhookRequest struct {
	AppointmentID   string          `json:"appointment_id" binding:"required" example:"4f6f8a3e-2e6f-b4a5-1e43-0d6ba0518c74"`
	PaymentIntentID string          `json:"payment_intent_id" binding:"required" example:"pi_3Nc4XY2eZvKYlo2C"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaidAt          time.Time       `json:"paid_at" example:"2026-09-15T17:32:00Z"`
}

// InvoiceResponse is the JSON envelope for an issued invoice.
type InvoiceResponse struct {
	Invoice *domain.Invoice `json:"invoice"`
}

// PaymentWebhook godoc
// @ID          paymentWebhook
// @Summary     Confirm a payment
// @Description Issues the invoice for an order waiting on payment and finalizes the order.
// @Description Replayed confirmations return the invoice already on file and set the
// @Description Idempotency-Replayed response header.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.PaymentWebhookRequest  true  "Provider payload"
//
// @Success     200  {object}  handlers.InvoiceResponse "Invoice issued (or replayed)"
// @Failure     400  {object}  handlers.ErrorResponse   "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse   "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse   "Order not waiting for payment"
// @Failure     422  {object}  handlers.ErrorResponse   "Amount exceeds total"
// @Router      /payments/webhook [post]
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "appointment_id, payment_intent_id and amount are required")
		return
	}
	if req.Amount.IsNegative() {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "amount must not be negative")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	scope := middleware.ScopeFromRoute(c)
	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, h.db, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if inv, err2 := h.invoices.GetInvoice(ctx, rec.ResourceID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, InvoiceResponse{Invoice: inv})
				return
			}
		}
	}

	inv, err := h.invoices.ConfirmPayment(ctx, services.ConfirmPaymentInput{
		AppointmentID:   req.AppointmentID,
		PaymentIntentID: req.PaymentIntentID,
		Amount:          req.Amount,
		PaidAt:          req.PaidAt,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	if idemKey != "" {
		_, _ = repo.CreateIdempotency(ctx, h.db, scope, idemKey, inv.AppointmentID, http.StatusOK, h.idempotencyTTL)
	}

	ok(c, http.StatusOK, InvoiceResponse{Invoice: inv})
}

// GetInvoice godoc
// @ID          getInvoice
// @Summary     Fetch an order's invoice
// @Tags        Payments
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.InvoiceResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment or invoice not found"
// @Router      /appointments/{id}/invoice [get]
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	inv, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, InvoiceResponse{Invoice: inv})
}
