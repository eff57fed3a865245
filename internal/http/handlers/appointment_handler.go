// Appointment HTTP handlers.
//
// This file exposes REST endpoints for service orders:
//   - POST   /appointments                  (schedule a new order)
//   - GET    /appointments                  (list paginated orders)
//   - GET    /appointments/{id}             (fetch one order with relations)
//   - PATCH  /appointments/{id}             (update mutable scheduling fields)
//   - PATCH  /appointments/{id}/cancel      (cancel before billing)
//   - GET    /appointments/{id}/breakdown   (labor-plus-parts view)
//   - GET    /appointments/{id}/comments    (audit trail)
//
// Handlers are transport-thin:
//   - validate & normalize inputs
//   - delegate to the lifecycle engine (AppointmentService)
//   - translate sentinel errors into the stable error taxonomy
//
// Idempotency:
// If the client supplies an Idempotency-Key header on POST /appointments and a
// previous successful result exists for that (scope, key), the handler returns
// the recorded appointment and sets `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/budget"
	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/http/middleware"
	"github.com/oficinapro/workshop-backend/internal/repo"
	"github.com/oficinapro/workshop-backend/internal/services"
	"github.com/oficinapro/workshop-backend/internal/utils"
)

//
// DTOs
//

// CreateAppointmentRequest is the JSON payload for scheduling a service order.
type CreateAppointmentRequest struct {
	CustomerID       string           `json:"customer_id" binding:"required" example:"0d6ba051-8c74-4f6f-8a3e-2e6fb4a51e43"`
	VehicleID        string           `json:"vehicle_id" binding:"required" example:"6f01d7c2-33e0-4f36-8a3a-5f9a4f2a9a01"`
	ServiceID        string           `json:"service_id" binding:"required" example:"a3c8e1de-9451-4e3d-8a44-7d2b7b9e2f11"`
	ScheduledAt      time.Time        `json:"scheduled_at" binding:"required" example:"2026-09-15T10:00:00Z"`
	Description      string           `json:"description" example:"Brake noise on front left"`
	EstimatedBudget  *decimal.Decimal `json:"estimated_budget,omitempty"`
	AssignedEmployee *string          `json:"assigned_employee,omitempty" example:"joao.m"`
}

// UpdateAppointmentRequest carries the mutable appointment fields; absent
// fields are left unchanged.
type UpdateAppointmentRequest struct {
	ScheduledAt      *time.Time       `json:"scheduled_at,omitempty"`
	Description      *string          `json:"description,omitempty"`
	EstimatedBudget  *decimal.Decimal `json:"estimated_budget,omitempty"`
	AssignedEmployee *string          `json:"assigned_employee,omitempty"`
}

// AppointmentResponse is the JSON envelope for a single service order. The
// worked_seconds field includes the live segment when the clock is running.
type AppointmentResponse struct {
	Appointment   *domain.Appointment `json:"appointment"`
	WorkedSeconds int64               `json:"worked_seconds"`
}

// ListAppointmentsResponse contains a page of orders and pagination metadata.
type ListAppointmentsResponse struct {
	Appointments []domain.Appointment `json:"appointments"`
	Pagination   Pagination           `json:"pagination"`
}

// CommentsResponse contains the order's audit trail.
type CommentsResponse struct {
	Comments []domain.OrderComment `json:"comments"`
}

//
// Helpers
//

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// requireUUID validates a path parameter shaped as a UUID.
func requireUUID(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if _, err := uuid.Parse(v); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, name+" must be a UUID")
		return "", false
	}
	return v, true
}

func (h *Handlers) appointmentResponse(c *gin.Context, status int, a *domain.Appointment) {
	ok(c, status, AppointmentResponse{
		Appointment:   a,
		WorkedSeconds: h.appointments.WorkedSeconds(a),
	})
}

//
// Handlers
//

// CreateAppointment godoc
// @ID          createAppointment
// @Summary     Schedule a service order
// @Description Creates an appointment in Pending for an existing customer, vehicle and catalog service.
// @Description Supports idempotency via the Idempotency-Key header (same key → same order).
// @Tags        Appointments
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.CreateAppointmentRequest  true  "Appointment payload"
//
// @Success     201  {object}  handlers.AppointmentResponse  "Created order"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse        "Referenced entity not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /appointments [post]
func (h *Handlers) CreateAppointment(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "customer_id, vehicle_id, service_id and scheduled_at are required")
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	scope := middleware.ScopeFromRoute(c)
	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, h.db, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := h.appointments.Get(ctx, rec.ResourceID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				h.appointmentResponse(c, http.StatusOK, prev)
				return
			}
		}
	}

	a, err := h.appointments.Create(ctx, services.CreateAppointmentInput{
		CustomerID:       req.CustomerID,
		VehicleID:        req.VehicleID,
		ServiceID:        req.ServiceID,
		ScheduledAt:      req.ScheduledAt,
		Description:      req.Description,
		EstimatedBudget:  req.EstimatedBudget,
		AssignedEmployee: req.AssignedEmployee,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		_, _ = repo.CreateIdempotency(ctx, h.db, scope, idemKey, a.ID, http.StatusCreated, h.idempotencyTTL)
	}

	h.appointmentResponse(c, http.StatusCreated, a)
}

// ListAppointments godoc
// @ID          listAppointments
// @Summary     List service orders
// @Description Returns a paginated list of appointments, most recently scheduled first.
// @Tags        Appointments
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListAppointmentsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /appointments [get]
func (h *Handlers) ListAppointments(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	items, total, err := h.appointments.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListAppointmentsResponse{
		Appointments: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetAppointment godoc
// @ID          getAppointment
// @Summary     Fetch one service order
// @Description Returns the appointment with status, customer, vehicle, service, extras, parts and comments.
// @Tags        Appointments
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Router      /appointments/{id} [get]
func (h *Handlers) GetAppointment(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	a, err := h.appointments.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	h.appointmentResponse(c, http.StatusOK, a)
}

// UpdateAppointment godoc
// @ID          updateAppointment
// @Summary     Update a service order
// @Description Patches scheduling fields while the order is still mutable.
// @Tags        Appointments
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Appointment ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateAppointmentRequest  true  "Fields to update"
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse "Order no longer mutable"
// @Router      /appointments/{id} [patch]
func (h *Handlers) UpdateAppointment(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid payload")
		return
	}
	a, err := h.appointments.Update(c.Request.Context(), id, services.UpdateAppointmentInput{
		ScheduledAt:      req.ScheduledAt,
		Description:      req.Description,
		EstimatedBudget:  req.EstimatedBudget,
		AssignedEmployee: req.AssignedEmployee,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	h.appointmentResponse(c, http.StatusOK, a)
}

// CancelAppointment godoc
// @ID          cancelAppointment
// @Summary     Cancel a service order
// @Description Cancels an order that has not consumed parts and is not awaiting an approval decision.
// @Tags        Appointments
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse "Illegal transition"
// @Failure     422  {object}  handlers.ErrorResponse "Parts already consumed"
// @Router      /appointments/{id}/cancel [patch]
func (h *Handlers) CancelAppointment(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	a, err := h.appointments.Cancel(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	h.appointmentResponse(c, http.StatusOK, a)
}

// GetBudget godoc
// @ID          getBudget
// @Summary     Budget breakdown
// @Description Returns the labor-plus-parts breakdown: one block for the base service and one per approved extra.
// @Tags        Appointments
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  budget.Breakdown
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Router      /appointments/{id}/breakdown [get]
func (h *Handlers) GetBudget(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	var b *budget.Breakdown
	b, err := h.appointments.Breakdown(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// ListComments godoc
// @ID          listComments
// @Summary     Order audit trail
// @Description Returns the order's comments, oldest first. Every committed status transition writes one.
// @Tags        Appointments
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.CommentsResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Router      /appointments/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	comments, err := h.appointments.Comments(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, CommentsResponse{Comments: comments})
}
