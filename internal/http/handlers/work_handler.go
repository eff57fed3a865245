// Work-clock HTTP handlers.
//
// This file exposes the four work-clock transitions of a service order:
//   - PATCH /appointments/{id}/work/start
//   - PATCH /appointments/{id}/work/pause
//   - PATCH /appointments/{id}/work/resume
//   - PATCH /appointments/{id}/work/finalize
//
// Each endpoint delegates to the lifecycle engine, which validates the
// transition, updates the clock, writes the audit comment and emits the
// work-status event after commit.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// StartWork godoc
// @ID          startWork
// @Summary     Start work
// @Description Opens the work clock on a pending order and moves it to In Repair.
// @Tags        Work
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse "Illegal transition"
// @Router      /appointments/{id}/work/start [patch]
func (h *Handlers) StartWork(c *gin.Context) {
	h.workTransition(c, h.appointments.Start)
}

// PauseWork godoc
// @ID          pauseWork
// @Summary     Pause work
// @Description Banks the elapsed segment and parks the order back in Pending, paused.
// @Tags        Work
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse "Illegal transition"
// @Router      /appointments/{id}/work/pause [patch]
func (h *Handlers) PauseWork(c *gin.Context) {
	h.workTransition(c, h.appointments.Pause)
}

// ResumeWork godoc
// @ID          resumeWork
// @Summary     Resume work
// @Description Restarts the clock on a paused order and returns it to In Repair.
// @Tags        Work
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse "Illegal transition"
// @Router      /appointments/{id}/work/resume [patch]
func (h *Handlers) ResumeWork(c *gin.Context) {
	h.workTransition(c, h.appointments.Resume)
}

// FinalizeWork godoc
// @ID          finalizeWork
// @Summary     Finalize work
// @Description Closes the clock, freezes the budget and moves the order to Waiting Payment.
// @Description Finalizing an order already waiting for payment (or finalized) is a no-op.
// @Tags        Work
// @Produce     json
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     404  {object}  handlers.ErrorResponse "Appointment not found"
// @Failure     409  {object}  handlers.ErrorResponse "Illegal transition"
// @Router      /appointments/{id}/work/finalize [patch]
func (h *Handlers) FinalizeWork(c *gin.Context) {
	h.workTransition(c, h.appointments.Finalize)
}

func (h *Handlers) workTransition(c *gin.Context, op func(ctx context.Context, id string) (*domain.Appointment, error)) {
	id, okID := requireUUID(c, "id")
	if !okID {
		return
	}
	a, err := op(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	h.appointmentResponse(c, http.StatusOK, a)
}
