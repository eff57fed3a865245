package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/budget"
	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/outbox"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// AppointmentService drives the service-order lifecycle: scheduling,
// the work clock, status transitions and budget recomputation. Every
// mutating operation runs inside a single transaction that locks the
// appointment row, and integration events are flushed only after the
// transaction commits.
type AppointmentService struct {
	DB        *gorm.DB
	Catalog   *StatusCatalog
	Publisher outbox.Publisher
	Log       zerolog.Logger
	Now       func() time.Time
}

// NewAppointmentService wires the lifecycle engine.
func NewAppointmentService(db *gorm.DB, catalog *StatusCatalog, pub outbox.Publisher, log zerolog.Logger) *AppointmentService {
	return &AppointmentService{DB: db, Catalog: catalog, Publisher: pub, Log: log, Now: time.Now}
}

func (s *AppointmentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateAppointmentInput carries the caller-supplied fields for a new
// service order.
type CreateAppointmentInput struct {
	CustomerID       string
	VehicleID        string
	ServiceID        string
	ScheduledAt      time.Time
	Description      string
	EstimatedBudget  *decimal.Decimal
	AssignedEmployee *string
}

// UpdateAppointmentInput carries the mutable fields of an appointment.
// Nil pointers leave the current value untouched.
type UpdateAppointmentInput struct {
	ScheduledAt      *time.Time
	Description      *string
	EstimatedBudget  *decimal.Decimal
	AssignedEmployee *string
}

// withAppointment runs fn inside a transaction holding a row lock on
// the appointment, then flushes any recorded events after commit.
func (s *AppointmentService) withAppointment(ctx context.Context, id string, fn func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error) error {
	ob := outbox.New()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetAppointmentForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}
		return fn(tx, a, ob)
	})
	if err != nil {
		return err
	}
	ob.Flush(ctx, s.Publisher, s.Log)
	return nil
}

func (s *AppointmentService) statusName(a *domain.Appointment) (string, error) {
	return s.Catalog.NameOf(a.StatusID)
}

func (s *AppointmentService) setStatus(a *domain.Appointment, name string) error {
	id, err := s.Catalog.IDOf(name)
	if err != nil {
		return err
	}
	a.StatusID = id
	return nil
}

// statusMutable reports whether money-bearing state may still change.
func statusMutable(name string) bool {
	switch name {
	case domain.StatusPending, domain.StatusInRepair, domain.StatusAwaitingApproval:
		return true
	}
	return false
}

func statusTerminal(name string) bool {
	return name == domain.StatusFinalized || name == domain.StatusCanceled
}

// recomputeBudget rebuilds actual_budget from the rows persisted in
// this transaction. It never increments, so replays converge.
func (s *AppointmentService) recomputeBudget(ctx context.Context, tx *gorm.DB, a *domain.Appointment) error {
	extras, err := repo.ListExtraServices(ctx, tx, a.ID)
	if err != nil {
		return err
	}
	parts, err := repo.ListConsumedParts(ctx, tx, a.ID)
	if err != nil {
		return err
	}
	b := budget.Compute(a.Service, extras, parts)
	a.ActualBudget = b.Total
	return nil
}

func orderComment(id, suffix string) string {
	return fmt.Sprintf("Ordem de serviço :%s %s", id, suffix)
}

// Create validates the referenced customer, vehicle and base service,
// then persists the appointment in Pending with its opening comment.
func (s *AppointmentService) Create(ctx context.Context, in CreateAppointmentInput) (*domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("customer.id", in.CustomerID),
			attribute.String("vehicle.id", in.VehicleID),
			attribute.String("service.id", in.ServiceID),
		),
	)
	defer span.End()

	var created *domain.Appointment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetCustomer(ctx, tx, in.CustomerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		vehicle, err := repo.GetVehicle(ctx, tx, in.VehicleID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrVehicleNotFound
			}
			return err
		}
		if vehicle.CustomerID != in.CustomerID {
			return ErrVehicleNotFound
		}
		svc, err := repo.GetService(ctx, tx, in.ServiceID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrServiceNotFound
			}
			return err
		}
		pendingID, err := s.Catalog.IDOf(domain.StatusPending)
		if err != nil {
			return err
		}
		estimated := svc.Price
		if in.EstimatedBudget != nil {
			estimated = *in.EstimatedBudget
		}
		base := budget.Compute(*svc, nil, nil)
		a := &domain.Appointment{
			CustomerID:       in.CustomerID,
			VehicleID:        in.VehicleID,
			ServiceID:        in.ServiceID,
			ScheduledAt:      in.ScheduledAt.UTC(),
			Description:      in.Description,
			StatusID:         pendingID,
			EstimatedBudget:  estimated,
			ActualBudget:     base.Total,
			AssignedEmployee: in.AssignedEmployee,
		}
		if err := repo.CreateAppointment(ctx, tx, a); err != nil {
			return err
		}
		if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "criada"), nil); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, created.ID)
}

// Get returns the appointment with all relations preloaded.
func (s *AppointmentService) Get(ctx context.Context, id string) (*domain.Appointment, error) {
	a, err := repo.GetAppointment(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// List returns one page of appointments plus the total row count.
func (s *AppointmentService) List(ctx context.Context, offset, limit int) ([]domain.Appointment, int64, error) {
	total, err := repo.CountAppointments(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.ListAppointmentsPage(ctx, s.DB, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update changes scheduling fields while the order is still mutable.
func (s *AppointmentService) Update(ctx context.Context, id string, in UpdateAppointmentInput) (*domain.Appointment, error) {
	err := s.withAppointment(ctx, id, func(tx *gorm.DB, a *domain.Appointment, _ *outbox.Outbox) error {
		name, err := s.statusName(a)
		if err != nil {
			return err
		}
		if !statusMutable(name) {
			return ErrIllegalMutation
		}
		if in.ScheduledAt != nil {
			a.ScheduledAt = in.ScheduledAt.UTC()
		}
		if in.Description != nil {
			a.Description = *in.Description
		}
		if in.EstimatedBudget != nil {
			a.EstimatedBudget = *in.EstimatedBudget
		}
		if in.AssignedEmployee != nil {
			a.AssignedEmployee = in.AssignedEmployee
		}
		return repo.SaveAppointment(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Cancel closes the order without billing. Orders that already consumed
// parts cannot be canceled, and neither can orders awaiting an approval
// decision.
func (s *AppointmentService) Cancel(ctx context.Context, id string) (*domain.Appointment, error) {
	err := s.withAppointment(ctx, id, func(tx *gorm.DB, a *domain.Appointment, _ *outbox.Outbox) error {
		name, err := s.statusName(a)
		if err != nil {
			return err
		}
		switch name {
		case domain.StatusPending, domain.StatusInRepair:
		case domain.StatusAwaitingApproval:
			return ErrIllegalTransition
		default:
			return ErrIllegalMutation
		}
		parts, err := repo.CountConsumedParts(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if parts > 0 {
			return ErrCancelWithParts
		}
		clockFinalize(a, s.now())
		if err := s.setStatus(a, domain.StatusCanceled); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		_, err = repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "cancelada"), nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Start opens the work clock on a pending, never-started, unpaused
// order and moves it to In Repair.
func (s *AppointmentService) Start(ctx context.Context, id string) (*domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Start",
		trace.WithAttributes(attribute.String("appointment.id", id)),
	)
	defer span.End()

	err := s.withAppointment(ctx, id, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		name, err := s.statusName(a)
		if err != nil {
			return err
		}
		if name != domain.StatusPending {
			return ErrIllegalTransition
		}
		if err := clockStart(a, s.now()); err != nil {
			return err
		}
		if err := s.setStatus(a, domain.StatusInRepair); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "iniciada"), nil); err != nil {
			return err
		}
		ob.Record(outbox.KindWorkStatus, outbox.WorkStatus{AppointmentID: a.ID, Action: outbox.ActionStarted})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Pause banks the elapsed segment and parks the order back in Pending
// with the paused flag raised.
func (s *AppointmentService) Pause(ctx context.Context, id string) (*domain.Appointment, error) {
	err := s.withAppointment(ctx, id, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		name, err := s.statusName(a)
		if err != nil {
			return err
		}
		if name != domain.StatusInRepair {
			return ErrIllegalTransition
		}
		if err := clockPause(a, s.now()); err != nil {
			return err
		}
		if err := s.setStatus(a, domain.StatusPending); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "pausada"), nil); err != nil {
			return err
		}
		ob.Record(outbox.KindWorkStatus, outbox.WorkStatus{AppointmentID: a.ID, Action: outbox.ActionPaused})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Resume restarts the clock on a paused order and returns it to
// In Repair.
func (s *AppointmentService) Resume(ctx context.Context, id string) (*domain.Appointment, error) {
	err := s.withAppointment(ctx, id, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		name, err := s.statusName(a)
		if err != nil {
			return err
		}
		if name != domain.StatusPending || !a.IsPaused {
			return ErrIllegalTransition
		}
		if err := clockResume(a, s.now()); err != nil {
			return err
		}
		if err := s.setStatus(a, domain.StatusInRepair); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "retomada"), nil); err != nil {
			return err
		}
		ob.Record(outbox.KindWorkStatus, outbox.WorkStatus{AppointmentID: a.ID, Action: outbox.ActionResumed})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Finalize closes the clock, freezes the budget and hands the order to
// billing. Calling it again once the order waits for payment or is
// finalized is a no-op.
func (s *AppointmentService) Finalize(ctx context.Context, id string) (*domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Finalize",
		trace.WithAttributes(attribute.String("appointment.id", id)),
	)
	defer span.End()

	err := s.withAppointment(ctx, id, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		name, err := s.statusName(a)
		if err != nil {
			return err
		}
		switch name {
		case domain.StatusWaitingPayment, domain.StatusFinalized:
			return nil
		case domain.StatusInRepair:
		case domain.StatusCanceled:
			return ErrIllegalMutation
		default:
			return ErrIllegalTransition
		}
		clockFinalize(a, s.now())
		if err := s.recomputeBudget(ctx, tx, a); err != nil {
			return err
		}
		if err := s.setStatus(a, domain.StatusWaitingPayment); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "finalizada"), nil); err != nil {
			return err
		}
		ob.Record(outbox.KindWorkStatus, outbox.WorkStatus{AppointmentID: a.ID, Action: outbox.ActionFinalized})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Breakdown computes the labor-plus-parts view of the order budget from
// the current persisted rows.
func (s *AppointmentService) Breakdown(ctx context.Context, id string) (*budget.Breakdown, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b := budget.Compute(a.Service, a.ExtraServices, a.ConsumedParts)
	return &b, nil
}

// Comments returns the order's audit trail, oldest first.
func (s *AppointmentService) Comments(ctx context.Context, id string) ([]domain.OrderComment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return repo.ListOrderComments(ctx, s.DB, id)
}

// WorkedSeconds reports accounted work time plus the live segment, if
// the clock is running.
func (s *AppointmentService) WorkedSeconds(a *domain.Appointment) int64 {
	return LiveElapsed(a, s.now())
}
