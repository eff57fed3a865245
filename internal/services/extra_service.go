package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/outbox"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// ExtraServiceBook manages mid-repair extra-service requests and their
// approval decisions. Requests snapshot the catalog entry at request
// time; decisions are idempotent and flip the order between In Repair
// and Awaiting Approval.
type ExtraServiceBook struct {
	Engine *AppointmentService
}

// NewExtraServiceBook wires the approval book onto the lifecycle engine.
func NewExtraServiceBook(engine *AppointmentService) *ExtraServiceBook {
	return &ExtraServiceBook{Engine: engine}
}

// RequestExtraInput describes a proposed extra service. When ServiceID
// points at a catalog entry, empty fields are hydrated from it.
type RequestExtraInput struct {
	ServiceID       *string
	Name            string
	Description     string
	Price           *decimal.Decimal
	LaborCost       *decimal.Decimal
	DurationMinutes *int
	RequestedBy     string
}

// Request records a pending extra service on an order in execution and
// parks the order in Awaiting Approval.
func (s *ExtraServiceBook) Request(ctx context.Context, appointmentID string, in RequestExtraInput) (*domain.ExtraService, error) {
	var created *domain.ExtraService
	err := s.Engine.withAppointment(ctx, appointmentID, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		name, err := s.Engine.statusName(a)
		if err != nil {
			return err
		}
		if name != domain.StatusInRepair && name != domain.StatusAwaitingApproval {
			return ErrIllegalTransition
		}
		extra := &domain.ExtraService{
			AppointmentID: a.ID,
			ServiceID:     in.ServiceID,
			Name:          in.Name,
			Description:   in.Description,
			Status:        domain.ExtraPending,
		}
		if in.Price != nil {
			extra.Price = *in.Price
		}
		if in.LaborCost != nil {
			extra.LaborCost = *in.LaborCost
		}
		if in.DurationMinutes != nil {
			extra.DurationMinutes = *in.DurationMinutes
		}
		if in.ServiceID != nil {
			svc, err := repo.GetService(ctx, tx, *in.ServiceID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return ErrServiceNotFound
				}
				return err
			}
			if extra.Name == "" {
				extra.Name = svc.Name
			}
			if extra.Description == "" {
				extra.Description = svc.Description
			}
			if in.Price == nil {
				extra.Price = svc.Price
			}
			if in.LaborCost == nil {
				extra.LaborCost = svc.LaborCost
			}
			if in.DurationMinutes == nil {
				extra.DurationMinutes = svc.DurationMinutes
			}
		}
		if err := repo.CreateExtraService(ctx, tx, extra); err != nil {
			return err
		}
		if name == domain.StatusInRepair {
			if err := s.Engine.setStatus(a, domain.StatusAwaitingApproval); err != nil {
				return err
			}
			if err := repo.SaveAppointment(ctx, tx, a); err != nil {
				return err
			}
			if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "aguardando aprovação"), extra.ServiceID); err != nil {
				return err
			}
		}
		ob.Record(outbox.KindExtraRequested, outbox.ExtraRequested{
			AppointmentID: a.ID,
			ServiceName:   extra.Name,
			RequestedBy:   in.RequestedBy,
		})
		created = extra
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Approve marks a pending request approved, folds its price into the
// budget and, once no request remains pending, returns the order to
// In Repair. Approving an already approved request is a no-op.
func (s *ExtraServiceBook) Approve(ctx context.Context, requestID string) (*domain.ExtraService, error) {
	return s.decide(ctx, requestID, domain.ExtraApproved)
}

// Reject marks a pending request rejected. The budget is unchanged and
// the request can no longer receive parts. Rejecting an already
// rejected request is a no-op.
func (s *ExtraServiceBook) Reject(ctx context.Context, requestID string) (*domain.ExtraService, error) {
	return s.decide(ctx, requestID, domain.ExtraRejected)
}

func (s *ExtraServiceBook) decide(ctx context.Context, requestID, decision string) (*domain.ExtraService, error) {
	// Resolve the owning appointment before locking so the lock order is
	// always appointment first, then request.
	probe, err := repo.GetExtraService(ctx, s.Engine.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrExtraNotFound
		}
		return nil, err
	}
	var result *domain.ExtraService
	err = s.Engine.withAppointment(ctx, probe.AppointmentID, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		req, err := repo.GetExtraServiceForUpdate(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrExtraNotFound
			}
			return err
		}
		if req.Status == decision {
			result = req
			return nil
		}
		if req.Status != domain.ExtraPending {
			return ErrExtraNotMutable
		}
		name, err := s.Engine.statusName(a)
		if err != nil {
			return err
		}
		if !statusMutable(name) {
			return ErrIllegalMutation
		}
		req.Status = decision
		if err := repo.UpdateExtraService(ctx, tx, req); err != nil {
			return err
		}
		if err := s.Engine.recomputeBudget(ctx, tx, a); err != nil {
			return err
		}
		pending, err := repo.CountPendingExtras(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if pending == 0 && name == domain.StatusAwaitingApproval {
			if err := s.Engine.setStatus(a, domain.StatusInRepair); err != nil {
				return err
			}
			if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "em reparação"), req.ServiceID); err != nil {
				return err
			}
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		ob.Record(outbox.KindExtraDecision, outbox.ExtraDecision{
			AppointmentID: a.ID,
			ServiceName:   req.Name,
			Approved:      decision == domain.ExtraApproved,
		})
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns an order's extra-service requests, oldest first.
func (s *ExtraServiceBook) List(ctx context.Context, appointmentID string) ([]domain.ExtraService, error) {
	if _, err := s.Engine.Get(ctx, appointmentID); err != nil {
		return nil, err
	}
	return repo.ListExtraServices(ctx, s.Engine.DB, appointmentID)
}
