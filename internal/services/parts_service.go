package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/outbox"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// PartsService attaches stocked parts to service orders. Stock is taken
// from the inventory ledger inside the same transaction that records the
// consumption, so a part line and its stock decrement commit or roll back
// together.
type PartsService struct {
	Engine *AppointmentService
}

// NewPartsService wires the parts book onto the lifecycle engine.
func NewPartsService(engine *AppointmentService) *PartsService {
	return &PartsService{Engine: engine}
}

// AddPartInput identifies the product to consume and, optionally, the
// extra-service request the part belongs to.
type AddPartInput struct {
	ProductID      string
	Quantity       int
	ExtraServiceID *string
}

// PartsView groups an order's consumed parts by destination: the base
// service, then each extra-service request by id.
type PartsView struct {
	Base   []domain.ConsumedPart            `json:"base"`
	Extras map[string][]domain.ConsumedPart `json:"extras"`
}

// AddPart consumes stock and records the part on the order. The order
// must still be mutable; a rejected extra cannot receive parts.
func (s *PartsService) AddPart(ctx context.Context, appointmentID string, in AddPartInput) (*domain.ConsumedPart, error) {
	var created *domain.ConsumedPart
	err := s.Engine.withAppointment(ctx, appointmentID, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		name, err := s.Engine.statusName(a)
		if err != nil {
			return err
		}
		if !statusMutable(name) {
			return ErrIllegalMutation
		}
		if in.ExtraServiceID != nil {
			extra, err := repo.GetExtraService(ctx, tx, *in.ExtraServiceID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return ErrExtraNotFound
				}
				return err
			}
			if extra.AppointmentID != a.ID {
				return ErrExtraNotFound
			}
			if extra.Status == domain.ExtraRejected {
				return ErrExtraNotMutable
			}
		}
		snap, err := repo.ConsumeProduct(ctx, tx, in.ProductID, in.Quantity)
		if err != nil {
			return err
		}
		part := &domain.ConsumedPart{
			AppointmentID:  a.ID,
			ExtraServiceID: in.ExtraServiceID,
			ProductID:      &snap.ProductID,
			Name:           snap.Name,
			PartNumber:     snap.PartNumber,
			Quantity:       snap.Quantity,
			UnitPrice:      snap.UnitPrice,
		}
		if err := repo.CreateConsumedPart(ctx, tx, part); err != nil {
			return err
		}
		if err := s.Engine.recomputeBudget(ctx, tx, a); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		text := fmt.Sprintf("Peça %s (x%d) adicionada à ordem de serviço :%s", snap.PartNumber, snap.Quantity, a.ID)
		if _, err := repo.CreateOrderComment(ctx, tx, a.ID, text, nil); err != nil {
			return err
		}
		if snap.OnHandAfter <= snap.MinimumStock {
			ob.Record(outbox.KindLowStock, outbox.LowStock{
				ProductID: snap.ProductID,
				OnHand:    snap.OnHandAfter,
				Minimum:   snap.MinimumStock,
			})
			if snap.OnHandBefore > snap.MinimumStock {
				ob.Record(outbox.KindLowStockCrossed, outbox.LowStock{
					ProductID: snap.ProductID,
					OnHand:    snap.OnHandAfter,
					Minimum:   snap.MinimumStock,
				})
			}
		}
		created = part
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemovePart deletes a part line from a still-mutable order. Stock is
// not returned to the shelf; a removed part goes back through intake.
func (s *PartsService) RemovePart(ctx context.Context, appointmentID, partID string) error {
	return s.Engine.withAppointment(ctx, appointmentID, func(tx *gorm.DB, a *domain.Appointment, _ *outbox.Outbox) error {
		name, err := s.Engine.statusName(a)
		if err != nil {
			return err
		}
		if !statusMutable(name) {
			return ErrIllegalMutation
		}
		part, err := repo.GetConsumedPart(ctx, tx, partID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrPartNotFound
			}
			return err
		}
		if part.AppointmentID != a.ID {
			return ErrPartNotFound
		}
		if err := repo.DeleteConsumedPart(ctx, tx, partID); err != nil {
			return err
		}
		if err := s.Engine.recomputeBudget(ctx, tx, a); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		text := fmt.Sprintf("Peça %s removida da ordem de serviço :%s", part.PartNumber, a.ID)
		_, err = repo.CreateOrderComment(ctx, tx, a.ID, text, nil)
		return err
	})
}

// ListParts returns the order's consumed parts grouped by base service
// and extra-service request.
func (s *PartsService) ListParts(ctx context.Context, appointmentID string) (*PartsView, error) {
	if _, err := s.Engine.Get(ctx, appointmentID); err != nil {
		return nil, err
	}
	parts, err := repo.ListConsumedParts(ctx, s.Engine.DB, appointmentID)
	if err != nil {
		return nil, err
	}
	view := &PartsView{Base: []domain.ConsumedPart{}, Extras: map[string][]domain.ConsumedPart{}}
	for _, p := range parts {
		if p.ExtraServiceID == nil {
			view.Base = append(view.Base, p)
			continue
		}
		view.Extras[*p.ExtraServiceID] = append(view.Extras[*p.ExtraServiceID], p)
	}
	return view, nil
}
