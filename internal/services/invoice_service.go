package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oficinapro/workshop-backend/internal/budget"
	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/outbox"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

// InvoiceService turns a confirmed payment into a paid invoice and
// finalizes the order. Issuing is idempotent per appointment: replaying
// a payment confirmation returns the invoice already on file.
type InvoiceService struct {
	Engine   *AppointmentService
	TaxRate  decimal.Decimal
	Currency string
}

// NewInvoiceService wires billing onto the lifecycle engine.
func NewInvoiceService(engine *AppointmentService, taxRate decimal.Decimal, currency string) *InvoiceService {
	return &InvoiceService{Engine: engine, TaxRate: taxRate, Currency: currency}
}

// ConfirmPaymentInput is the normalized payload of a payment-provider
// webhook.
type ConfirmPaymentInput struct {
	AppointmentID   string
	PaymentIntentID string
	Amount          decimal.Decimal
	PaidAt          time.Time
}

// ConfirmPayment issues the invoice for an order waiting on payment and
// moves it to Finalized. The paid amount may not exceed the taxed total.
func (s *InvoiceService) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) (*domain.Invoice, error) {
	var issued *domain.Invoice
	err := s.Engine.withAppointment(ctx, in.AppointmentID, func(tx *gorm.DB, a *domain.Appointment, ob *outbox.Outbox) error {
		existing, err := repo.GetInvoiceByAppointment(ctx, tx, a.ID)
		if err == nil {
			issued = existing
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		name, err := s.Engine.statusName(a)
		if err != nil {
			return err
		}
		if name != domain.StatusWaitingPayment {
			if statusTerminal(name) {
				return ErrIllegalMutation
			}
			return ErrIllegalTransition
		}
		extras, err := repo.ListExtraServices(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		parts, err := repo.ListConsumedParts(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		b := budget.Compute(a.Service, extras, parts)
		subtotal := b.Total
		tax := subtotal.Mul(s.TaxRate).Round(2)
		total := subtotal.Add(tax)
		if in.Amount.GreaterThan(total) {
			return ErrAmountExceedsTotal
		}
		paidAt := in.PaidAt.UTC()
		if in.PaidAt.IsZero() {
			paidAt = s.Engine.now()
		}
		number, err := repo.NextInvoiceNumber(ctx, tx, paidAt.Year())
		if err != nil {
			return err
		}
		customer, err := repo.GetCustomer(ctx, tx, a.CustomerID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		inv := &domain.Invoice{
			AppointmentID:   a.ID,
			InvoiceNumber:   number,
			Subtotal:        subtotal,
			Tax:             tax,
			Total:           total,
			Currency:        s.Currency,
			PaymentStatus:   domain.PaymentPaid,
			CustomerName:    customer.Name,
			CustomerEmail:   customer.Email,
			LineItems:       b.InvoiceLines(),
			PaymentIntentID: in.PaymentIntentID,
			PaidAt:          &paidAt,
		}
		if err := repo.CreateInvoice(ctx, tx, inv); err != nil {
			return err
		}
		a.ActualBudget = subtotal
		if err := s.Engine.setStatus(a, domain.StatusFinalized); err != nil {
			return err
		}
		if err := repo.SaveAppointment(ctx, tx, a); err != nil {
			return err
		}
		if _, err := repo.CreateOrderComment(ctx, tx, a.ID, orderComment(a.ID, "paga"), nil); err != nil {
			return err
		}
		ob.Record(outbox.KindPaymentReceived, outbox.PaymentReceived{
			AppointmentID: a.ID,
			Amount:        in.Amount,
			Currency:      s.Currency,
		})
		issued = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// GetInvoice returns the invoice issued for an appointment, if any.
func (s *InvoiceService) GetInvoice(ctx context.Context, appointmentID string) (*domain.Invoice, error) {
	if _, err := s.Engine.Get(ctx, appointmentID); err != nil {
		return nil, err
	}
	inv, err := repo.GetInvoiceByAppointment(ctx, s.Engine.DB, appointmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return inv, nil
}
