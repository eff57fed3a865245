// Package outbox implements the transactional-outbox seam between the
// appointment engine and external consumers (notification persistence,
// email, dashboards). Domain operations record events into a per-operation
// buffer while their database transaction is open; the buffer is flushed to
// the configured Publisher only after the transaction commits, so consumers
// never observe events from rolled-back work, and a failing consumer never
// fails the originating domain transaction.
package outbox

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Event kinds.
const (
	KindLowStock        = "LowStock"
	KindLowStockCrossed = "LowStockCrossed"
	KindStockUpdated    = "StockUpdated"
	KindExtraRequested  = "ExtraRequested"
	KindExtraDecision   = "ExtraDecision"
	KindWorkStatus      = "WorkStatus"
	KindPaymentReceived = "PaymentReceived"
)

// Work-clock actions carried by WorkStatus events.
const (
	ActionStarted   = "started"
	ActionPaused    = "paused"
	ActionResumed   = "resumed"
	ActionFinalized = "finalized"
)

// Event is an envelope of one domain event. Payload is one of the typed
// structs below, selected by Kind.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// LowStock signals that a consumption left a product at or below its minimum.
type LowStock struct {
	ProductID string `json:"product_id"`
	OnHand    int    `json:"on_hand"`
	Minimum   int    `json:"minimum"`
}

// StockUpdated signals an admin quantity correction.
type StockUpdated struct {
	ProductID string `json:"product_id"`
	Old       int    `json:"old"`
	New       int    `json:"new"`
}

// ExtraRequested signals a newly created extra-service request.
type ExtraRequested struct {
	AppointmentID string `json:"appointment_id"`
	ServiceName   string `json:"service_name"`
	RequestedBy   string `json:"requested_by,omitempty"`
}

// ExtraDecision signals an approval or rejection of an extra-service request.
type ExtraDecision struct {
	AppointmentID string `json:"appointment_id"`
	ServiceName   string `json:"service_name"`
	Approved      bool   `json:"approved"`
}

// WorkStatus signals a work-clock transition.
type WorkStatus struct {
	AppointmentID string `json:"appointment_id"`
	Action        string `json:"action"`
}

// PaymentReceived signals a confirmed payment.
type PaymentReceived struct {
	AppointmentID string          `json:"appointment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// Publisher delivers flushed events to whatever consumer is attached. The
// engine does not care which; delivery errors are the publisher's problem to
// surface (they are logged, never propagated into domain transactions).
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Outbox is the per-operation event buffer. It is thread-confined to the
// request that created it and must not be shared across transactions.
type Outbox struct {
	events []Event
}

// New returns an empty buffer.
func New() *Outbox { return &Outbox{} }

// Record appends an event to the buffer.
func (o *Outbox) Record(kind string, payload any) {
	o.events = append(o.events, Event{Kind: kind, Payload: payload})
}

// Events returns the buffered events in record order.
func (o *Outbox) Events() []Event { return o.events }

// Flush delivers every buffered event to pub and clears the buffer. It is
// called strictly after the enclosing transaction committed. Delivery errors
// are logged and swallowed; consumers are expected to retry on their side.
func (o *Outbox) Flush(ctx context.Context, pub Publisher, log zerolog.Logger) {
	if pub == nil {
		o.events = nil
		return
	}
	for _, ev := range o.events {
		if err := pub.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", ev.Kind).Msg("outbox publish failed")
		}
	}
	o.events = nil
}

// LogPublisher is the default consumer: it writes each event as a structured
// log line. Real deployments attach notification/email consumers instead.
type LogPublisher struct {
	Log zerolog.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	p.Log.Info().Str("event", ev.Kind).Interface("payload", ev.Payload).Msg("domain event")
	return nil
}
