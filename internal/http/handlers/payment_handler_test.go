package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/http/middleware"
)

func decodeInvoice(t *testing.T, w *httptest.ResponseRecorder) *domain.Invoice {
	t.Helper()
	var out InvoiceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode invoice body: %v (%s)", err, w.Body.String())
	}
	if out.Invoice == nil {
		t.Fatalf("nil invoice in body: %s", w.Body.String())
	}
	return out.Invoice
}

// waitingPaymentOrder schedules, starts and finalizes an order so the
// webhook has something to bill.
func (f *handlerFixture) waitingPaymentOrder(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	r := f.router()
	w := doJSON(r, http.MethodPost, "/appointments", f.createBody(), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
	}
	id := decodeAppointment(t, w).Appointment.ID
	if _, err := f.engine.Start(ctx, id); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.engine.Finalize(ctx, id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return id
}

func webhookBody(appointmentID, intentID, amount string) string {
	return fmt.Sprintf(`{"appointment_id":%q,"payment_intent_id":%q,"amount":%q}`, appointmentID, intentID, amount)
}

func TestPaymentWebhook_Validation(t *testing.T) {
	f := newHandlerFixture(t)
	r := f.router()

	// Missing required fields -> 400
	{
		w := doJSON(r, http.MethodPost, "/payments/webhook", `{"amount":"10.00"}`, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("missing fields -> %d", w.Code)
		}
	}

	// Negative amount -> 400
	{
		id := f.waitingPaymentOrder(t)
		w := doJSON(r, http.MethodPost, "/payments/webhook", webhookBody(id, "pi_neg", "-1.00"), nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("negative amount -> %d body=%s", w.Code, w.Body.String())
		}
		if e := decodeErr(t, w); e.Code != ErrCodeValidation {
			t.Fatalf("code = %q, want %q", e.Code, ErrCodeValidation)
		}
	}
}

func TestPaymentWebhook_IssuesAndFinalizes(t *testing.T) {
	f := newHandlerFixture(t)
	r := f.router()
	id := f.waitingPaymentOrder(t)

	// 120 labor, 23% tax
	w := doJSON(r, http.MethodPost, "/payments/webhook", webhookBody(id, "pi_ok", "147.60"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook -> %d body=%s", w.Code, w.Body.String())
	}
	inv := decodeInvoice(t, w)
	if inv.InvoiceNumber == "" || inv.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("unexpected invoice: %+v", inv)
	}
	if !inv.Total.Equal(decimal.RequireFromString("147.60")) {
		t.Fatalf("total = %s, want 147.60", inv.Total)
	}

	// The order is now Finalized and its invoice is fetchable.
	get := doJSON(r, http.MethodGet, "/appointments/"+id+"/invoice", "", nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get invoice -> %d", get.Code)
	}
	if fetched := decodeInvoice(t, get); fetched.InvoiceNumber != inv.InvoiceNumber {
		t.Fatalf("fetched %q, want %q", fetched.InvoiceNumber, inv.InvoiceNumber)
	}
	gotOrder := doJSON(r, http.MethodGet, "/appointments/"+id, "", nil)
	if out := decodeAppointment(t, gotOrder); out.Appointment.Status.Name != domain.StatusFinalized {
		t.Fatalf("order status = %q, want Finalized", out.Appointment.Status.Name)
	}
}

func TestPaymentWebhook_RedeliveryWithIdempotencyKey(t *testing.T) {
	f := newHandlerFixture(t)
	r := f.router()
	id := f.waitingPaymentOrder(t)
	header := map[string]string{middleware.HeaderIdempotencyKey: "evt_delivery_1"}

	first := doJSON(r, http.MethodPost, "/payments/webhook", webhookBody(id, "pi_retry", "147.60"), header)
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery -> %d body=%s", first.Code, first.Body.String())
	}
	if first.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first delivery marked as replayed")
	}
	issued := decodeInvoice(t, first)

	second := doJSON(r, http.MethodPost, "/payments/webhook", webhookBody(id, "pi_retry", "147.60"), header)
	if second.Code != http.StatusOK {
		t.Fatalf("redelivery -> %d body=%s", second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("missing Idempotency-Replayed header")
	}
	if replayed := decodeInvoice(t, second); replayed.InvoiceNumber != issued.InvoiceNumber {
		t.Fatalf("replay issued a new invoice: %q vs %q", replayed.InvoiceNumber, issued.InvoiceNumber)
	}

	var count int64
	if err := f.db.Model(&domain.Invoice{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("invoices = %d, want 1", count)
	}
}

func TestPaymentWebhook_WrongStateAndOverpay(t *testing.T) {
	f := newHandlerFixture(t)
	r := f.router()

	// Order still Pending -> 409 ILLEGAL_TRANSITION
	{
		w := doJSON(r, http.MethodPost, "/appointments", f.createBody(), nil)
		id := decodeAppointment(t, w).Appointment.ID
		resp := doJSON(r, http.MethodPost, "/payments/webhook", webhookBody(id, "pi_early", "10.00"), nil)
		if resp.Code != http.StatusConflict {
			t.Fatalf("pending order -> %d body=%s", resp.Code, resp.Body.String())
		}
		if e := decodeErr(t, resp); e.Code != ErrCodeIllegalTransition {
			t.Fatalf("code = %q, want %q", e.Code, ErrCodeIllegalTransition)
		}
	}

	// Amount above taxed total -> 422
	{
		id := f.waitingPaymentOrder(t)
		resp := doJSON(r, http.MethodPost, "/payments/webhook", webhookBody(id, "pi_over", "999.99"), nil)
		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("overpay -> %d body=%s", resp.Code, resp.Body.String())
		}
		if e := decodeErr(t, resp); e.Code != ErrCodeBusinessRule {
			t.Fatalf("code = %q, want %q", e.Code, ErrCodeBusinessRule)
		}
	}
}
