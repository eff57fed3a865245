package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oficinapro/workshop-backend/internal/domain"
	"github.com/oficinapro/workshop-backend/internal/outbox"
	"github.com/oficinapro/workshop-backend/internal/repo"
)

var lifecycleEpoch = time.Date(2026, 9, 20, 9, 0, 0, 0, time.UTC)

type capturePublisher struct {
	events []outbox.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev outbox.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) kinds() []string {
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	db       *gorm.DB
	engine   *AppointmentService
	parts    *PartsService
	extras   *ExtraServiceBook
	invoices *InvoiceService
	pub      *capturePublisher
	clock    *fakeClock

	customer *domain.Customer
	vehicle  *domain.Vehicle
	service  *domain.Service
	product  *domain.Product
	extraSvc *domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.SeedStatuses(ctx, db); err != nil {
		t.Fatalf("seed statuses: %v", err)
	}
	catalog, err := LoadStatusCatalog(ctx, db)
	if err != nil {
		t.Fatalf("load status catalog: %v", err)
	}

	pub := &capturePublisher{}
	clock := &fakeClock{t: lifecycleEpoch}
	engine := NewAppointmentService(db, catalog, pub, zerolog.Nop())
	engine.Now = clock.Now

	f := &fixture{
		db:       db,
		engine:   engine,
		parts:    NewPartsService(engine),
		extras:   NewExtraServiceBook(engine),
		invoices: NewInvoiceService(engine, decimal.RequireFromString("0.23"), "EUR"),
		pub:      pub,
		clock:    clock,
	}

	f.customer = &domain.Customer{Name: "Maria Silva", Email: "maria.silva@example.com", Phone: "+351912345678"}
	if err := repo.CreateCustomer(ctx, db, f.customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	f.vehicle = &domain.Vehicle{CustomerID: f.customer.ID, Plate: "AA-12-BB", Make: "Renault", Model: "Clio", Year: 2019}
	if err := repo.CreateVehicle(ctx, db, f.vehicle); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	f.service = &domain.Service{
		Name:            "Revisão geral",
		Description:     "Revisão completa do veículo",
		Price:           decimal.RequireFromString("150.00"),
		LaborCost:       decimal.RequireFromString("120.00"),
		DurationMinutes: 90,
		Area:            "revisão",
	}
	if err := repo.CreateService(ctx, db, f.service); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	f.extraSvc = &domain.Service{
		Name:            "Troca de pastilhas",
		Description:     "Substituição das pastilhas de travão",
		Price:           decimal.RequireFromString("95.00"),
		LaborCost:       decimal.RequireFromString("80.00"),
		DurationMinutes: 45,
		Area:            "mecânica",
	}
	if err := repo.CreateService(ctx, db, f.extraSvc); err != nil {
		t.Fatalf("seed extra service: %v", err)
	}
	f.product = &domain.Product{
		PartNumber:     "PN-1001",
		Name:           "Brake pad set",
		Category:       "brakes",
		OnHandQuantity: 10,
		CostValue:      decimal.RequireFromString("12.50"),
		SaleValue:      decimal.RequireFromString("24.90"),
		MinimumStock:   2,
	}
	if err := repo.CreateProduct(ctx, db, f.product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return f
}

func (f *fixture) mustCreate(t *testing.T) *domain.Appointment {
	t.Helper()
	a, err := f.engine.Create(context.Background(), CreateAppointmentInput{
		CustomerID:  f.customer.ID,
		VehicleID:   f.vehicle.ID,
		ServiceID:   f.service.ID,
		ScheduledAt: lifecycleEpoch.Add(24 * time.Hour),
		Description: "barulho ao travar",
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func (f *fixture) mustStart(t *testing.T, id string) *domain.Appointment {
	t.Helper()
	a, err := f.engine.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("start appointment: %v", err)
	}
	return a
}

func (f *fixture) statusOf(t *testing.T, id string) string {
	t.Helper()
	a, err := f.engine.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	return a.Status.Name
}

func (f *fixture) commentCount(t *testing.T, id string) int {
	t.Helper()
	rows, err := f.engine.Comments(context.Background(), id)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	return len(rows)
}

func TestCreate_PendingWithOpeningComment(t *testing.T) {
	f := newFixture(t)
	a := f.mustCreate(t)

	if a.Status.Name != domain.StatusPending {
		t.Fatalf("status = %q, want %q", a.Status.Name, domain.StatusPending)
	}
	if !a.EstimatedBudget.Equal(f.service.Price) {
		t.Fatalf("estimated budget = %s, want %s", a.EstimatedBudget, f.service.Price)
	}
	if !a.ActualBudget.Equal(f.service.LaborCost) {
		t.Fatalf("actual budget = %s, want %s", a.ActualBudget, f.service.LaborCost)
	}

	comments, err := f.engine.Comments(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(comments))
	}
	want := fmt.Sprintf("Ordem de serviço :%s criada", a.ID)
	if comments[0].Text != want {
		t.Fatalf("comment = %q, want %q", comments[0].Text, want)
	}
}

func TestCreate_VehicleOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &domain.Customer{Name: "João Costa", Email: "joao.costa@example.com"}
	if err := repo.CreateCustomer(ctx, f.db, other); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	_, err := f.engine.Create(ctx, CreateAppointmentInput{
		CustomerID:  other.ID,
		VehicleID:   f.vehicle.ID,
		ServiceID:   f.service.ID,
		ScheduledAt: lifecycleEpoch,
	})
	if !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("err = %v, want ErrVehicleNotFound", err)
	}
}

func TestStartPauseResume_AccountsWorkedSeconds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)

	f.mustStart(t, a.ID)
	if got := f.statusOf(t, a.ID); got != domain.StatusInRepair {
		t.Fatalf("after start status = %q, want %q", got, domain.StatusInRepair)
	}

	f.clock.advance(10 * time.Minute)
	paused, err := f.engine.Pause(ctx, a.ID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.Status.Name != domain.StatusPending || !paused.IsPaused {
		t.Fatalf("after pause status = %q paused = %v, want Pending/true", paused.Status.Name, paused.IsPaused)
	}
	if paused.TotalWorkedSeconds != 600 {
		t.Fatalf("worked = %d, want 600", paused.TotalWorkedSeconds)
	}

	// Paused wall time is not work time.
	f.clock.advance(5 * time.Minute)
	resumed, err := f.engine.Resume(ctx, a.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status.Name != domain.StatusInRepair || resumed.IsPaused {
		t.Fatalf("after resume status = %q paused = %v, want In Repair/false", resumed.Status.Name, resumed.IsPaused)
	}
	if resumed.TotalWorkedSeconds != 600 {
		t.Fatalf("worked after resume = %d, want 600", resumed.TotalWorkedSeconds)
	}

	f.clock.advance(2 * time.Minute)
	done, err := f.engine.Finalize(ctx, a.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if done.Status.Name != domain.StatusWaitingPayment {
		t.Fatalf("after finalize status = %q, want %q", done.Status.Name, domain.StatusWaitingPayment)
	}
	if done.TotalWorkedSeconds != 720 {
		t.Fatalf("worked after finalize = %d, want 720", done.TotalWorkedSeconds)
	}
	if done.StartedAt != nil || done.IsPaused {
		t.Fatalf("clock not cleared: started=%v paused=%v", done.StartedAt, done.IsPaused)
	}

	wantKinds := []string{outbox.KindWorkStatus, outbox.KindWorkStatus, outbox.KindWorkStatus, outbox.KindWorkStatus}
	if got := f.pub.kinds(); len(got) != len(wantKinds) {
		t.Fatalf("events = %v, want 4 work-status events", got)
	}
	wantActions := []string{outbox.ActionStarted, outbox.ActionPaused, outbox.ActionResumed, outbox.ActionFinalized}
	for i, ev := range f.pub.events {
		ws, ok := ev.Payload.(outbox.WorkStatus)
		if !ok {
			t.Fatalf("event %d payload = %T, want WorkStatus", i, ev.Payload)
		}
		if ws.Action != wantActions[i] {
			t.Fatalf("event %d action = %q, want %q", i, ws.Action, wantActions[i])
		}
	}
}

func TestStart_RefusedOutsidePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)

	if _, err := f.engine.Start(ctx, a.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("second start err = %v, want ErrIllegalTransition", err)
	}
	if _, err := f.engine.Resume(ctx, a.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("resume while running err = %v, want ErrIllegalTransition", err)
	}
}

func TestAddPart_UpdatesBudgetAndStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)

	part, err := f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add part: %v", err)
	}
	if part.PartNumber != "PN-1001" || part.Quantity != 2 {
		t.Fatalf("part snapshot = %q x%d, want PN-1001 x2", part.PartNumber, part.Quantity)
	}
	if !part.UnitPrice.Equal(decimal.RequireFromString("24.90")) {
		t.Fatalf("unit price = %s, want 24.90", part.UnitPrice)
	}

	reloaded, err := f.engine.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// 120 labor + 2 x 24.90
	if want := decimal.RequireFromString("169.80"); !reloaded.ActualBudget.Equal(want) {
		t.Fatalf("actual budget = %s, want %s", reloaded.ActualBudget, want)
	}

	prod, err := repo.GetProduct(ctx, f.db, f.product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if prod.OnHandQuantity != 8 {
		t.Fatalf("on hand = %d, want 8", prod.OnHandQuantity)
	}
}

func TestAddPart_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	before := f.statusOf(t, a.ID)
	events := len(f.pub.events)

	_, err := f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 11})
	if !errors.Is(err, repo.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	reloaded, err := f.engine.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(reloaded.ConsumedParts) != 0 {
		t.Fatalf("consumed parts = %d, want 0", len(reloaded.ConsumedParts))
	}
	if !reloaded.ActualBudget.Equal(f.service.LaborCost) {
		t.Fatalf("actual budget = %s, want unchanged %s", reloaded.ActualBudget, f.service.LaborCost)
	}
	if got := f.statusOf(t, a.ID); got != before {
		t.Fatalf("status = %q, want unchanged %q", got, before)
	}
	prod, err := repo.GetProduct(ctx, f.db, f.product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if prod.OnHandQuantity != 10 {
		t.Fatalf("on hand = %d, want untouched 10", prod.OnHandQuantity)
	}
	if len(f.pub.events) != events {
		t.Fatalf("events published from rolled-back transaction: %v", f.pub.kinds())
	}
}

func TestAddPart_LowStockEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	f.pub.events = nil

	// 10 on hand, minimum 2: dropping to 1 crosses the threshold.
	if _, err := f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 9}); err != nil {
		t.Fatalf("add part: %v", err)
	}

	var low, crossed *outbox.LowStock
	for i := range f.pub.events {
		payload, ok := f.pub.events[i].Payload.(outbox.LowStock)
		if !ok {
			continue
		}
		switch f.pub.events[i].Kind {
		case outbox.KindLowStock:
			low = &payload
		case outbox.KindLowStockCrossed:
			crossed = &payload
		}
	}
	if low == nil || crossed == nil {
		t.Fatalf("events = %v, want LowStock and LowStockCrossed", f.pub.kinds())
	}
	if low.OnHand != 1 || low.Minimum != 2 {
		t.Fatalf("low stock payload = %+v, want on_hand 1 minimum 2", *low)
	}

	// Another consumption below minimum alerts again but does not re-cross.
	f.pub.events = nil
	if _, err := f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add part: %v", err)
	}
	for _, ev := range f.pub.events {
		if ev.Kind == outbox.KindLowStockCrossed {
			t.Fatalf("unexpected second crossing event: %v", f.pub.kinds())
		}
	}
}

func TestRequestExtra_ParksOrderAwaitingApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)

	req, err := f.extras.Request(ctx, a.ID, RequestExtraInput{
		ServiceID:   &f.extraSvc.ID,
		RequestedBy: "mecânico António",
	})
	if err != nil {
		t.Fatalf("request extra: %v", err)
	}
	if req.Status != domain.ExtraPending {
		t.Fatalf("request status = %q, want pending", req.Status)
	}
	// Empty fields hydrate from the catalog entry.
	if req.Name != f.extraSvc.Name {
		t.Fatalf("name = %q, want %q", req.Name, f.extraSvc.Name)
	}
	if !req.LaborCost.Equal(f.extraSvc.LaborCost) {
		t.Fatalf("labor cost = %s, want %s", req.LaborCost, f.extraSvc.LaborCost)
	}
	if req.DurationMinutes != f.extraSvc.DurationMinutes {
		t.Fatalf("duration = %d, want %d", req.DurationMinutes, f.extraSvc.DurationMinutes)
	}
	if got := f.statusOf(t, a.ID); got != domain.StatusAwaitingApproval {
		t.Fatalf("status = %q, want %q", got, domain.StatusAwaitingApproval)
	}

	// Pending requests do not contribute to the budget.
	reloaded, err := f.engine.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reloaded.ActualBudget.Equal(f.service.LaborCost) {
		t.Fatalf("actual budget = %s, want %s", reloaded.ActualBudget, f.service.LaborCost)
	}
}

func TestRequestExtra_RefusedBeforeStart(t *testing.T) {
	f := newFixture(t)
	a := f.mustCreate(t)

	_, err := f.extras.Request(context.Background(), a.ID, RequestExtraInput{Name: "Polimento"})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}
}

func TestApproveExtra_FoldsBudgetAndReturnsToRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)

	req, err := f.extras.Request(ctx, a.ID, RequestExtraInput{ServiceID: &f.extraSvc.ID})
	if err != nil {
		t.Fatalf("request extra: %v", err)
	}

	approved, err := f.extras.Approve(ctx, req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.ExtraApproved {
		t.Fatalf("status = %q, want approved", approved.Status)
	}
	if got := f.statusOf(t, a.ID); got != domain.StatusInRepair {
		t.Fatalf("order status = %q, want %q", got, domain.StatusInRepair)
	}
	reloaded, err := f.engine.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// 120 base labor + 80 extra labor
	if want := decimal.RequireFromString("200.00"); !reloaded.ActualBudget.Equal(want) {
		t.Fatalf("actual budget = %s, want %s", reloaded.ActualBudget, want)
	}

	// Re-approving converges on the same state.
	again, err := f.extras.Approve(ctx, req.ID)
	if err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if again.Status != domain.ExtraApproved {
		t.Fatalf("re-approve status = %q, want approved", again.Status)
	}
	reloaded, err = f.engine.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := decimal.RequireFromString("200.00"); !reloaded.ActualBudget.Equal(want) {
		t.Fatalf("budget after re-approve = %s, want %s", reloaded.ActualBudget, want)
	}

	// Flipping a decided request is refused.
	if _, err := f.extras.Reject(ctx, req.ID); !errors.Is(err, ErrExtraNotMutable) {
		t.Fatalf("reject after approve err = %v, want ErrExtraNotMutable", err)
	}
}

func TestRejectExtra_ExcludedFromBudgetAndParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)

	req, err := f.extras.Request(ctx, a.ID, RequestExtraInput{ServiceID: &f.extraSvc.ID})
	if err != nil {
		t.Fatalf("request extra: %v", err)
	}
	if _, err := f.extras.Reject(ctx, req.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if got := f.statusOf(t, a.ID); got != domain.StatusInRepair {
		t.Fatalf("order status = %q, want %q", got, domain.StatusInRepair)
	}
	reloaded, err := f.engine.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reloaded.ActualBudget.Equal(f.service.LaborCost) {
		t.Fatalf("actual budget = %s, want %s", reloaded.ActualBudget, f.service.LaborCost)
	}

	_, err = f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 1, ExtraServiceID: &req.ID})
	if !errors.Is(err, ErrExtraNotMutable) {
		t.Fatalf("part on rejected extra err = %v, want ErrExtraNotMutable", err)
	}
}

func TestCancel_PendingOrder(t *testing.T) {
	f := newFixture(t)
	a := f.mustCreate(t)

	canceled, err := f.engine.Cancel(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status.Name != domain.StatusCanceled {
		t.Fatalf("status = %q, want %q", canceled.Status.Name, domain.StatusCanceled)
	}
	want := fmt.Sprintf("Ordem de serviço :%s cancelada", a.ID)
	comments, err := f.engine.Comments(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if last := comments[len(comments)-1].Text; last != want {
		t.Fatalf("last comment = %q, want %q", last, want)
	}
}

func TestCancel_RefusedWithConsumedParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	if _, err := f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add part: %v", err)
	}

	if _, err := f.engine.Cancel(ctx, a.ID); !errors.Is(err, ErrCancelWithParts) {
		t.Fatalf("err = %v, want ErrCancelWithParts", err)
	}
	if got := f.statusOf(t, a.ID); got != domain.StatusInRepair {
		t.Fatalf("status = %q, want unchanged %q", got, domain.StatusInRepair)
	}
}

func TestCancel_RefusedAwaitingApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	if _, err := f.extras.Request(ctx, a.ID, RequestExtraInput{Name: "Polimento"}); err != nil {
		t.Fatalf("request extra: %v", err)
	}

	if _, err := f.engine.Cancel(ctx, a.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}
}

func TestFinalize_NoOpOnceWaitingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)

	if _, err := f.engine.Finalize(ctx, a.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	comments := f.commentCount(t, a.ID)

	again, err := f.engine.Finalize(ctx, a.ID)
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if again.Status.Name != domain.StatusWaitingPayment {
		t.Fatalf("status = %q, want %q", again.Status.Name, domain.StatusWaitingPayment)
	}
	if got := f.commentCount(t, a.ID); got != comments {
		t.Fatalf("comments = %d, want unchanged %d", got, comments)
	}
}

func TestUpdate_RefusedAfterFinalize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	if _, err := f.engine.Finalize(ctx, a.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	desc := "nota tardia"
	if _, err := f.engine.Update(ctx, a.ID, UpdateAppointmentInput{Description: &desc}); !errors.Is(err, ErrIllegalMutation) {
		t.Fatalf("update err = %v, want ErrIllegalMutation", err)
	}
	if _, err := f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 1}); !errors.Is(err, ErrIllegalMutation) {
		t.Fatalf("add part err = %v, want ErrIllegalMutation", err)
	}
}

func TestConfirmPayment_IssuesInvoiceAndFinalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	if _, err := f.engine.Finalize(ctx, a.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	inv, err := f.invoices.ConfirmPayment(ctx, ConfirmPaymentInput{
		AppointmentID:   a.ID,
		PaymentIntentID: "pi_test_001",
		Amount:          decimal.RequireFromString("147.60"),
	})
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if inv.InvoiceNumber != "INV-2026-000001" {
		t.Fatalf("invoice number = %q, want INV-2026-000001", inv.InvoiceNumber)
	}
	// 120 subtotal, 23% tax
	if !inv.Subtotal.Equal(decimal.RequireFromString("120.00")) {
		t.Fatalf("subtotal = %s, want 120.00", inv.Subtotal)
	}
	if !inv.Tax.Equal(decimal.RequireFromString("27.60")) {
		t.Fatalf("tax = %s, want 27.60", inv.Tax)
	}
	if !inv.Total.Equal(decimal.RequireFromString("147.60")) {
		t.Fatalf("total = %s, want 147.60", inv.Total)
	}
	if inv.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("payment status = %q, want paid", inv.PaymentStatus)
	}
	if inv.PaidAt == nil || !inv.PaidAt.Equal(f.clock.t) {
		t.Fatalf("paid_at = %v, want clock time %v", inv.PaidAt, f.clock.t)
	}
	if inv.CustomerName != f.customer.Name || inv.CustomerEmail != f.customer.Email {
		t.Fatalf("customer snapshot = %q/%q", inv.CustomerName, inv.CustomerEmail)
	}
	if got := f.statusOf(t, a.ID); got != domain.StatusFinalized {
		t.Fatalf("order status = %q, want %q", got, domain.StatusFinalized)
	}

	var found bool
	for _, ev := range f.pub.events {
		if ev.Kind == outbox.KindPaymentReceived {
			found = true
		}
	}
	if !found {
		t.Fatalf("events = %v, want a PaymentReceived", f.pub.kinds())
	}
}

func TestConfirmPayment_ReplayReturnsExistingInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	if _, err := f.engine.Finalize(ctx, a.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	in := ConfirmPaymentInput{AppointmentID: a.ID, PaymentIntentID: "pi_test_002", Amount: decimal.RequireFromString("147.60")}
	first, err := f.invoices.ConfirmPayment(ctx, in)
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := f.invoices.ConfirmPayment(ctx, in)
	if err != nil {
		t.Fatalf("replay confirm: %v", err)
	}
	if second.ID != first.ID || second.InvoiceNumber != first.InvoiceNumber {
		t.Fatalf("replay returned a different invoice: %q vs %q", second.InvoiceNumber, first.InvoiceNumber)
	}

	var count int64
	if err := f.db.Model(&domain.Invoice{}).Where("appointment_id = ?", a.ID).Count(&count).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 1 {
		t.Fatalf("invoices = %d, want 1", count)
	}
}

func TestConfirmPayment_AmountAboveTotalRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)
	f.mustStart(t, a.ID)
	if _, err := f.engine.Finalize(ctx, a.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err := f.invoices.ConfirmPayment(ctx, ConfirmPaymentInput{
		AppointmentID: a.ID,
		Amount:        decimal.RequireFromString("147.61"),
	})
	if !errors.Is(err, ErrAmountExceedsTotal) {
		t.Fatalf("err = %v, want ErrAmountExceedsTotal", err)
	}
	if got := f.statusOf(t, a.ID); got != domain.StatusWaitingPayment {
		t.Fatalf("status = %q, want unchanged %q", got, domain.StatusWaitingPayment)
	}
}

func TestConfirmPayment_RequiresWaitingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.mustCreate(t)
	_, err := f.invoices.ConfirmPayment(ctx, ConfirmPaymentInput{AppointmentID: pending.ID, Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("pending err = %v, want ErrIllegalTransition", err)
	}

	canceled := f.mustCreate(t)
	if _, err := f.engine.Cancel(ctx, canceled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = f.invoices.ConfirmPayment(ctx, ConfirmPaymentInput{AppointmentID: canceled.ID, Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, ErrIllegalMutation) {
		t.Fatalf("canceled err = %v, want ErrIllegalMutation", err)
	}
}

func TestLifecycle_FullRepairFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t)

	f.mustStart(t, a.ID)
	f.clock.advance(30 * time.Minute)

	if _, err := f.parts.AddPart(ctx, a.ID, AddPartInput{ProductID: f.product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add part: %v", err)
	}

	req, err := f.extras.Request(ctx, a.ID, RequestExtraInput{ServiceID: &f.extraSvc.ID, RequestedBy: "recepção"})
	if err != nil {
		t.Fatalf("request extra: %v", err)
	}
	if got := f.statusOf(t, a.ID); got != domain.StatusAwaitingApproval {
		t.Fatalf("status = %q, want %q", got, domain.StatusAwaitingApproval)
	}
	if _, err := f.extras.Approve(ctx, req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	f.clock.advance(15 * time.Minute)
	done, err := f.engine.Finalize(ctx, a.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if done.TotalWorkedSeconds != 45*60 {
		t.Fatalf("worked = %d, want %d", done.TotalWorkedSeconds, 45*60)
	}
	// 120 + 2 x 24.90 + 80
	if want := decimal.RequireFromString("249.80"); !done.ActualBudget.Equal(want) {
		t.Fatalf("actual budget = %s, want %s", done.ActualBudget, want)
	}

	inv, err := f.invoices.ConfirmPayment(ctx, ConfirmPaymentInput{
		AppointmentID:   a.ID,
		PaymentIntentID: "pi_full_flow",
		Amount:          decimal.RequireFromString("307.25"),
	})
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if !inv.Subtotal.Equal(decimal.RequireFromString("249.80")) {
		t.Fatalf("subtotal = %s, want 249.80", inv.Subtotal)
	}
	if !inv.Tax.Equal(decimal.RequireFromString("57.45")) {
		t.Fatalf("tax = %s, want 57.45", inv.Tax)
	}
	if !inv.Total.Equal(decimal.RequireFromString("307.25")) {
		t.Fatalf("total = %s, want 307.25", inv.Total)
	}
	// labor + part for the base block, labor for the extra
	if len(inv.LineItems) != 3 {
		t.Fatalf("line items = %d, want 3", len(inv.LineItems))
	}
	if inv.LineItems[0].Kind != "labor" || inv.LineItems[1].Kind != "part" || inv.LineItems[2].Kind != "labor" {
		t.Fatalf("line kinds = %s/%s/%s", inv.LineItems[0].Kind, inv.LineItems[1].Kind, inv.LineItems[2].Kind)
	}
	if got := f.statusOf(t, a.ID); got != domain.StatusFinalized {
		t.Fatalf("final status = %q, want %q", got, domain.StatusFinalized)
	}
}
