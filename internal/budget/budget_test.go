package budget

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

func TestCompute_BaseServiceWithParts(t *testing.T) {
	base := domain.Service{Name: "Brake service", LaborCost: dec("120.00")}
	parts := []domain.ConsumedPart{
		{Name: "Brake pad set", PartNumber: "BRK-PAD-008", Quantity: 2, UnitPrice: dec("24.90")},
	}

	b := Compute(base, nil, parts)

	if got, want := b.BaseService.Subtotal.String(), "169.8"; got != want {
		t.Fatalf("base subtotal = %s, want %s", got, want)
	}
	if got, want := b.Total.String(), "169.8"; got != want {
		t.Fatalf("total = %s, want %s", got, want)
	}
	if len(b.BaseService.Parts) != 1 {
		t.Fatalf("base parts = %d, want 1", len(b.BaseService.Parts))
	}
	if got, want := b.BaseService.Parts[0].Total.String(), "49.8"; got != want {
		t.Fatalf("part line total = %s, want %s", got, want)
	}
}

func TestCompute_ApprovedExtraAddsBlock(t *testing.T) {
	base := domain.Service{Name: "Brake service", LaborCost: dec("120.00")}
	extras := []domain.ExtraService{
		{ID: "e1", Name: "Wheel alignment", LaborCost: dec("80.00"), Status: domain.ExtraApproved},
	}
	parts := []domain.ConsumedPart{
		{Name: "Brake pad set", PartNumber: "BRK-PAD-008", Quantity: 2, UnitPrice: dec("24.90")},
	}

	b := Compute(base, extras, parts)

	if len(b.ExtraServices) != 1 {
		t.Fatalf("extra blocks = %d, want 1", len(b.ExtraServices))
	}
	if got, want := b.ExtraServices[0].Subtotal.String(), "80"; got != want {
		t.Fatalf("extra subtotal = %s, want %s", got, want)
	}
	if got, want := b.Total.String(), "249.8"; got != want {
		t.Fatalf("total = %s, want %s", got, want)
	}
}

func TestCompute_PendingAndRejectedExtrasExcluded(t *testing.T) {
	base := domain.Service{Name: "Revision", LaborCost: dec("60.00")}
	extras := []domain.ExtraService{
		{ID: "e1", Name: "Pending thing", LaborCost: dec("500.00"), Status: domain.ExtraPending},
		{ID: "e2", Name: "Rejected thing", LaborCost: dec("500.00"), Status: domain.ExtraRejected},
	}
	// A part attributed to the rejected extra must not count either.
	parts := []domain.ConsumedPart{
		{Name: "Filter", PartNumber: "FLT-1", Quantity: 1, UnitPrice: dec("9.99"), ExtraServiceID: strPtr("e2")},
	}

	b := Compute(base, extras, parts)

	if len(b.ExtraServices) != 0 {
		t.Fatalf("extra blocks = %d, want 0", len(b.ExtraServices))
	}
	if got, want := b.Total.String(), "60"; got != want {
		t.Fatalf("total = %s, want %s", got, want)
	}
}

func TestCompute_PartsGroupedByExtra(t *testing.T) {
	base := domain.Service{Name: "Base", LaborCost: dec("10.00")}
	extras := []domain.ExtraService{
		{ID: "e1", Name: "Extra", LaborCost: dec("20.00"), Status: domain.ExtraApproved},
	}
	parts := []domain.ConsumedPart{
		{Name: "Base part", PartNumber: "B-1", Quantity: 1, UnitPrice: dec("5.00")},
		{Name: "Extra part", PartNumber: "E-1", Quantity: 3, UnitPrice: dec("2.50"), ExtraServiceID: strPtr("e1")},
	}

	b := Compute(base, extras, parts)

	if got, want := b.BaseService.Subtotal.String(), "15"; got != want {
		t.Fatalf("base subtotal = %s, want %s", got, want)
	}
	if got, want := b.ExtraServices[0].Subtotal.String(), "27.5"; got != want {
		t.Fatalf("extra subtotal = %s, want %s", got, want)
	}
	if got, want := b.Total.String(), "42.5"; got != want {
		t.Fatalf("total = %s, want %s", got, want)
	}
}

func TestCompute_RoundsHalfAwayFromZero(t *testing.T) {
	base := domain.Service{Name: "Base", LaborCost: dec("0.00")}
	parts := []domain.ConsumedPart{
		// 3 x 1.005 = 3.015 -> 3.02 at the line total
		{Name: "Washer", PartNumber: "W-1", Quantity: 3, UnitPrice: dec("1.005")},
	}

	b := Compute(base, nil, parts)

	if got, want := b.BaseService.Parts[0].Total.String(), "3.02"; got != want {
		t.Fatalf("line total = %s, want %s", got, want)
	}
}

func TestInvoiceLines_LaborFirstPerBlock(t *testing.T) {
	base := domain.Service{Name: "Base", LaborCost: dec("10.00")}
	extras := []domain.ExtraService{
		{ID: "e1", Name: "Extra", LaborCost: dec("20.00"), Status: domain.ExtraApproved},
	}
	parts := []domain.ConsumedPart{
		{Name: "Base part", PartNumber: "B-1", Quantity: 1, UnitPrice: dec("5.00")},
		{Name: "Extra part", PartNumber: "E-1", Quantity: 1, UnitPrice: dec("2.50"), ExtraServiceID: strPtr("e1")},
	}

	lines := Compute(base, extras, parts).InvoiceLines()

	kinds := make([]string, 0, len(lines))
	for _, l := range lines {
		kinds = append(kinds, l.Kind)
	}
	want := []string{"labor", "part", "labor", "part"}
	if len(kinds) != len(want) {
		t.Fatalf("lines = %d, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("line %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}
}
