// Package budget computes the discriminated money breakdown of an appointment:
// labor plus consumed parts for the base service, and the same per approved
// extra-service request. It is a pure function over persisted state, which is
// what makes extra approval idempotent: the engine always recomputes
// actual_budget from scratch instead of accumulating deltas.
//
// All amounts are decimals rounded to 2 fractional digits, half away from
// zero, at each line total and at the final total.
package budget

import (
	"github.com/shopspring/decimal"

	"github.com/oficinapro/workshop-backend/internal/domain"
)

// PartLine is one consumed-part row of a breakdown block.
type PartLine struct {
	Name       string          `json:"name"`
	PartNumber string          `json:"part_number"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Total      decimal.Decimal `json:"total"`
}

// ServiceBlock groups the labor cost and parts of one service (base or
// approved extra).
type ServiceBlock struct {
	Name      string          `json:"name"`
	LaborCost decimal.Decimal `json:"labor_cost"`
	Parts     []PartLine      `json:"parts"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Breakdown is the full discriminated total of an appointment. Only approved
// extras contribute; pending and rejected requests (and their parts) are
// excluded.
type Breakdown struct {
	BaseService   ServiceBlock    `json:"base_service"`
	ExtraServices []ServiceBlock  `json:"extra_services"`
	Total         decimal.Decimal `json:"total"`
}

// Compute builds the breakdown for an appointment from its base catalog
// service, its extra-service requests and its consumed-part snapshots.
// Parts with a nil ExtraServiceID belong to the base service; the rest are
// attributed to their request and only counted when that request is approved.
func Compute(base domain.Service, extras []domain.ExtraService, parts []domain.ConsumedPart) Breakdown {
	baseParts := make([]domain.ConsumedPart, 0, len(parts))
	partsByExtra := make(map[string][]domain.ConsumedPart)
	for _, p := range parts {
		if p.ExtraServiceID == nil {
			baseParts = append(baseParts, p)
			continue
		}
		partsByExtra[*p.ExtraServiceID] = append(partsByExtra[*p.ExtraServiceID], p)
	}

	out := Breakdown{
		BaseService: buildBlock(base.Name, base.LaborCost, baseParts),
	}
	total := out.BaseService.Subtotal

	for _, e := range extras {
		if e.Status != domain.ExtraApproved {
			continue
		}
		block := buildBlock(e.Name, e.LaborCost, partsByExtra[e.ID])
		out.ExtraServices = append(out.ExtraServices, block)
		total = total.Add(block.Subtotal)
	}

	out.Total = total.Round(2)
	return out
}

// InvoiceLines flattens a breakdown into the typed rows persisted on an
// invoice, labor first within each block.
func (b Breakdown) InvoiceLines() []domain.InvoiceLine {
	out := make([]domain.InvoiceLine, 0, 1+len(b.BaseService.Parts))
	out = append(out, blockLines(b.BaseService)...)
	for _, e := range b.ExtraServices {
		out = append(out, blockLines(e)...)
	}
	return out
}

func blockLines(block ServiceBlock) []domain.InvoiceLine {
	lines := []domain.InvoiceLine{{
		Kind:        "labor",
		ServiceName: block.Name,
		Name:        block.Name,
		Quantity:    1,
		UnitPrice:   block.LaborCost,
		Total:       block.LaborCost,
	}}
	for _, p := range block.Parts {
		lines = append(lines, domain.InvoiceLine{
			Kind:        "part",
			ServiceName: block.Name,
			PartNumber:  p.PartNumber,
			Name:        p.Name,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			Total:       p.Total,
		})
	}
	return lines
}

func buildBlock(name string, labor decimal.Decimal, parts []domain.ConsumedPart) ServiceBlock {
	block := ServiceBlock{
		Name:      name,
		LaborCost: labor.Round(2),
		Parts:     make([]PartLine, 0, len(parts)),
	}
	subtotal := block.LaborCost
	for _, p := range parts {
		lineTotal := p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))).Round(2)
		block.Parts = append(block.Parts, PartLine{
			Name:       p.Name,
			PartNumber: p.PartNumber,
			Quantity:   p.Quantity,
			UnitPrice:  p.UnitPrice,
			Total:      lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	block.Subtotal = subtotal.Round(2)
	return block
}
