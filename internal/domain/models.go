// Package domain defines the persistence models for the workshop backend:
// customers, vehicles, the service catalog, products (parts inventory),
// appointments (service orders), extra-service requests, consumed parts,
// order comments and invoices. These types are mapped with GORM and form
// the core data layer of the application.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Canonical appointment status names. Transitions are validated against these
// names; the statuses table maps them to stable numeric ids.
const (
	StatusPending          = "Pending"
	StatusInRepair         = "In Repair"
	StatusAwaitingApproval = "Awaiting Approval"
	StatusWaitingPayment   = "Waiting Payment"
	StatusFinalized        = "Finalized"
	StatusCanceled         = "Canceled"
)

// AllStatuses lists every canonical status, in seed order.
var AllStatuses = []string{
	StatusPending,
	StatusInRepair,
	StatusAwaitingApproval,
	StatusWaitingPayment,
	StatusFinalized,
	StatusCanceled,
}

// Extra-service request states.
const (
	ExtraPending  = "pending"
	ExtraApproved = "approved"
	ExtraRejected = "rejected"
)

// Invoice payment states.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// ServiceAreas is the fixed set of shop areas a catalog service belongs to.
var ServiceAreas = []string{"mecânica", "elétrica", "chapa e pintura", "pneus", "revisão"}

// Status is a catalog row mapping a canonical status name to a stable id.
// The table is seeded at migration time and cached in memory for the process
// lifetime (see services.StatusCatalog).
type Status struct {
	ID   uint   `json:"id"   gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(32);not null;uniqueIndex"`
}

// TableName returns the database table name for Status.
func (Status) TableName() string { return "statuses" }

// Customer is the owner of one or more vehicles.
type Customer struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string         `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone     string         `json:"phone"      gorm:"type:varchar(32)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// Vehicle belongs to a customer and is identified by its license plate.
type Vehicle struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	CustomerID string         `json:"customer_id" gorm:"type:char(36);not null;index"`
	Plate      string         `json:"plate"       gorm:"type:varchar(16);not null;uniqueIndex"`
	Make       string         `json:"make"        gorm:"type:varchar(64)"`
	Model      string         `json:"model"       gorm:"type:varchar(64)"`
	Year       int            `json:"year"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`

	Customer Customer `json:"-" gorm:"foreignKey:CustomerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vehicle.
func (Vehicle) TableName() string { return "vehicles" }

// Service is a catalog entry for work the shop offers. Price is the customer
// total; LaborCost is the labor component used by the budget breakdown.
type Service struct {
	ID              string          `json:"id"               gorm:"type:char(36);primaryKey"`
	Name            string          `json:"name"             gorm:"type:varchar(255);not null"`
	Description     string          `json:"description"      gorm:"type:text"`
	Price           decimal.Decimal `json:"price"            gorm:"type:decimal(12,2);not null"`
	LaborCost       decimal.Decimal `json:"labor_cost"       gorm:"type:decimal(12,2);not null"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null;default:60"`
	Area            string          `json:"area"             gorm:"type:varchar(32);not null;index"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Service.
func (Service) TableName() string { return "services" }

// Product is a stocked part. OnHandQuantity is written exclusively by the
// inventory ledger (conditional decrement / admin adjust); it never drops
// below zero.
type Product struct {
	ID              string          `json:"id"               gorm:"type:char(36);primaryKey"`
	PartNumber      string          `json:"part_number"      gorm:"type:varchar(64);not null;uniqueIndex"`
	Name            string          `json:"name"             gorm:"type:varchar(255);not null"`
	Category        string          `json:"category"         gorm:"type:varchar(64);index"`
	Brand           string          `json:"brand"            gorm:"type:varchar(64)"`
	OnHandQuantity  int             `json:"on_hand_quantity" gorm:"not null;default:0;check:on_hand_quantity >= 0"`
	ReserveQuantity int             `json:"reserve_quantity" gorm:"not null;default:0"`
	CostValue       decimal.Decimal `json:"cost_value"       gorm:"type:decimal(12,2);not null"`
	SaleValue       decimal.Decimal `json:"sale_value"       gorm:"type:decimal(12,2);not null"`
	MinimumStock    int             `json:"minimum_stock"    gorm:"not null;default:0"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Appointment is a service order: one base catalog service performed on a
// customer vehicle, extended by approved extra services and consumed parts.
//
// Work-clock fields:
//   - StartedAt: moment the current work segment began; nil while paused or
//     before the first start.
//   - TotalWorkedSeconds: accumulated whole seconds across finished segments;
//     monotonic non-decreasing.
//   - IsPaused / PausedAt: pause marker for the current cycle.
type Appointment struct {
	ID                 string          `json:"id"                   gorm:"type:char(36);primaryKey"`
	CustomerID         string          `json:"customer_id"          gorm:"type:char(36);not null;index"`
	VehicleID          string          `json:"vehicle_id"           gorm:"type:char(36);not null;index"`
	ServiceID          string          `json:"service_id"           gorm:"type:char(36);not null;index"`
	ScheduledAt        time.Time       `json:"scheduled_at"         gorm:"not null;index"`
	Description        string          `json:"description"          gorm:"type:text"`
	EstimatedBudget    decimal.Decimal `json:"estimated_budget"     gorm:"type:decimal(12,2);not null;default:0"`
	ActualBudget       decimal.Decimal `json:"actual_budget"        gorm:"type:decimal(12,2);not null;default:0"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	TotalWorkedSeconds int64           `json:"total_worked_seconds" gorm:"not null;default:0"`
	IsPaused           bool            `json:"is_paused"            gorm:"not null;default:false"`
	PausedAt           *time.Time      `json:"paused_at,omitempty"`
	StatusID           uint            `json:"-"                    gorm:"not null;index"`
	AssignedEmployee   *string         `json:"assigned_employee,omitempty" gorm:"type:varchar(64)"`
	ReminderSent       bool            `json:"reminder_sent"        gorm:"not null;default:false"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `json:"-"                    gorm:"index"`

	Status        Status         `json:"status"                   gorm:"foreignKey:StatusID;references:ID"`
	Customer      Customer       `json:"customer,omitempty"       gorm:"foreignKey:CustomerID;references:ID"`
	Vehicle       Vehicle        `json:"vehicle,omitempty"        gorm:"foreignKey:VehicleID;references:ID"`
	Service       Service        `json:"service,omitempty"        gorm:"foreignKey:ServiceID;references:ID"`
	ExtraServices []ExtraService `json:"extra_services,omitempty" gorm:"foreignKey:AppointmentID"`
	ConsumedParts []ConsumedPart `json:"consumed_parts,omitempty" gorm:"foreignKey:AppointmentID"`
	Comments      []OrderComment `json:"comments,omitempty"       gorm:"foreignKey:AppointmentID"`
}

// TableName returns the database table name for Appointment.
func (Appointment) TableName() string { return "appointments" }

// ExtraService is an additional service proposed while an appointment is in
// execution, subject to customer approval. Name, description, price, labor
// cost and duration are snapshots taken at request time; later catalog edits
// never mutate a request.
type ExtraService struct {
	ID              string          `json:"id"               gorm:"type:char(36);primaryKey"`
	AppointmentID   string          `json:"appointment_id"   gorm:"type:char(36);not null;index"`
	ServiceID       *string         `json:"service_id,omitempty" gorm:"type:char(36);index"`
	Name            string          `json:"name"             gorm:"type:varchar(255);not null"`
	Description     string          `json:"description"      gorm:"type:text"`
	Price           decimal.Decimal `json:"price"            gorm:"type:decimal(12,2);not null;default:0"`
	LaborCost       decimal.Decimal `json:"labor_cost"       gorm:"type:decimal(12,2);not null;default:0"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null;default:0"`
	Status          string          `json:"status"           gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','approved','rejected')"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Appointment Appointment `json:"-" gorm:"foreignKey:AppointmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ExtraService.
func (ExtraService) TableName() string { return "extra_services" }

// ConsumedPart is a per-appointment snapshot of a stocked part consumed by
// the base service (ExtraServiceID nil) or by an extra-service request.
// ProductID is nulled when the product is deleted; the snapshot columns keep
// the line meaningful for invoicing.
type ConsumedPart struct {
	ID             string          `json:"id"               gorm:"type:char(36);primaryKey"`
	AppointmentID  string          `json:"appointment_id"   gorm:"type:char(36);not null;index"`
	ExtraServiceID *string         `json:"extra_service_id,omitempty" gorm:"type:char(36);index"`
	ProductID      *string         `json:"product_id,omitempty" gorm:"type:char(36);index"`
	Name           string          `json:"name"             gorm:"type:varchar(255);not null"`
	PartNumber     string          `json:"part_number"      gorm:"type:varchar(64);not null"`
	Quantity       int             `json:"quantity"         gorm:"not null;check:quantity > 0"`
	UnitPrice      decimal.Decimal `json:"unit_price"       gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time       `json:"created_at"`

	Appointment Appointment `json:"-" gorm:"foreignKey:AppointmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ConsumedPart.
func (ConsumedPart) TableName() string { return "consumed_parts" }

// OrderComment is one line of the appointment audit trail. Every committed
// status transition writes exactly one comment.
type OrderComment struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	AppointmentID string    `json:"appointment_id" gorm:"type:char(36);not null;index:idx_order_comments,priority:1"`
	ServiceID     *string   `json:"service_id,omitempty" gorm:"type:char(36)"`
	Text          string    `json:"text"           gorm:"type:text;not null"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index:idx_order_comments,priority:2"`

	Appointment Appointment `json:"-" gorm:"foreignKey:AppointmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OrderComment.
func (OrderComment) TableName() string { return "order_comments" }

// InvoiceLine is one row of the persisted invoice breakdown. Lines are stored
// as a typed JSON column (see Invoice.LineItems); struct marshalling keeps the
// serialized field order deterministic.
type InvoiceLine struct {
	Kind        string          `json:"kind"` // "labor" or "part"
	ServiceName string          `json:"service_name"`
	PartNumber  string          `json:"part_number,omitempty"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice is the paid snapshot produced once payment is confirmed. Invoices
// are append-only after PaidAt is set.
type Invoice struct {
	ID              string          `json:"id"                gorm:"type:char(36);primaryKey"`
	AppointmentID   string          `json:"appointment_id"    gorm:"type:char(36);not null;uniqueIndex"`
	InvoiceNumber   string          `json:"invoice_number"    gorm:"type:varchar(32);not null;uniqueIndex"`
	Subtotal        decimal.Decimal `json:"subtotal"          gorm:"type:decimal(12,2);not null"`
	Tax             decimal.Decimal `json:"tax"               gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal `json:"total"             gorm:"type:decimal(12,2);not null"`
	Currency        string          `json:"currency"          gorm:"type:varchar(3);not null;default:'EUR'"`
	PaymentStatus   string          `json:"payment_status"    gorm:"type:varchar(16);not null;default:'pending';check:payment_status IN ('pending','paid','failed','refunded')"`
	CustomerName    string          `json:"customer_name"     gorm:"type:varchar(255)"`
	CustomerEmail   string          `json:"customer_email"    gorm:"type:varchar(255)"`
	LineItems       []InvoiceLine   `json:"line_items"        gorm:"serializer:json"`
	PaymentIntentID string          `json:"payment_intent_id" gorm:"type:varchar(128);index"`
	CreatedAt       time.Time       `json:"created_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`

	Appointment Appointment `json:"-" gorm:"foreignKey:AppointmentID;references:ID"`
}

// TableName returns the database table name for Invoice.
func (Invoice) TableName() string { return "invoices" }

// InvoiceSequence is the per-year counter backing invoice numbers
// (INV-YYYY-NNNNNN). Rows are incremented inside the issuing transaction, so
// numbers are monotonic per year; gaps may remain after rolled-back failures.
type InvoiceSequence struct {
	Year      int `gorm:"primaryKey"`
	LastValue int `gorm:"not null;default:0"`
}

// TableName returns the database table name for InvoiceSequence.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }
