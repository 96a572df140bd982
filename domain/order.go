package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod describes how a confirmed order was paid for. Gateway
// processing is not implemented; the value is recorded for the ledger only.
type PaymentMethod string

const (
	PaymentManual  PaymentMethod = "manual"
	PaymentGateway PaymentMethod = "gateway"
)

// Valid reports whether the payment method is one of the known values.
func (p PaymentMethod) Valid() bool {
	return p == PaymentManual || p == PaymentGateway
}

// LineItem is one (medicine, quantity) pick resolved against a specific
// catalog row. PricePerUnit is snapshotted at build time.
type LineItem struct {
	MedicineName string          `json:"medicine_name"`
	BatchNumber  string          `json:"batch_number"`
	Quantity     int64           `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// Order is a validated set of line items against a single supplier.
// It is created at confirm time and never mutated once logged.
type Order struct {
	Supplier         string          `json:"supplier"`
	LineItems        []LineItem      `json:"line_items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
