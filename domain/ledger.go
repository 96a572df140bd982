package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentLedgerEntry is one row of the append-only payment history: one
// entry per line item of a confirmed order. Entries are never mutated.
type PaymentLedgerEntry struct {
	MedicineName     string          `db:"medicine_name" json:"medicine_name"`
	Quantity         int64           `db:"quantity" json:"quantity"`
	TotalPrice       decimal.Decimal `db:"total_price" json:"total_price"`
	SupplierName     string          `db:"supplier_name" json:"supplier_name"`
	PaymentMethod    PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference,omitempty"`
	Timestamp        time.Time       `db:"timestamp" json:"timestamp"`
}
