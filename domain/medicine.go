package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MedicineRow is one batch of a medicine as held in the inventory table.
// Rows are identified by (name, supplier, batch number); positional row
// indices stay inside the store layer and never reach the order protocol.
type MedicineRow struct {
	Name         string          `db:"name" json:"name"`
	Supplier     string          `db:"supplier" json:"supplier"`
	Stock        int64           `db:"stock" json:"stock"`
	ExpiryDate   time.Time       `db:"expiry_date" json:"expiry_date"`
	PricePerUnit decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	ReorderLevel int64           `db:"reorder_level" json:"reorder_level"`
	BatchNumber  string          `db:"batch_number" json:"batch_number"`
}

// RowKey is the stable composite identity of a MedicineRow.
type RowKey struct {
	Name        string `json:"name"`
	Supplier    string `json:"supplier"`
	BatchNumber string `json:"batch_number"`
}

// Key returns the composite identity of the row.
func (m MedicineRow) Key() RowKey {
	return RowKey{Name: m.Name, Supplier: m.Supplier, BatchNumber: m.BatchNumber}
}
