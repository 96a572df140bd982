package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmstock/m/domain"
)

// ErrStoreUnavailable is returned when the backing medium cannot be read.
// The caller degrades to an empty, editable catalog rather than halting.
var ErrStoreUnavailable = errors.New("inventory store unavailable")

// InventoryStore is the adapter over the tabular backing medium. The medium
// offers no partial-row update: SaveAll replaces the whole table.
type InventoryStore interface {
	LoadAll() ([]domain.MedicineRow, error)
	SaveAll(rows []domain.MedicineRow) error
}

// PaymentLedger is the append-only order history, kept separate from the
// live inventory table. EnsureSheet is idempotent; a freshly created ledger
// reads back as an empty sequence.
type PaymentLedger interface {
	EnsureSheet() error
	Append(entries []domain.PaymentLedgerEntry) error
	ReadAll() ([]domain.PaymentLedgerEntry, error)
}

const (
	inventorySheet = "Inventory"
	ledgerSheet    = "Payment History"

	dateLayout = "2006-01-02"
)

var inventoryHeader = []string{
	"Medicine Name", "Supplier Name", "Stock", "Expiry Date",
	"Price per Unit", "Reorder Level", "Batch Number",
}

var ledgerHeader = []string{
	"MedicineName", "Quantity", "TotalPrice", "SupplierName",
	"PaymentMethod", "PaymentReference", "Timestamp",
}

func encodeRow(m domain.MedicineRow) []string {
	return []string{
		m.Name,
		m.Supplier,
		strconv.FormatInt(m.Stock, 10),
		m.ExpiryDate.Format(dateLayout),
		m.PricePerUnit.String(),
		strconv.FormatInt(m.ReorderLevel, 10),
		m.BatchNumber,
	}
}

// padCells extends a row to width with empty cells. Spreadsheet reads drop
// trailing empty cells, so a row with an empty last column comes back short.
func padCells(cells []string, width int) []string {
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells
}

func decodeRow(cells []string) (domain.MedicineRow, error) {
	cells = padCells(cells, len(inventoryHeader))
	stock, err := strconv.ParseInt(strings.TrimSpace(cells[2]), 10, 64)
	if err != nil {
		return domain.MedicineRow{}, fmt.Errorf("bad stock %q: %w", cells[2], err)
	}
	expiry, err := time.Parse(dateLayout, strings.TrimSpace(cells[3]))
	if err != nil {
		return domain.MedicineRow{}, fmt.Errorf("bad expiry date %q: %w", cells[3], err)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(cells[4]))
	if err != nil {
		return domain.MedicineRow{}, fmt.Errorf("bad price %q: %w", cells[4], err)
	}
	reorder, err := strconv.ParseInt(strings.TrimSpace(cells[5]), 10, 64)
	if err != nil {
		return domain.MedicineRow{}, fmt.Errorf("bad reorder level %q: %w", cells[5], err)
	}
	return domain.MedicineRow{
		Name:         strings.TrimSpace(cells[0]),
		Supplier:     strings.TrimSpace(cells[1]),
		Stock:        stock,
		ExpiryDate:   expiry,
		PricePerUnit: price,
		ReorderLevel: reorder,
		BatchNumber:  strings.TrimSpace(cells[6]),
	}, nil
}

func encodeEntry(e domain.PaymentLedgerEntry) []string {
	return []string{
		e.MedicineName,
		strconv.FormatInt(e.Quantity, 10),
		e.TotalPrice.String(),
		e.SupplierName,
		string(e.PaymentMethod),
		e.PaymentReference,
		e.Timestamp.Format(time.RFC3339),
	}
}

func decodeEntry(cells []string) (domain.PaymentLedgerEntry, error) {
	cells = padCells(cells, len(ledgerHeader))
	qty, err := strconv.ParseInt(strings.TrimSpace(cells[1]), 10, 64)
	if err != nil {
		return domain.PaymentLedgerEntry{}, fmt.Errorf("bad quantity %q: %w", cells[1], err)
	}
	total, err := decimal.NewFromString(strings.TrimSpace(cells[2]))
	if err != nil {
		return domain.PaymentLedgerEntry{}, fmt.Errorf("bad total %q: %w", cells[2], err)
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(cells[6]))
	if err != nil {
		return domain.PaymentLedgerEntry{}, fmt.Errorf("bad timestamp %q: %w", cells[6], err)
	}
	return domain.PaymentLedgerEntry{
		MedicineName:     strings.TrimSpace(cells[0]),
		Quantity:         qty,
		TotalPrice:       total,
		SupplierName:     strings.TrimSpace(cells[3]),
		PaymentMethod:    domain.PaymentMethod(strings.TrimSpace(cells[4])),
		PaymentReference: strings.TrimSpace(cells[5]),
		Timestamp:        ts,
	}, nil
}
