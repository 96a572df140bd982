package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pharmstock/m/domain"
	"pharmstock/m/internal/store"
)

var (
	// ErrNotFound means no catalog row matches a (medicine, supplier) pair.
	ErrNotFound = errors.New("medicine not found for supplier")
	// ErrAmbiguousMedicine means a (medicine, supplier) pair matches more
	// than one row that cannot be told apart by batch number.
	ErrAmbiguousMedicine = errors.New("medicine matches more than one identical row")
)

// Catalog is the in-memory working set of medicine rows for the session.
// It is loaded wholesale from the store, mutated in place, and wholesale
// rewritten back; callers thread the instance explicitly.
type Catalog struct {
	rows []domain.MedicineRow
}

// New wraps an existing row slice.
func New(rows []domain.MedicineRow) *Catalog {
	return &Catalog{rows: rows}
}

// Load reads the full table from the store. On failure it returns an empty,
// still-editable catalog together with the error; the session continues.
func Load(st store.InventoryStore) (*Catalog, error) {
	rows, err := st.LoadAll()
	if err != nil {
		return &Catalog{}, err
	}
	return &Catalog{rows: rows}, nil
}

// Rows returns a copy of the catalog in storage order.
func (c *Catalog) Rows() []domain.MedicineRow {
	return append([]domain.MedicineRow(nil), c.rows...)
}

// Len reports the number of rows.
func (c *Catalog) Len() int {
	return len(c.rows)
}

// Replace swaps in a new row set, e.g. after a reload from the store.
func (c *Catalog) Replace(rows []domain.MedicineRow) {
	c.rows = rows
}

// Filter returns rows whose name contains term (case-insensitive) and whose
// supplier equals supplier. Either filter may be empty; with both empty the
// full catalog comes back unchanged in order and content. No match is an
// empty result, not an error.
func (c *Catalog) Filter(term, supplier string) []domain.MedicineRow {
	term = strings.ToLower(strings.TrimSpace(term))
	matched := make([]domain.MedicineRow, 0, len(c.rows))
	for _, row := range c.rows {
		if term != "" && !strings.Contains(strings.ToLower(row.Name), term) {
			continue
		}
		if supplier != "" && row.Supplier != supplier {
			continue
		}
		matched = append(matched, row)
	}
	return matched
}

// ReorderAlerts returns rows whose stock has fallen to or below their
// reorder level. Pure query.
func (c *Catalog) ReorderAlerts() []domain.MedicineRow {
	var alerts []domain.MedicineRow
	for _, row := range c.rows {
		if row.Stock <= row.ReorderLevel {
			alerts = append(alerts, row)
		}
	}
	return alerts
}

// Suppliers returns the distinct supplier names, sorted.
func (c *Catalog) Suppliers() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range c.rows {
		if _, ok := seen[row.Supplier]; ok {
			continue
		}
		seen[row.Supplier] = struct{}{}
		names = append(names, row.Supplier)
	}
	sort.Strings(names)
	return names
}

// SupplierMedicines returns the supplier's rows sorted by ascending expiry
// date, so near-expiry stock is offered first.
func (c *Catalog) SupplierMedicines(supplier string) []domain.MedicineRow {
	rows := c.Filter("", supplier)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ExpiryDate.Before(rows[j].ExpiryDate)
	})
	return rows
}

// Resolve finds the single row an order line should draw from. When the
// supplier carries several batches of the medicine, the earliest-expiring
// batch wins; rows that cannot be told apart even by batch number are a
// data-integrity fault.
func (c *Catalog) Resolve(name, supplier string) (domain.MedicineRow, error) {
	var matches []domain.MedicineRow
	for _, row := range c.rows {
		if strings.EqualFold(row.Name, name) && row.Supplier == supplier {
			matches = append(matches, row)
		}
	}
	if len(matches) == 0 {
		return domain.MedicineRow{}, fmt.Errorf("%q from %q: %w", name, supplier, ErrNotFound)
	}
	batches := make(map[string]int)
	for _, m := range matches {
		batches[m.BatchNumber]++
		if batches[m.BatchNumber] > 1 {
			return domain.MedicineRow{}, fmt.Errorf("%q from %q batch %q: %w", name, supplier, m.BatchNumber, ErrAmbiguousMedicine)
		}
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.ExpiryDate.Before(best.ExpiryDate) {
			best = m
		}
	}
	return best, nil
}

// StockOf returns the current stock of the row with the given key.
func (c *Catalog) StockOf(key domain.RowKey) (int64, bool) {
	for _, row := range c.rows {
		if row.Key() == key {
			return row.Stock, true
		}
	}
	return 0, false
}

// UpdateRow overwrites stock and expiry on every row matching key and
// returns the match count. Zero matches is a no-op the caller can report; a
// key shared by several rows updates them all.
func (c *Catalog) UpdateRow(key domain.RowKey, newStock int64, newExpiry time.Time) int {
	count := 0
	for i := range c.rows {
		if c.rows[i].Key() != key {
			continue
		}
		c.rows[i].Stock = newStock
		c.rows[i].ExpiryDate = newExpiry
		count++
	}
	return count
}

// AdjustStock adds delta to the stock of the row with the given key. It
// refuses to drive stock negative and reports whether a row changed.
func (c *Catalog) AdjustStock(key domain.RowKey, delta int64) bool {
	for i := range c.rows {
		if c.rows[i].Key() != key {
			continue
		}
		if c.rows[i].Stock+delta < 0 {
			return false
		}
		c.rows[i].Stock += delta
		return true
	}
	return false
}
