package order

import (
	"errors"
	"fmt"

	"pharmstock/m/domain"
	"pharmstock/m/internal/catalog"
	"pharmstock/m/internal/store"
)

var (
	// ErrStaleStock means recorded stock changed between build and commit,
	// so the order is no longer safely fulfillable. Nothing was mutated.
	ErrStaleStock = errors.New("stock changed since order was built")
	// ErrPersistFailed means the backing store rejected the rewrite. The
	// in-memory decrements were rolled back.
	ErrPersistFailed = errors.New("inventory write failed")
	// ErrLedgerWriteFailed means the inventory commit succeeded but the
	// audit entries could not be appended. The order stands.
	ErrLedgerWriteFailed = errors.New("payment ledger write failed")
)

// Committer applies a built order: decrement catalog stock, persist the full
// table, then append the payment history. The backing medium has no native
// transaction, so the commit is made effectively atomic by re-validating
// first and rolling back in-memory state when the rewrite fails.
type Committer struct {
	Catalog *catalog.Catalog
	Store   store.InventoryStore
	Ledger  store.PaymentLedger
}

// Commit runs the commit protocol for a validated order.
//
// Failure modes: ErrStaleStock and ErrPersistFailed abort the order and
// leave the catalog exactly as it was; ErrLedgerWriteFailed reports a
// degraded audit trail for an order that did commit.
func (cm *Committer) Commit(ord domain.Order) error {
	if len(ord.LineItems) == 0 {
		return nil
	}

	// Collapse duplicate picks of the same batch before checking, so two
	// lines against one row cannot pass individually and overdraw together.
	wanted := make(map[domain.RowKey]int64)
	keys := make([]domain.RowKey, 0, len(ord.LineItems))
	for _, line := range ord.LineItems {
		key := domain.RowKey{Name: line.MedicineName, Supplier: ord.Supplier, BatchNumber: line.BatchNumber}
		if _, seen := wanted[key]; !seen {
			keys = append(keys, key)
		}
		wanted[key] += line.Quantity
	}

	// Stock may have drifted since Build in another session; the store is
	// the source of truth and the commit fails closed.
	for _, key := range keys {
		stock, ok := cm.Catalog.StockOf(key)
		if !ok || stock < wanted[key] {
			return fmt.Errorf("%s (batch %s): %w", key.Name, key.BatchNumber, ErrStaleStock)
		}
	}

	applied := make([]domain.RowKey, 0, len(keys))
	rollback := func() {
		for _, key := range applied {
			cm.Catalog.AdjustStock(key, wanted[key])
		}
	}

	for _, key := range keys {
		if !cm.Catalog.AdjustStock(key, -wanted[key]) {
			rollback()
			return fmt.Errorf("%s (batch %s): %w", key.Name, key.BatchNumber, ErrStaleStock)
		}
		applied = append(applied, key)
	}

	if err := cm.Store.SaveAll(cm.Catalog.Rows()); err != nil {
		rollback()
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	entries := make([]domain.PaymentLedgerEntry, 0, len(ord.LineItems))
	for _, line := range ord.LineItems {
		entries = append(entries, domain.PaymentLedgerEntry{
			MedicineName:     line.MedicineName,
			Quantity:         line.Quantity,
			TotalPrice:       line.TotalPrice,
			SupplierName:     ord.Supplier,
			PaymentMethod:    ord.PaymentMethod,
			PaymentReference: ord.PaymentReference,
			Timestamp:        ord.CreatedAt,
		})
	}
	if err := cm.Ledger.EnsureSheet(); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerWriteFailed, err)
	}
	if err := cm.Ledger.Append(entries); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerWriteFailed, err)
	}
	return nil
}
