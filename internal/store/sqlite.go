package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmstock/m/domain"
)

// SQLiteStore keeps the inventory in the local sqlite sidecar. The medium is
// transactional, but it honors the same whole-table contract as the
// spreadsheet backends: SaveAll deletes everything and reinserts, inside one
// transaction so a failed rewrite leaves the previous table intact.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore returns a store over the given database. The schema is
// created by the migrations package.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type inventoryRecord struct {
	Name         string `db:"name"`
	Supplier     string `db:"supplier"`
	Stock        int64  `db:"stock"`
	ExpiryDate   string `db:"expiry_date"`
	PricePerUnit string `db:"price_per_unit"`
	ReorderLevel int64  `db:"reorder_level"`
	BatchNumber  string `db:"batch_number"`
}

// LoadAll reads the inventory table in insertion order.
func (s *SQLiteStore) LoadAll() ([]domain.MedicineRow, error) {
	var records []inventoryRecord
	err := s.db.Select(&records, `SELECT name, supplier, stock, expiry_date, price_per_unit, reorder_level, batch_number FROM inventory ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var rows []domain.MedicineRow
	for i, rec := range records {
		expiry, err := time.Parse(dateLayout, rec.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("inventory row %d: bad expiry date %q: %w", i+1, rec.ExpiryDate, err)
		}
		price, err := decimal.NewFromString(rec.PricePerUnit)
		if err != nil {
			return nil, fmt.Errorf("inventory row %d: bad price %q: %w", i+1, rec.PricePerUnit, err)
		}
		rows = append(rows, domain.MedicineRow{
			Name:         rec.Name,
			Supplier:     rec.Supplier,
			Stock:        rec.Stock,
			ExpiryDate:   expiry,
			PricePerUnit: price,
			ReorderLevel: rec.ReorderLevel,
			BatchNumber:  rec.BatchNumber,
		})
	}
	return rows, nil
}

// SaveAll replaces the inventory table wholesale.
func (s *SQLiteStore) SaveAll(rows []domain.MedicineRow) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("start inventory rewrite: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM inventory`); err != nil {
		return fmt.Errorf("clear inventory: %w", err)
	}
	stmt, err := tx.Preparex(`INSERT INTO inventory (name, supplier, stock, expiry_date, price_per_unit, reorder_level, batch_number) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare inventory insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Name, row.Supplier, row.Stock,
			row.ExpiryDate.Format(dateLayout), row.PricePerUnit.String(),
			row.ReorderLevel, row.BatchNumber); err != nil {
			return fmt.Errorf("insert inventory row %s: %w", row.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inventory rewrite: %w", err)
	}
	return nil
}

// SQLiteLedger is the payment_history table of the same sidecar database.
type SQLiteLedger struct {
	db *sqlx.DB
}

// NewSQLiteLedger returns a ledger over the given database.
func NewSQLiteLedger(db *sqlx.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

// EnsureSheet creates the payment_history table if absent.
func (l *SQLiteLedger) EnsureSheet() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS payment_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        medicine_name TEXT NOT NULL,
        quantity INTEGER NOT NULL,
        total_price TEXT NOT NULL,
        supplier_name TEXT NOT NULL,
        payment_method TEXT NOT NULL,
        payment_reference TEXT,
        timestamp TEXT NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("create payment_history: %w", err)
	}
	return nil
}

// Append inserts the entries in order, all in one transaction.
func (l *SQLiteLedger) Append(entries []domain.PaymentLedgerEntry) error {
	tx, err := l.db.Beginx()
	if err != nil {
		return fmt.Errorf("start ledger append: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.Exec(`INSERT INTO payment_history (medicine_name, quantity, total_price, supplier_name, payment_method, payment_reference, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.MedicineName, e.Quantity, e.TotalPrice.String(), e.SupplierName,
			string(e.PaymentMethod), e.PaymentReference, e.Timestamp.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert ledger entry %s: %w", e.MedicineName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger append: %w", err)
	}
	return nil
}

type ledgerRecord struct {
	MedicineName     string `db:"medicine_name"`
	Quantity         int64  `db:"quantity"`
	TotalPrice       string `db:"total_price"`
	SupplierName     string `db:"supplier_name"`
	PaymentMethod    string `db:"payment_method"`
	PaymentReference string `db:"payment_reference"`
	Timestamp        string `db:"timestamp"`
}

// ReadAll returns the full history in insertion order.
func (l *SQLiteLedger) ReadAll() ([]domain.PaymentLedgerEntry, error) {
	if err := l.EnsureSheet(); err != nil {
		return nil, err
	}
	var records []ledgerRecord
	err := l.db.Select(&records, `SELECT medicine_name, quantity, total_price, supplier_name, payment_method, payment_reference, timestamp FROM payment_history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read payment_history: %w", err)
	}
	var entries []domain.PaymentLedgerEntry
	for i, rec := range records {
		total, err := decimal.NewFromString(rec.TotalPrice)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: bad total %q: %w", i+1, rec.TotalPrice, err)
		}
		ts, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: bad timestamp %q: %w", i+1, rec.Timestamp, err)
		}
		entries = append(entries, domain.PaymentLedgerEntry{
			MedicineName:     rec.MedicineName,
			Quantity:         rec.Quantity,
			TotalPrice:       total,
			SupplierName:     rec.SupplierName,
			PaymentMethod:    domain.PaymentMethod(rec.PaymentMethod),
			PaymentReference: rec.PaymentReference,
			Timestamp:        ts,
		})
	}
	return entries, nil
}
