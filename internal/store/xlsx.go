package store

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"pharmstock/m/domain"
)

// XLSXStore keeps the inventory in a local spreadsheet workbook, the way the
// pharmacy's original Excel file worked: load the whole sheet, rewrite the
// whole sheet. The payment history lives on a second sheet of the same file.
type XLSXStore struct {
	path string
}

// NewXLSXStore returns a store backed by the workbook at path. The file is
// created on first SaveAll.
func NewXLSXStore(path string) *XLSXStore {
	return &XLSXStore{path: path}
}

// LoadAll reads every inventory row from the workbook.
func (s *XLSXStore) LoadAll() ([]domain.MedicineRow, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreUnavailable, s.path, err)
	}
	defer f.Close()

	raw, err := f.GetRows(inventorySheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrStoreUnavailable, inventorySheet, err)
	}

	var rows []domain.MedicineRow
	for i, cells := range raw {
		if i == 0 {
			continue // header
		}
		row, err := decodeRow(cells)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", inventorySheet, i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SaveAll replaces the inventory sheet wholesale. The workbook is rebuilt
// from scratch; existing payment-history rows are carried across untouched.
func (s *XLSXStore) SaveAll(rows []domain.MedicineRow) error {
	var ledgerRows [][]string
	if prev, err := excelize.OpenFile(s.path); err == nil {
		ledgerRows, _ = prev.GetRows(ledgerSheet)
		prev.Close()
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("open %s for rewrite: %w", s.path, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return fmt.Errorf("prepare inventory sheet: %w", err)
	}
	if err := writeStringRow(f, inventorySheet, 1, inventoryHeader); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeStringRow(f, inventorySheet, i+2, encodeRow(row)); err != nil {
			return err
		}
	}

	if len(ledgerRows) > 0 {
		if _, err := f.NewSheet(ledgerSheet); err != nil {
			return fmt.Errorf("restore ledger sheet: %w", err)
		}
		for i, cells := range ledgerRows {
			if err := writeStringRow(f, ledgerSheet, i+1, cells); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// XLSXLedger is the payment-history sheet of the same workbook.
type XLSXLedger struct {
	path string
}

// NewXLSXLedger returns a ledger stored on the "Payment History" sheet of
// the workbook at path.
func NewXLSXLedger(path string) *XLSXLedger {
	return &XLSXLedger{path: path}
}

// EnsureSheet creates the workbook and/or the ledger sheet with its header
// row if absent. Safe to call repeatedly.
func (l *XLSXLedger) EnsureSheet() error {
	f, err := excelize.OpenFile(l.path)
	if os.IsNotExist(err) {
		f = excelize.NewFile()
	} else if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(ledgerSheet); err == nil && idx >= 0 {
		return nil
	}
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return fmt.Errorf("create ledger sheet: %w", err)
	}
	if err := writeStringRow(f, ledgerSheet, 1, ledgerHeader); err != nil {
		return err
	}
	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return nil
}

// Append adds the entries below the existing rows in one save.
func (l *XLSXLedger) Append(entries []domain.PaymentLedgerEntry) error {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	existing, err := f.GetRows(ledgerSheet)
	if err != nil {
		return fmt.Errorf("read ledger sheet: %w", err)
	}
	next := len(existing) + 1
	for i, e := range entries {
		if err := writeStringRow(f, ledgerSheet, next+i, encodeEntry(e)); err != nil {
			return err
		}
	}
	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return nil
}

// ReadAll returns the full history. A missing workbook or sheet reads as an
// empty ledger, not an error.
func (l *XLSXLedger) ReadAll() ([]domain.PaymentLedgerEntry, error) {
	f, err := excelize.OpenFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	raw, err := f.GetRows(ledgerSheet)
	if err != nil {
		return nil, nil // sheet not created yet
	}
	var entries []domain.PaymentLedgerEntry
	for i, cells := range raw {
		if i == 0 {
			continue // header
		}
		e, err := decodeEntry(cells)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ledgerSheet, i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func writeStringRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}
