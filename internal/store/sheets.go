package store

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"pharmstock/m/domain"
)

// SheetsStore keeps the inventory in a Google Sheets spreadsheet. The medium
// has no row-patch primitive worth relying on across sessions, so SaveAll is
// a full clear-and-rewrite of the inventory sheet, mirroring the file
// variant. The payment history is a second sheet of the same spreadsheet.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsStore connects to the spreadsheet using a service-account
// credentials file.
func NewSheetsStore(spreadsheetID, credentialsFile string) (*SheetsStore, error) {
	svc, err := sheets.NewService(context.Background(),
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("connect to sheets api: %w", err)
	}
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// LoadAll reads the full inventory sheet.
func (s *SheetsStore) LoadAll() ([]domain.MedicineRow, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(inventorySheet)).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrStoreUnavailable, inventorySheet, err)
	}
	var rows []domain.MedicineRow
	for i, raw := range resp.Values {
		if i == 0 {
			continue // header
		}
		row, err := decodeRow(cellsToStrings(raw))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", inventorySheet, i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SaveAll clears the inventory sheet and rewrites every cell.
func (s *SheetsStore) SaveAll(rows []domain.MedicineRow) error {
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, quoteSheet(inventorySheet), &sheets.ClearValuesRequest{}).Do(); err != nil {
		return fmt.Errorf("clear %q: %w", inventorySheet, err)
	}
	values := [][]interface{}{stringsToCells(inventoryHeader)}
	for _, row := range rows {
		values = append(values, stringsToCells(encodeRow(row)))
	}
	vr := &sheets.ValueRange{Values: values}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, quoteSheet(inventorySheet)+"!A1", vr).
		ValueInputOption("RAW").Do(); err != nil {
		return fmt.Errorf("rewrite %q: %w", inventorySheet, err)
	}
	return nil
}

// SheetsLedger is the lazily created "Payment History" sheet of the same
// spreadsheet.
type SheetsLedger struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsLedger returns the ledger for the given spreadsheet, sharing the
// store's credentials.
func NewSheetsLedger(st *SheetsStore) *SheetsLedger {
	return &SheetsLedger{svc: st.svc, spreadsheetID: st.spreadsheetID}
}

// EnsureSheet adds the ledger sheet with its header row if the spreadsheet
// does not have one yet.
func (l *SheetsLedger) EnsureSheet() error {
	meta, err := l.svc.Spreadsheets.Get(l.spreadsheetID).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == ledgerSheet {
			return nil
		}
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: ledgerSheet},
			},
		}},
	}
	if _, err := l.svc.Spreadsheets.BatchUpdate(l.spreadsheetID, req).Do(); err != nil {
		return fmt.Errorf("create %q: %w", ledgerSheet, err)
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(ledgerHeader)}}
	if _, err := l.svc.Spreadsheets.Values.Update(l.spreadsheetID, quoteSheet(ledgerSheet)+"!A1", vr).
		ValueInputOption("RAW").Do(); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	return nil
}

// Append adds all entries in a single batched append, so an order never
// lands half-written in the history.
func (l *SheetsLedger) Append(entries []domain.PaymentLedgerEntry) error {
	values := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		values = append(values, stringsToCells(encodeEntry(e)))
	}
	vr := &sheets.ValueRange{Values: values}
	if _, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, quoteSheet(ledgerSheet)+"!A1", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Do(); err != nil {
		return fmt.Errorf("append to %q: %w", ledgerSheet, err)
	}
	return nil
}

// ReadAll returns the full history, creating the sheet first if needed so a
// fresh spreadsheet reads as empty.
func (l *SheetsLedger) ReadAll() ([]domain.PaymentLedgerEntry, error) {
	if err := l.EnsureSheet(); err != nil {
		return nil, err
	}
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, quoteSheet(ledgerSheet)).Do()
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", ledgerSheet, err)
	}
	var entries []domain.PaymentLedgerEntry
	for i, raw := range resp.Values {
		if i == 0 {
			continue // header
		}
		e, err := decodeEntry(cellsToStrings(raw))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ledgerSheet, i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func quoteSheet(name string) string {
	return "'" + name + "'"
}

func cellsToStrings(raw []interface{}) []string {
	cells := make([]string, len(raw))
	for i, v := range raw {
		cells[i] = fmt.Sprint(v)
	}
	return cells
}

func stringsToCells(cells []string) []interface{} {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return values
}
