package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pharmstock/m/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func storeRows() []domain.MedicineRow {
	return []domain.MedicineRow{
		{Name: "Paracetamol", Supplier: "Acme", Stock: 100, ExpiryDate: day(2026, 12, 1), PricePerUnit: decimal.RequireFromString("2.50"), ReorderLevel: 15, BatchNumber: "B2"},
		{Name: "Ibuprofen", Supplier: "Zen Pharma", Stock: 20, ExpiryDate: day(2027, 3, 1), PricePerUnit: decimal.RequireFromString("1.20"), ReorderLevel: 10, BatchNumber: "B1"},
	}
}

func requireRowsEqual(t *testing.T, want, got []domain.MedicineRow) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Name, got[i].Name, "row %d", i)
		require.Equal(t, want[i].Supplier, got[i].Supplier, "row %d", i)
		require.Equal(t, want[i].Stock, got[i].Stock, "row %d", i)
		require.True(t, got[i].ExpiryDate.Equal(want[i].ExpiryDate), "row %d expiry: want %s got %s", i, want[i].ExpiryDate, got[i].ExpiryDate)
		require.True(t, got[i].PricePerUnit.Equal(want[i].PricePerUnit), "row %d price: want %s got %s", i, want[i].PricePerUnit, got[i].PricePerUnit)
		require.Equal(t, want[i].ReorderLevel, got[i].ReorderLevel, "row %d", i)
		require.Equal(t, want[i].BatchNumber, got[i].BatchNumber, "row %d", i)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	st := NewXLSXStore(path)

	rows := storeRows()
	require.NoError(t, st.SaveAll(rows))

	got, err := st.LoadAll()
	require.NoError(t, err)
	requireRowsEqual(t, rows, got)
}

func TestXLSXRoundTripEmptyBatchNumber(t *testing.T) {
	// Spreadsheet reads drop trailing empty cells, so a row with no batch
	// number comes back one cell short; it must still load.
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	st := NewXLSXStore(path)

	rows := []domain.MedicineRow{
		{Name: "Cetirizine", Supplier: "Zen Pharma", Stock: 80, ExpiryDate: day(2027, 1, 20), PricePerUnit: decimal.RequireFromString("0.75"), ReorderLevel: 20, BatchNumber: ""},
	}
	require.NoError(t, st.SaveAll(rows))

	got, err := st.LoadAll()
	require.NoError(t, err)
	requireRowsEqual(t, rows, got)
}

func TestDecodeRowPadsShortRows(t *testing.T) {
	row, err := decodeRow([]string{"Cetirizine", "Zen Pharma", "80", "2027-01-20", "0.75", "20"})
	require.NoError(t, err)
	require.Equal(t, "Cetirizine", row.Name)
	require.Equal(t, "", row.BatchNumber)
}

func TestXLSXLoadMissingFileIsStoreUnavailable(t *testing.T) {
	st := NewXLSXStore(filepath.Join(t.TempDir(), "nope.xlsx"))
	_, err := st.LoadAll()
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestXLSXLedgerLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	st := NewXLSXStore(path)
	require.NoError(t, st.SaveAll(storeRows()))

	ledger := NewXLSXLedger(path)

	// Fresh workbook has no ledger sheet yet: reads as empty.
	entries, err := ledger.ReadAll()
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, ledger.EnsureSheet())
	require.NoError(t, ledger.EnsureSheet()) // idempotent

	want := []domain.PaymentLedgerEntry{
		{MedicineName: "Paracetamol", Quantity: 10, TotalPrice: decimal.RequireFromString("25.00"), SupplierName: "Acme", PaymentMethod: domain.PaymentManual, Timestamp: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
		{MedicineName: "Ibuprofen", Quantity: 2, TotalPrice: decimal.RequireFromString("2.40"), SupplierName: "Acme", PaymentMethod: domain.PaymentGateway, PaymentReference: "txn-42", Timestamp: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
	}
	require.NoError(t, ledger.Append(want))

	got, err := ledger.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		require.Equal(t, want[i].MedicineName, got[i].MedicineName)
		require.Equal(t, want[i].Quantity, got[i].Quantity)
		require.True(t, got[i].TotalPrice.Equal(want[i].TotalPrice))
		require.Equal(t, want[i].SupplierName, got[i].SupplierName)
		require.Equal(t, want[i].PaymentMethod, got[i].PaymentMethod)
		require.Equal(t, want[i].PaymentReference, got[i].PaymentReference)
		require.True(t, got[i].Timestamp.Equal(want[i].Timestamp))
	}
}

func TestXLSXSaveAllPreservesLedgerSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	st := NewXLSXStore(path)
	ledger := NewXLSXLedger(path)

	require.NoError(t, st.SaveAll(storeRows()))
	require.NoError(t, ledger.EnsureSheet())
	require.NoError(t, ledger.Append([]domain.PaymentLedgerEntry{
		{MedicineName: "Paracetamol", Quantity: 10, TotalPrice: decimal.RequireFromString("25.00"), SupplierName: "Acme", PaymentMethod: domain.PaymentManual, Timestamp: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
	}))

	// A later inventory rewrite must not clobber the history.
	updated := storeRows()
	updated[0].Stock = 90
	require.NoError(t, st.SaveAll(updated))

	entries, err := ledger.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Paracetamol", entries[0].MedicineName)

	got, err := st.LoadAll()
	require.NoError(t, err)
	require.Equal(t, int64(90), got[0].Stock)
}
