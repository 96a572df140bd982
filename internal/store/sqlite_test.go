package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pharmstock/m/domain"
	"pharmstock/m/internal/database"
	"pharmstock/m/internal/migrations"
)

func testDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db := database.Connect(":memory:")
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)
	return NewSQLiteStore(db)
}

func TestSQLiteRoundTrip(t *testing.T) {
	st := testDB(t)

	rows := storeRows()
	require.NoError(t, st.SaveAll(rows))

	got, err := st.LoadAll()
	require.NoError(t, err)
	requireRowsEqual(t, rows, got)
}

func TestSQLiteSaveAllReplacesWholeTable(t *testing.T) {
	st := testDB(t)
	require.NoError(t, st.SaveAll(storeRows()))

	smaller := storeRows()[:1]
	smaller[0].Stock = 90
	require.NoError(t, st.SaveAll(smaller))

	got, err := st.LoadAll()
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(90), got[0].Stock)
}

func TestSQLiteLedgerAppendAndRead(t *testing.T) {
	st := testDB(t)
	ledger := NewSQLiteLedger(st.db)
	require.NoError(t, ledger.EnsureSheet())

	entries, err := ledger.ReadAll()
	require.NoError(t, err)
	require.Empty(t, entries)

	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	require.NoError(t, ledger.Append([]domain.PaymentLedgerEntry{
		{MedicineName: "Paracetamol", Quantity: 10, TotalPrice: decimal.RequireFromString("25.00"), SupplierName: "Acme", PaymentMethod: domain.PaymentManual, Timestamp: ts},
		{MedicineName: "Ibuprofen", Quantity: 2, TotalPrice: decimal.RequireFromString("2.40"), SupplierName: "Acme", PaymentMethod: domain.PaymentGateway, PaymentReference: "txn-42", Timestamp: ts},
	}))

	got, err := ledger.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Paracetamol", got[0].MedicineName)
	require.True(t, got[0].TotalPrice.Equal(decimal.RequireFromString("25.00")))
	require.Equal(t, "txn-42", got[1].PaymentReference)
	require.True(t, got[1].Timestamp.Equal(ts))
}
