package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pharmstock/m/domain"
	"pharmstock/m/internal/catalog"
	"pharmstock/m/internal/database"
	"pharmstock/m/internal/migrations"
	"pharmstock/m/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db := database.Connect(":memory:")
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)

	st := store.NewSQLiteStore(db)
	require.NoError(t, st.SaveAll([]domain.MedicineRow{
		{Name: "Paracetamol", Supplier: "Acme", Stock: 100, ExpiryDate: day(2026, 12, 1), PricePerUnit: decimal.RequireFromString("2.50"), ReorderLevel: 15, BatchNumber: "B2"},
		{Name: "Ibuprofen", Supplier: "Acme", Stock: 5, ExpiryDate: day(2027, 3, 1), PricePerUnit: decimal.RequireFromString("1.20"), ReorderLevel: 10, BatchNumber: "B1"},
	}))
	ledger := store.NewSQLiteLedger(db)

	cat, err := catalog.Load(st)
	require.NoError(t, err)

	handler := New(db, "test_secret", cat, st, ledger)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func registerAndLogin(t *testing.T, srv *httptest.Server, role string) string {
	t.Helper()
	email := role + "@pharmacy.test"
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "", map[string]string{
		"username": role,
		"email":    email,
		"password": "hunter22",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
		"email":    email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func TestInventoryRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/inventory", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInventorySearch(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "employee")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/inventory?query=ibu", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var rows []domain.MedicineRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "Ibuprofen", rows[0].Name)
}

func TestReorderAlertsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "employee")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/inventory/reorder-alerts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var rows []domain.MedicineRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "Ibuprofen", rows[0].Name)
}

func TestOrderFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "employee")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", token, map[string]any{
		"supplier": "Acme",
		"picks":    []map[string]any{{"medicine_name": "Paracetamol", "quantity": 10}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created struct {
		Order domain.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.Len(t, created.Order.LineItems, 1)
	require.True(t, created.Order.TotalAmount.Equal(decimal.RequireFromString("25.00")),
		"got %s", created.Order.TotalAmount)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/inventory?query=para", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []domain.MedicineRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, int64(90), rows[0].Stock)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/payments", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []domain.PaymentLedgerEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "Paracetamol", entries[0].MedicineName)
	require.Equal(t, int64(10), entries[0].Quantity)
}

func TestOrderUnknownMedicine(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "employee")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/orders", token, map[string]any{
		"supplier": "Acme",
		"picks":    []map[string]any{{"medicine_name": "Aspirin", "quantity": 1}},
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateInventoryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "owner")

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/inventory", token, map[string]any{
		"name":         "Ibuprofen",
		"supplier":     "Acme",
		"batch_number": "B1",
		"stock":        50,
		"expiry_date":  "2028-01-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/inventory?query=ibu", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []domain.MedicineRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, int64(50), rows[0].Stock)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/inventory", token, map[string]any{
		"name":         "Nope",
		"supplier":     "Acme",
		"batch_number": "B1",
		"stock":        1,
		"expiry_date":  "2028-01-01",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateInventoryIsOwnerOnly(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "employee")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/inventory", token, map[string]any{
		"name":         "Ibuprofen",
		"supplier":     "Acme",
		"batch_number": "B1",
		"stock":        50,
		"expiry_date":  "2028-01-01",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The edit was rejected before touching the catalog.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/inventory?query=ibu", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []domain.MedicineRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, int64(5), rows[0].Stock)
}

func TestSupplierMedicinesSortedByExpiry(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "employee")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/suppliers/Acme/medicines", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var rows []domain.MedicineRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "Paracetamol", rows[0].Name)
	require.Equal(t, "Ibuprofen", rows[1].Name)
}
