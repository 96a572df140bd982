package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"pharmstock/m/domain"
	"pharmstock/m/internal/catalog"
	"pharmstock/m/internal/order"
	"pharmstock/m/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

const dateLayout = "2006-01-02"

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db      *sqlx.DB
	secret  string
	catalog *catalog.Catalog
	store   store.InventoryStore
	ledger  store.PaymentLedger

	// One logical session mutates the catalog; serialize the mutating
	// handlers so the in-memory view and the store rewrite stay paired.
	mu sync.Mutex
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string, cat *catalog.Catalog, st store.InventoryStore, ledger store.PaymentLedger) *Handler {
	return &Handler{db: db, secret: secret, catalog: cat, store: st, ledger: ledger}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.listInventory)
			r.Put("/", h.updateInventory)
			r.Get("/reorder-alerts", h.reorderAlerts)
			r.Post("/reload", h.reloadInventory)
		})

		pr.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.listSuppliers)
			r.Get("/{name}/medicines", h.supplierMedicines)
		})

		pr.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Post("/preview", h.previewOrder)
		})

		pr.Get("/payments", h.paymentHistory)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

// Auth Handlers

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "username, email, password and role are required")
		return
	}
	if req.Role != "owner" && req.Role != "employee" {
		respondError(w, http.StatusBadRequest, "role must be owner or employee")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	var userID int64
	err = h.db.QueryRowx(`INSERT INTO users (username, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		req.Username, strings.ToLower(req.Email), hashed, req.Role).Scan(&userID)
	if err != nil {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}

	token, err := h.generateToken(userID, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: domain.User{ID: int(userID), Username: req.Username, Email: strings.ToLower(req.Email), Role: req.Role}})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user domain.User
	err := h.db.Get(&user, `SELECT id, username, email, password, role FROM users WHERE email = $1`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(int64(user.ID), user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	uid := r.Context().Value(ctxUserID).(int64)
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if _, err := h.db.Exec(`UPDATE users SET password = $1 WHERE id = $2`, hashed, uid); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Inventory handlers

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("query"))
	supplier := strings.TrimSpace(r.URL.Query().Get("supplier"))
	respondJSON(w, http.StatusOK, h.catalog.Filter(term, supplier))
}

func (h *Handler) reorderAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.catalog.ReorderAlerts()
	if alerts == nil {
		alerts = []domain.MedicineRow{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

type updateInventoryRequest struct {
	Name        string `json:"name"`
	Supplier    string `json:"supplier"`
	BatchNumber string `json:"batch_number"`
	Stock       int64  `json:"stock"`
	ExpiryDate  string `json:"expiry_date"`
}

func (h *Handler) updateInventory(w http.ResponseWriter, r *http.Request) {
	// Direct stock/expiry edits bypass the order flow, so they are owner-only.
	if !h.requireRole(w, r, "owner") {
		return
	}
	var req updateInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Supplier == "" {
		respondError(w, http.StatusBadRequest, "name and supplier are required")
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "stock must not be negative")
		return
	}
	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "expiry_date must be in YYYY-MM-DD format")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.catalog.Rows()
	key := domain.RowKey{Name: req.Name, Supplier: req.Supplier, BatchNumber: req.BatchNumber}
	count := h.catalog.UpdateRow(key, req.Stock, expiry)
	if count == 0 {
		respondError(w, http.StatusNotFound, "no inventory row matches that medicine, supplier and batch")
		return
	}
	if err := h.store.SaveAll(h.catalog.Rows()); err != nil {
		h.catalog.Replace(snapshot)
		respondError(w, http.StatusBadGateway, "unable to persist inventory update")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "updated", "rows": count})
}

func (h *Handler) reloadInventory(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.store.LoadAll()
	if err != nil {
		// Degrade to an empty, editable catalog; the session continues.
		h.catalog.Replace(nil)
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "inventory store unavailable, starting with an empty catalog",
			"rows":  0,
		})
		return
	}
	h.catalog.Replace(rows)
	respondJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "rows": len(rows)})
}

// Supplier handlers

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers := h.catalog.Suppliers()
	if suppliers == nil {
		suppliers = []string{}
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) supplierMedicines(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	respondJSON(w, http.StatusOK, h.catalog.SupplierMedicines(name))
}

// Order handlers

type orderRequest struct {
	Supplier         string       `json:"supplier"`
	Picks            []order.Pick `json:"picks"`
	PaymentMethod    string       `json:"payment_method"`
	PaymentReference string       `json:"payment_reference"`
}

func (h *Handler) buildOrder(w http.ResponseWriter, req orderRequest) (domain.Order, bool) {
	if req.Supplier == "" || len(req.Picks) == 0 {
		respondError(w, http.StatusBadRequest, "supplier and at least one pick are required")
		return domain.Order{}, false
	}
	method := domain.PaymentMethod(req.PaymentMethod)
	if req.PaymentMethod == "" {
		method = domain.PaymentManual
	}
	if !method.Valid() {
		respondError(w, http.StatusBadRequest, "payment_method must be manual or gateway")
		return domain.Order{}, false
	}
	ord, err := order.Build(h.catalog, req.Supplier, req.Picks, method, req.PaymentReference)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, catalog.ErrAmbiguousMedicine):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "unable to build order")
		}
		return domain.Order{}, false
	}
	return ord, true
}

func (h *Handler) previewOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ord, ok := h.buildOrder(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ord)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ord, ok := h.buildOrder(w, req)
	if !ok {
		return
	}
	if len(ord.LineItems) == 0 {
		respondError(w, http.StatusBadRequest, "no pick has a positive quantity in stock")
		return
	}

	committer := &order.Committer{Catalog: h.catalog, Store: h.store, Ledger: h.ledger}
	err := committer.Commit(ord)
	switch {
	case errors.Is(err, order.ErrStaleStock):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, order.ErrPersistFailed):
		respondError(w, http.StatusBadGateway, err.Error())
		return
	case errors.Is(err, order.ErrLedgerWriteFailed):
		// The inventory commit stands; report the degraded audit trail.
		respondJSON(w, http.StatusCreated, map[string]any{
			"order":   ord,
			"warning": err.Error(),
		})
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "unable to commit order")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"order": ord})
}

// Payment history

func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ReadAll()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to read payment history")
		return
	}
	if entries == nil {
		entries = []domain.PaymentLedgerEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
