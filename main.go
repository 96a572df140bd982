package main

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"pharmstock/m/internal/api"
	"pharmstock/m/internal/catalog"
	"pharmstock/m/internal/config"
	"pharmstock/m/internal/database"
	"pharmstock/m/internal/migrations"
	"pharmstock/m/internal/seed"
	"pharmstock/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)

	st, ledger := buildStore(cfg, db)
	seed.LoadInventory(st, cfg.SeedCSV)

	cat, err := catalog.Load(st)
	if err != nil {
		// Not fatal: the session starts with an empty, editable catalog
		// and the store can be retried via the reload endpoint.
		log.Printf("inventory load failed, starting with empty catalog: %v", err)
	} else {
		log.Printf("loaded %d inventory rows from %s store", cat.Len(), cfg.StoreBackend)
	}

	handler := api.New(db, cfg.Secret, cat, st, ledger)

	log.Printf("PharmStock server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func buildStore(cfg config.Config, db *sqlx.DB) (store.InventoryStore, store.PaymentLedger) {
	switch cfg.StoreBackend {
	case "xlsx":
		return store.NewXLSXStore(cfg.InventoryFile), store.NewXLSXLedger(cfg.InventoryFile)
	case "sheets":
		if cfg.SpreadsheetID == "" {
			log.Fatal("SPREADSHEET_ID is required for the sheets store backend")
		}
		st, err := store.NewSheetsStore(cfg.SpreadsheetID, cfg.CredentialsFile)
		if err != nil {
			log.Fatalf("unable to connect to sheets store: %v", err)
		}
		return st, store.NewSheetsLedger(st)
	case "sqlite":
		return store.NewSQLiteStore(db), store.NewSQLiteLedger(db)
	default:
		log.Fatalf("unknown STORE_BACKEND %q (want xlsx, sheets or sqlite)", cfg.StoreBackend)
		return nil, nil
	}
}
