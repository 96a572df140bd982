package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	Secret   string
	HTTPPort string

	// DatabaseDSN is the sqlite sidecar holding users (and, with the
	// sqlite store backend, the inventory and payment history too).
	DatabaseDSN string

	// StoreBackend selects the inventory medium: xlsx, sheets or sqlite.
	StoreBackend string

	// InventoryFile is the workbook path for the xlsx backend.
	InventoryFile string

	// SpreadsheetID and CredentialsFile configure the sheets backend.
	SpreadsheetID   string
	CredentialsFile string

	// SeedCSV is imported on first run when the store is empty.
	SeedCSV string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	cfg := Config{
		Secret:          getenv("SECRET", "dev_secret"),
		HTTPPort:        getenv("HTTP_PORT", "8080"),
		DatabaseDSN:     getenv("DATABASE_DSN", "pharmstock.db"),
		StoreBackend:    getenv("STORE_BACKEND", "xlsx"),
		InventoryFile:   getenv("INVENTORY_FILE", "assets/inventory.xlsx"),
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		CredentialsFile: getenv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		SeedCSV:         getenv("SEED_CSV", "assets/inventory.csv"),
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", cfg.HTTPPort)
		cfg.HTTPPort = "8080"
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
