package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the sidecar schema: users for the HTTP surface, plus the
// inventory and payment-history tables used by the sqlite store backend.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS inventory (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            supplier TEXT NOT NULL,
            stock INTEGER NOT NULL CHECK (stock >= 0),
            expiry_date TEXT NOT NULL,
            price_per_unit TEXT NOT NULL,
            reorder_level INTEGER NOT NULL DEFAULT 0,
            batch_number TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS payment_history (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            total_price TEXT NOT NULL,
            supplier_name TEXT NOT NULL,
            payment_method TEXT NOT NULL,
            payment_reference TEXT,
            timestamp TEXT NOT NULL
        );`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}
}
