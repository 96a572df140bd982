package seed

import (
	"encoding/csv"
	"errors"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmstock/m/domain"
	"pharmstock/m/internal/store"
)

// LoadInventory imports the CSV into the inventory store on first run.
// Column order: name, supplier, stock, expiry (2006-01-02), price per unit,
// reorder level, batch number. A store that already has rows is left alone.
func LoadInventory(st store.InventoryStore, csvPath string) {
	existing, err := st.LoadAll()
	if err != nil && !errors.Is(err, store.ErrStoreUnavailable) {
		log.Printf("unable to check inventory store before seeding: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}

	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load inventory seed %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read inventory seed header: %v", err)
		return
	}

	var rows []domain.MedicineRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read inventory seed row: %v", err)
			continue
		}
		if len(record) < 7 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		stock, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
		if err != nil || stock < 0 {
			log.Printf("skipping seed row %s: bad stock %q", name, record[2])
			continue
		}
		expiry, err := time.Parse("2006-01-02", strings.TrimSpace(record[3]))
		if err != nil {
			log.Printf("skipping seed row %s: bad expiry %q", name, record[3])
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[4]))
		if err != nil {
			log.Printf("skipping seed row %s: bad price %q", name, record[4])
			continue
		}
		reorder, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
		if err != nil || reorder < 0 {
			reorder = 0
		}
		rows = append(rows, domain.MedicineRow{
			Name:         name,
			Supplier:     strings.TrimSpace(record[1]),
			Stock:        stock,
			ExpiryDate:   expiry,
			PricePerUnit: price,
			ReorderLevel: reorder,
			BatchNumber:  strings.TrimSpace(record[6]),
		})
	}

	if len(rows) == 0 {
		return
	}
	if err := st.SaveAll(rows); err != nil {
		log.Printf("unable to write inventory seed: %v", err)
		return
	}
	log.Printf("seeded inventory store with %d rows", len(rows))
}
