package order

import (
	"time"

	"github.com/shopspring/decimal"

	"pharmstock/m/domain"
	"pharmstock/m/internal/catalog"
)

// Pick is one (medicine, quantity) request against the selected supplier.
type Pick struct {
	MedicineName string `json:"medicine_name"`
	Quantity     int64  `json:"quantity"`
}

// Build validates the picks against the catalog and produces an order.
//
// Each pick resolves to a single row via the catalog (earliest-expiring
// batch when several exist). The requested quantity is clamped to
// [0, stock]; a pick left at zero is dropped rather than rejected, so a
// line item can never exceed available stock. Line items keep the insertion
// order of the picks and the total is an exact decimal sum.
func Build(c *catalog.Catalog, supplier string, picks []Pick, method domain.PaymentMethod, reference string) (domain.Order, error) {
	if method == "" {
		method = domain.PaymentManual
	}
	ord := domain.Order{
		Supplier:         supplier,
		PaymentMethod:    method,
		PaymentReference: reference,
		TotalAmount:      decimal.Zero,
		CreatedAt:        time.Now(),
	}
	for _, pick := range picks {
		row, err := c.Resolve(pick.MedicineName, supplier)
		if err != nil {
			return domain.Order{}, err
		}
		qty := pick.Quantity
		if qty > row.Stock {
			qty = row.Stock
		}
		if qty <= 0 {
			continue
		}
		total := row.PricePerUnit.Mul(decimal.NewFromInt(qty))
		ord.LineItems = append(ord.LineItems, domain.LineItem{
			MedicineName: row.Name,
			BatchNumber:  row.BatchNumber,
			Quantity:     qty,
			PricePerUnit: row.PricePerUnit,
			TotalPrice:   total,
		})
		ord.TotalAmount = ord.TotalAmount.Add(total)
	}
	return ord, nil
}
