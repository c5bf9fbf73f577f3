package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable item.
type Product struct {
	ID        int64           `json:"id"`
	SKU       string          `json:"sku"`
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	SalePrice decimal.Decimal `json:"sale_price"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
