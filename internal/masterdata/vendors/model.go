package vendors

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vendor represents a supplier the business buys from. Balance is the
// outstanding accounts payable: increased when goods are received against a
// purchase order, decreased when a payment is settled. Nothing else writes it.
type Vendor struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
