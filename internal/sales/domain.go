package sales

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus tracks whether a completed sale has been voided.
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusVoided    SaleStatus = "VOIDED"
)

// Sale is one completed POS transaction.
type Sale struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	Status         SaleStatus      `json:"status"`
	CustomerID     int64           `json:"customer_id,omitempty"`
	WarehouseID    int64           `json:"warehouse_id"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	Paid           decimal.Decimal `json:"paid"`
	Change         decimal.Decimal `json:"change"`
	PointsEarned   int64           `json:"points_earned"`
	PointsRedeemed int64           `json:"points_redeemed"`
	CashierID      int64           `json:"cashier_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SaleLine is one sold product.
type SaleLine struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Qty       int64           `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// DailySummary aggregates one day of sales.
type DailySummary struct {
	Date         time.Time       `json:"date"`
	SaleCount    int64           `json:"sale_count"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	Discounts    decimal.Decimal `json:"discounts"`
	NetRevenue   decimal.Decimal `json:"net_revenue"`
}

var (
	// ErrInsufficientStock occurs when a line cannot be covered by on-hand qty.
	ErrInsufficientStock = errors.New("sales: insufficient stock")
	// ErrUnderpaid occurs when the tendered amount is below the total.
	ErrUnderpaid = errors.New("sales: paid amount below total")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("sales: invalid input")
	// ErrNotFound indicates a missing sale, product, or customer.
	ErrNotFound = errors.New("sales: not found")
	// ErrAlreadyVoided occurs when a sale was voided before.
	ErrAlreadyVoided = errors.New("sales: sale already voided")
)
