package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound movement such as a goods receipt.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement such as a sale.
	MovementOut MovementType = "OUT"
	// MovementAdjust indicates a manual stock adjustment.
	MovementAdjust MovementType = "ADJUST"
)

// Movement is a single stock ledger row.
type Movement struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Type        MovementType    `json:"type"`
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	Qty         int64           `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	RefModule   string          `json:"ref_module"`
	RefID       string          `json:"ref_id"`
	Note        string          `json:"note"`
	ActorID     int64           `json:"actor_id"`
	PostedAt    time.Time       `json:"posted_at"`
}

// Balance summarises on-hand stock per warehouse and product.
type Balance struct {
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	Qty         int64           `json:"qty"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StockCardEntry is a movement rendered against its running balance.
type StockCardEntry struct {
	Code       string          `json:"code"`
	Type       MovementType    `json:"type"`
	PostedAt   time.Time       `json:"posted_at"`
	QtyIn      int64           `json:"qty_in"`
	QtyOut     int64           `json:"qty_out"`
	BalanceQty int64           `json:"balance_qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	AvgCost    decimal.Decimal `json:"avg_cost"`
	Note       string          `json:"note"`
}

// MovementInput describes a requested stock movement.
type MovementInput struct {
	Code        string          `json:"code"`
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	Qty         int64           `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	RefModule   string          `json:"ref_module"`
	RefID       string          `json:"ref_id"`
	Note        string          `json:"note"`
	ActorID     int64           `json:"-"`
}

// StockCardFilter filters card entries.
type StockCardFilter struct {
	WarehouseID int64
	ProductID   int64
	From        time.Time
	To          time.Time
	Limit       int
}

var (
	// ErrNegativeStock is returned when a movement would drive on-hand qty below zero.
	ErrNegativeStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a zero or wrongly signed quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrBalanceNotFound indicates a missing balance row.
	ErrBalanceNotFound = errors.New("inventory: balance not found")
)
