package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SalePostedEvent captures a finished sale for ledger posting.
type SalePostedEvent struct {
	SaleID   int64
	Number   string
	Total    decimal.Decimal
	Discount decimal.Decimal
	PostedAt time.Time
}

// SaleVoidedEvent reverses the ledger effect of a voided sale.
type SaleVoidedEvent struct {
	SaleID   int64
	Number   string
	Total    decimal.Decimal
	Discount decimal.Decimal
	VoidedAt time.Time
}

// IntegrationHandler receives sales events for ledger posting.
type IntegrationHandler interface {
	HandleSalePosted(ctx context.Context, evt SalePostedEvent) error
	HandleSaleVoided(ctx context.Context, evt SaleVoidedEvent) error
}
