package procurement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReceivedLineEvent carries one received line for ledger mapping.
type ReceivedLineEvent struct {
	ProductID   int64
	WarehouseID int64
	Qty         int64
	UnitPrice   decimal.Decimal
}

// GoodsReceivedEvent captures a completed goods receipt.
type GoodsReceivedEvent struct {
	POID          int64
	Number        string
	VendorID      int64
	ReceivedTotal decimal.Decimal
	ReceivedAt    time.Time
	Lines         []ReceivedLineEvent
}

// PaymentSettledEvent captures a vendor payment.
type PaymentSettledEvent struct {
	PaymentID int64
	Number    string
	VendorID  int64
	Amount    decimal.Decimal
	PaidAt    time.Time
}

// IntegrationHandler receives procurement events for ledger posting.
type IntegrationHandler interface {
	HandleGoodsReceived(ctx context.Context, evt GoodsReceivedEvent) error
	HandlePaymentSettled(ctx context.Context, evt PaymentSettledEvent) error
}
