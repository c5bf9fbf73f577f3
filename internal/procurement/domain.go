package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order lifecycle statuses. RECEIVED and CANCELLED are terminal.
type POStatus string

const (
	POStatusPending   POStatus = "PENDING"
	POStatusApproved  POStatus = "APPROVED"
	POStatusReceived  POStatus = "RECEIVED"
	POStatusCancelled POStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed from s.
func (s POStatus) Terminal() bool {
	return s == POStatusReceived || s == POStatusCancelled
}

// PurchaseOrder is the ordering document against a vendor.
//
// TotalAmount is fixed at creation from the ordered lines. ReceivedTotal is
// written once, at goods receipt, from the quantities actually received; the
// two differ when a delivery is short or over.
type PurchaseOrder struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	VendorID      int64           `json:"vendor_id"`
	Status        POStatus        `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ReceivedTotal decimal.Decimal `json:"received_total"`
	Note          string          `json:"note"`
	BillRef       string          `json:"bill_ref,omitempty"`
	CreatedBy     int64           `json:"created_by"`
	ApprovedBy    int64           `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	ReceivedBy    int64           `json:"received_by,omitempty"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// POLine is one ordered product on a purchase order.
//
// WarehouseID, ReceivedQty and ReceivedPrice are written at goods receipt:
// the receiver picks the deposit warehouse per line, and the received price
// may differ from the ordered one (substitutions, price corrections).
type POLine struct {
	ID            int64           `json:"id"`
	POID          int64           `json:"po_id"`
	ProductID     int64           `json:"product_id"`
	WarehouseID   int64           `json:"warehouse_id,omitempty"`
	OrderedQty    int64           `json:"ordered_qty"`
	ReceivedQty   int64           `json:"received_qty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReceivedPrice decimal.Decimal `json:"received_price"`
}

// LineTotal is ordered qty times unit price.
func (l POLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.OrderedQty))
}

// VendorPayment records a settlement against a vendor's payable balance.
type VendorPayment struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	VendorID  int64           `json:"vendor_id"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	CreatedBy int64           `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListFilter narrows purchase order listings.
type ListFilter struct {
	VendorID int64
	Status   POStatus
	Limit    int
	Offset   int
}

var (
	// ErrInvalidState occurs when an action violates the status workflow,
	// including losing the receive race to a concurrent caller.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates a missing purchase order or vendor.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrInsufficientBalance occurs when a settlement exceeds the vendor's payable balance.
	ErrInsufficientBalance = errors.New("procurement: settlement exceeds vendor balance")
)
