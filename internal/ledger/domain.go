package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	// EntryRevenue is net sales revenue.
	EntryRevenue EntryType = "REVENUE"
	// EntryDiscount is loyalty and promotional discounts granted.
	EntryDiscount EntryType = "DISCOUNT"
	// EntryPayable is payable growth from goods receipts.
	EntryPayable EntryType = "PAYABLE"
	// EntryPayment is vendor settlements.
	EntryPayment EntryType = "PAYMENT"
	// EntryPayrollExpense is salary expense from payroll runs.
	EntryPayrollExpense EntryType = "PAYROLL_EXPENSE"
)

// Entry is one immutable ledger row. Entries are only ever appended.
type Entry struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	RefModule   string          `json:"ref_module"`
	RefID       string          `json:"ref_id"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Summary aggregates entries over a period. Formatted carries the totals
// rendered for display in Indonesian number format.
type Summary struct {
	From      time.Time                     `json:"from"`
	To        time.Time                     `json:"to"`
	Totals    map[EntryType]decimal.Decimal `json:"totals"`
	Formatted map[EntryType]string          `json:"formatted"`
}

// ListFilter narrows entry listings.
type ListFilter struct {
	Type   EntryType
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// ErrValidation indicates invalid input.
var ErrValidation = errors.New("ledger: invalid input")
