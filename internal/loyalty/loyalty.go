// Package loyalty computes point accrual and redemption for the POS.
package loyalty

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrBelowMinimum      = errors.New("loyalty: below minimum redeemable points")
	ErrInsufficientPoint = errors.New("loyalty: customer does not hold enough points")
	ErrExceedsTotal      = errors.New("loyalty: redemption exceeds sale total")
)

// Config holds the accrual and redemption rates. It is immutable: build one
// at startup with NewConfig and pass it by value.
type Config struct {
	// PointRate is the amount of spend that earns one point.
	PointRate decimal.Decimal
	// RedeemValue is the monetary value of one redeemed point.
	RedeemValue decimal.Decimal
	// MinRedeemPoints is the smallest redemption allowed in one sale.
	MinRedeemPoints int64
}

// NewConfig validates the rates. Zero or negative rates disable the scheme.
func NewConfig(pointRate, redeemValue decimal.Decimal, minRedeem int64) (Config, error) {
	if pointRate.IsNegative() || redeemValue.IsNegative() || minRedeem < 0 {
		return Config{}, errors.New("loyalty: rates must not be negative")
	}
	return Config{PointRate: pointRate, RedeemValue: redeemValue, MinRedeemPoints: minRedeem}, nil
}

// Enabled reports whether accrual is active.
func (c Config) Enabled() bool {
	return c.PointRate.IsPositive()
}

// PointsFor returns the points earned on a sale total, rounded down.
func (c Config) PointsFor(total decimal.Decimal) int64 {
	if !c.Enabled() || total.IsNegative() {
		return 0
	}
	return total.Div(c.PointRate).Floor().IntPart()
}

// RedemptionValue validates a redemption request against the customer's held
// points and the sale subtotal, returning the discount value.
func (c Config) RedemptionValue(points, held int64, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if points == 0 {
		return decimal.Zero, nil
	}
	if points < c.MinRedeemPoints {
		return decimal.Zero, ErrBelowMinimum
	}
	if points > held {
		return decimal.Zero, ErrInsufficientPoint
	}
	value := c.RedeemValue.Mul(decimal.NewFromInt(points))
	if value.GreaterThan(subtotal) {
		return decimal.Zero, ErrExceedsTotal
	}
	return value, nil
}
