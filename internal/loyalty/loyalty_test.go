package loyalty

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := NewConfig(decimal.NewFromInt(10000), decimal.NewFromInt(100), 50)
	require.NoError(t, err)
	return cfg
}

func TestPointsForRoundsDown(t *testing.T) {
	cfg := testConfig(t)
	require.EqualValues(t, 0, cfg.PointsFor(decimal.NewFromInt(9999)))
	require.EqualValues(t, 1, cfg.PointsFor(decimal.NewFromInt(10000)))
	require.EqualValues(t, 12, cfg.PointsFor(decimal.NewFromInt(125000)))
}

func TestRedemptionValueBounds(t *testing.T) {
	cfg := testConfig(t)
	subtotal := decimal.NewFromInt(20000)

	_, err := cfg.RedemptionValue(10, 500, subtotal)
	require.ErrorIs(t, err, ErrBelowMinimum)

	_, err = cfg.RedemptionValue(100, 60, subtotal)
	require.ErrorIs(t, err, ErrInsufficientPoint)

	_, err = cfg.RedemptionValue(500, 500, subtotal)
	require.ErrorIs(t, err, ErrExceedsTotal)

	value, err := cfg.RedemptionValue(100, 500, subtotal)
	require.NoError(t, err)
	require.True(t, value.Equal(decimal.NewFromInt(10000)))

	value, err = cfg.RedemptionValue(0, 0, subtotal)
	require.NoError(t, err)
	require.True(t, value.IsZero())
}

func TestDisabledConfigEarnsNothing(t *testing.T) {
	cfg, err := NewConfig(decimal.Zero, decimal.Zero, 0)
	require.NoError(t, err)
	require.False(t, cfg.Enabled())
	require.EqualValues(t, 0, cfg.PointsFor(decimal.NewFromInt(100000)))
}

func TestNewConfigRejectsNegative(t *testing.T) {
	_, err := NewConfig(decimal.NewFromInt(-1), decimal.Zero, 0)
	require.Error(t, err)
}
