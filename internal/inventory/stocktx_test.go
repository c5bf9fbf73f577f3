package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBlendAvgCost(t *testing.T) {
	// 10 @ 100 plus 5 @ 130 blends to 110.
	avg := blendAvgCost(10, decimal.NewFromInt(100), 5, decimal.NewFromInt(130))
	require.True(t, avg.Equal(decimal.NewFromInt(110)), "got %s", avg)

	// First receipt into an empty balance takes the unit cost as-is.
	avg = blendAvgCost(0, decimal.Zero, 4, decimal.NewFromInt(25))
	require.True(t, avg.Equal(decimal.NewFromInt(25)))

	// Uneven blends round to 4 decimal places.
	avg = blendAvgCost(3, decimal.NewFromInt(10), 3, decimal.NewFromInt(11))
	require.True(t, avg.Equal(decimal.RequireFromString("10.5")), "got %s", avg)

	// (10 + 2*10.0001) / 3 rounds from 10.00006... to 10.0001.
	avg = blendAvgCost(1, decimal.NewFromInt(10), 2, decimal.RequireFromString("10.0001"))
	require.True(t, avg.Equal(decimal.RequireFromString("10.0001")), "got %s", avg)
}
