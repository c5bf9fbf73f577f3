package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMustRejectsUnknownPair(t *testing.T) {
	require.Panics(t, func() {
		Must(ResourceLedger, ActionReceive)
	})
	require.NotPanics(t, func() {
		Must(ResourceProcurement, ActionReceive)
	})
}

func TestParseRoundTrip(t *testing.T) {
	p, err := Parse("procurement.settle")
	require.NoError(t, err)
	require.Equal(t, ResourceProcurement, p.Resource)
	require.Equal(t, ActionSettle, p.Action)

	_, err = Parse("procurement.delete")
	require.Error(t, err)
}

func TestMergeGrantsOverridesPerRole(t *testing.T) {
	defaults := DefaultGrants()
	overrides := Grants{"cashier": {Must(ResourceSales, ActionView)}}
	merged := MergeGrants(defaults, overrides)

	require.Len(t, merged["cashier"], 1)
	require.Equal(t, defaults["storekeeper"], merged["storekeeper"])

	// Merging never mutates the defaults passed in.
	require.Greater(t, len(defaults["cashier"]), 1)
}
