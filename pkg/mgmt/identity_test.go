package mgmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestIdentityFromStructuredFieldsHasNoChipID(t *testing.T) {
	info := OSInfo{HwRev: strPtr("mr_mcxn_t1"), OSName: strPtr("optical-flow"), OSVersion: strPtr("1.0")}

	board, app, version, chipID := info.Identity()
	require.Equal(t, "mr_mcxn_t1", board)
	require.Equal(t, "optical-flow", app)
	require.Equal(t, "1.0", version)
	require.Empty(t, chipID)
}

func TestIdentityFromLegacyBannerFillsChipID(t *testing.T) {
	banner := "Zephyr optical-flow abc123 1.0.0 2024-01-01 arm cortex-m33 mr_mcxn_t1/soc/cpu0 Zephyr hwid:deadbeef"
	info := OSInfo{Legacy: &banner}

	board, app, _, chipID := info.Identity()
	require.Equal(t, "mr_mcxn_t1", board)
	require.Equal(t, "optical-flow", app)
	require.Equal(t, "deadbeef", chipID)
}

func TestIdentityPrefersStructuredOverLegacyButStillTakesChipID(t *testing.T) {
	banner := "Zephyr legacy-app abc123 1.0.0 2024-01-01 arm cortex-m33 other-board/soc/cpu0 Zephyr hwid:cafef00d"
	info := OSInfo{HwRev: strPtr("mr_mcxn_t1"), OSName: strPtr("optical-flow"), Legacy: &banner}

	board, app, _, chipID := info.Identity()
	require.Equal(t, "mr_mcxn_t1", board)
	require.Equal(t, "optical-flow", app)
	require.Equal(t, "cafef00d", chipID)
}
