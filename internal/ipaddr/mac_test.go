package ipaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIpaddr_ParseMAC_ColonAndDash(t *testing.T) {
	t.Parallel()
	m1, err := ParseMAC("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	m2, err := ParseMAC("aa-bb-cc-dd-ee-ff")
	require.NoError(t, err)
	require.Equal(t, m1, m2)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", m1.String())
}

func TestIpaddr_ParseMAC_Invalid(t *testing.T) {
	t.Parallel()
	for _, c := range []string{"AA:BB:CC:DD:EE", "ZZ:BB:CC:DD:EE:FF", "AABBCCDDEEFF"} {
		_, err := ParseMAC(c)
		require.Error(t, err, c)
	}
}

func TestIpaddr_Broadcast(t *testing.T) {
	t.Parallel()
	require.True(t, Broadcast.IsBroadcast())
	m, _ := ParseMAC("AA:AA:AA:AA:AA:AA")
	require.False(t, m.IsBroadcast())
}
