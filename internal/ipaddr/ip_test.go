package ipaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIpaddr_ParseIPv4_Valid(t *testing.T) {
	t.Parallel()
	ip, err := ParseIPv4("192.168.1.2")
	require.NoError(t, err)
	require.Equal(t, "192.168.1.2", ip.String())
}

func TestIpaddr_ParseIPv4_Invalid(t *testing.T) {
	t.Parallel()
	cases := []string{"256.1.1.1", "1.2.3", "1.2.3.4.5", "a.b.c.d", "01.2.3.4", "-1.2.3.4", ""}
	for _, c := range cases {
		_, err := ParseIPv4(c)
		require.Error(t, err, c)
	}
}

func TestIpaddr_ParseCIDR_ContainsAndNetmask(t *testing.T) {
	t.Parallel()
	c, err := ParseCIDR("192.168.1.0/24")
	require.NoError(t, err)

	in, _ := ParseIPv4("192.168.1.200")
	out, _ := ParseIPv4("192.168.2.1")
	require.True(t, c.Contains(in))
	require.False(t, c.Contains(out))
	require.Equal(t, uint32(0xFFFFFF00), c.Bits.Mask())
}

func TestIpaddr_ParseCIDR_Invalid(t *testing.T) {
	t.Parallel()
	for _, c := range []string{"192.168.1.0", "192.168.1.0/33", "192.168.1.0/-1", "bad"} {
		_, err := ParseCIDR(c)
		require.Error(t, err, c)
	}
}

func TestIpaddr_SameNetwork(t *testing.T) {
	t.Parallel()
	a, _ := ParseIPv4("10.0.0.5")
	b, _ := ParseIPv4("10.0.0.200")
	c, _ := ParseIPv4("10.0.1.1")
	require.True(t, SameNetwork(a, b, 24))
	require.False(t, SameNetwork(a, c, 24))
}
