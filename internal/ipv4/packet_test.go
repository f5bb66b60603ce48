package ipv4

import (
	"testing"

	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/stretchr/testify/require"
)

func mustIP(t *testing.T, s string) ipaddr.IPv4 {
	t.Helper()
	ip, err := ipaddr.ParseIPv4(s)
	require.NoError(t, err)
	return ip
}

func TestIPv4_IpPacket_MarshalUnmarshal_RoundTrips(t *testing.T) {
	t.Parallel()
	p := &IpPacket{
		Version: 4, IHL: 5, DSCP: 0,
		Identification: 42, Flags: FlagDF, FragmentOffset: 0,
		TTL: 64, Protocol: ProtocolTCP,
		Src: mustIP(t, "10.0.0.1"), Dst: mustIP(t, "10.0.0.2"),
		Data: []byte("hello ip layer"),
	}
	bytes, err := p.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalIpPacket(bytes)
	require.NoError(t, err)
	require.Equal(t, p.Version, got.Version)
	require.Equal(t, p.IHL, got.IHL)
	require.Equal(t, p.Identification, got.Identification)
	require.Equal(t, p.Flags, got.Flags)
	require.Equal(t, p.FragmentOffset, got.FragmentOffset)
	require.Equal(t, p.TTL, got.TTL)
	require.Equal(t, p.Protocol, got.Protocol)
	require.Equal(t, p.Src, got.Src)
	require.Equal(t, p.Dst, got.Dst)
	require.Equal(t, p.Data, got.Data)
}

func TestIPv4_ChecksumWithFieldIncluded_IsZero(t *testing.T) {
	t.Parallel()
	p := &IpPacket{Version: 4, IHL: 5, TTL: 64, Protocol: ProtocolUDP,
		Src: mustIP(t, "192.168.1.2"), Dst: mustIP(t, "192.168.1.3"), Data: []byte{1, 2, 3, 4}}
	bytes, err := p.Marshal()
	require.NoError(t, err)
	require.Zero(t, checksum16(bytes[:HeaderLen]))
}

func TestIPv4_UnmarshalIpPacket_RejectsCorruptedHeader(t *testing.T) {
	t.Parallel()
	p := &IpPacket{Version: 4, IHL: 5, TTL: 64, Protocol: ProtocolUDP,
		Src: mustIP(t, "10.0.0.1"), Dst: mustIP(t, "10.0.0.2"), Data: []byte{9, 9}}
	bytes, err := p.Marshal()
	require.NoError(t, err)
	bytes[1] ^= 0xFF

	_, err = UnmarshalIpPacket(bytes)
	require.ErrorIs(t, err, ErrBadChecksum)
}

func TestIPv4_IsFragment(t *testing.T) {
	t.Parallel()
	require.False(t, (&IpPacket{}).IsFragment())
	require.True(t, (&IpPacket{Flags: FlagMF}).IsFragment())
	require.True(t, (&IpPacket{FragmentOffset: 5}).IsFragment())
}
