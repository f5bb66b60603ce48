package ipv4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIPv4_IcmpPacket_MarshalUnmarshal_RoundTrips(t *testing.T) {
	t.Parallel()
	p := &IcmpPacket{Type: IcmpTypeTimeExceeded, Code: 0, Data: []byte("trigger header + 8 bytes")}
	bytes, err := p.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalIcmpPacket(bytes)
	require.NoError(t, err)
	require.Equal(t, p.Type, got.Type)
	require.Equal(t, p.Code, got.Code)
	require.Equal(t, p.Data, got.Data)
	require.Zero(t, checksum16(bytes))
}

func TestIPv4_NewTimeExceeded_CarriesHeaderAndFirst8Bytes(t *testing.T) {
	t.Parallel()
	trigger := &IpPacket{Version: 4, IHL: 5, TTL: 1, Protocol: ProtocolTCP,
		Src: mustIP(t, "10.0.0.5"), Dst: mustIP(t, "10.0.0.6"), Data: []byte("0123456789abcdef")}
	icmp := NewTimeExceeded(trigger)
	require.Equal(t, IcmpTypeTimeExceeded, icmp.Type)
	require.Len(t, icmp.Data, HeaderLen+8)
	require.Equal(t, []byte("01234567"), icmp.Data[HeaderLen:])
}

func TestIPv4_NewSourceQuench_PadsShortTrigger(t *testing.T) {
	t.Parallel()
	trigger := &IpPacket{Version: 4, IHL: 5, TTL: 1, Protocol: ProtocolTCP,
		Src: mustIP(t, "10.0.0.5"), Dst: mustIP(t, "10.0.0.6"), Data: []byte{1, 2}}
	icmp := NewSourceQuench(trigger)
	require.Equal(t, IcmpTypeSourceQuench, icmp.Type)
	require.Len(t, icmp.Data, HeaderLen+8)
}
