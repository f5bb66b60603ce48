package mac

import (
	"testing"

	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/stretchr/testify/require"
)

func mustMAC(t *testing.T, s string) ipaddr.MAC {
	t.Helper()
	m, err := ipaddr.ParseMAC(s)
	require.NoError(t, err)
	return m
}

func TestMAC_Frame_MarshalUnmarshal_RoundTrips(t *testing.T) {
	t.Parallel()
	f := &Frame{
		Dst:       mustMAC(t, "AA:AA:AA:AA:AA:AA"),
		Src:       mustMAC(t, "BB:BB:BB:BB:BB:BB"),
		EtherType: EtherTypeIPv4,
		Payload:   []byte("hello, network"),
	}
	bytes, err := f.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalFrame(bytes)
	require.NoError(t, err)
	require.Equal(t, f.Dst, got.Dst)
	require.Equal(t, f.Src, got.Src)
	require.Equal(t, f.EtherType, got.EtherType)
	// Short payloads are zero-padded to the 46-byte minimum on the wire.
	require.Len(t, got.Payload, MinPayload)
	require.Equal(t, []byte("hello, network"), got.Payload[:len(f.Payload)])
}

func TestMAC_Frame_Marshal_PayloadAtOrUnderMinimumNotTruncated(t *testing.T) {
	t.Parallel()
	payload := make([]byte, MinPayload)
	for i := range payload {
		payload[i] = byte(i)
	}
	f := &Frame{
		Dst:       mustMAC(t, "AA:AA:AA:AA:AA:AA"),
		Src:       mustMAC(t, "BB:BB:BB:BB:BB:BB"),
		EtherType: EtherTypeARP,
		Payload:   payload,
	}
	bytes, err := f.Marshal()
	require.NoError(t, err)
	got, err := UnmarshalFrame(bytes)
	require.NoError(t, err)
	require.Equal(t, payload, got.Payload)
}

func TestMAC_Frame_Marshal_RejectsOversizedPayload(t *testing.T) {
	t.Parallel()
	f := &Frame{Payload: make([]byte, MaxPayload+1)}
	_, err := f.Marshal()
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestMAC_UnmarshalFrame_RejectsCorruptedBytes(t *testing.T) {
	t.Parallel()
	f := &Frame{
		Dst:       mustMAC(t, "AA:AA:AA:AA:AA:AA"),
		Src:       mustMAC(t, "BB:BB:BB:BB:BB:BB"),
		EtherType: EtherTypeIPv4,
		Payload:   []byte("payload data here"),
	}
	bytes, err := f.Marshal()
	require.NoError(t, err)

	corrupted := make([]byte, len(bytes))
	copy(corrupted, bytes)
	corrupted[20] ^= 0xFF

	_, err = UnmarshalFrame(corrupted)
	require.ErrorIs(t, err, ErrBadFCS)
}

func TestMAC_UnmarshalFrame_RejectsTruncatedBuffer(t *testing.T) {
	t.Parallel()
	_, err := UnmarshalFrame([]byte{1, 2, 3})
	require.Error(t, err)
}
