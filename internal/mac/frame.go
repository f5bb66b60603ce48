// Package mac implements the 802.3-style data-link layer: the Frame wire
// codec, a half-duplex CSMA/CD station NIC, and the learning Bridge.
package mac

import (
	"errors"
	"hash/crc32"

	"github.com/malbeclabs/netsim/internal/ipaddr"
)

const (
	// EtherTypeIPv4 and EtherTypeARP are the only ethertypes this
	// simulator's core produces.
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806

	MinPayload = 46
	MaxPayload = 1500
)

// ErrPayloadTooLarge is returned by Frame.Marshal for a payload over
// MaxPayload bytes.
var ErrPayloadTooLarge = errors.New("frame payload exceeds 1500 bytes")

// ErrBadFCS is returned by UnmarshalFrame when the recomputed CRC-32 does
// not match the trailer.
var ErrBadFCS = errors.New("frame checksum (FCS) mismatch")

// Frame is the simulator's internal 802.3-style frame: dst/src MAC,
// ethertype, payload (zero-padded to a 46-byte minimum), and a CRC-32 FCS.
type Frame struct {
	Dst       ipaddr.MAC
	Src       ipaddr.MAC
	EtherType uint16
	Payload   []byte
}

func fcs(dst, src ipaddr.MAC, etherType uint16, payload []byte) uint32 {
	b := ipaddr.NewByteBuilder(12 + len(payload))
	b.Bytes6(dst).Bytes6(src).U16(etherType).Raw(payload)
	return crc32.ChecksumIEEE(b.Bytes())
}

// Marshal encodes the frame as: 6-byte dst, 6-byte src, u16 etherType, i32
// payloadLength, payload (zero-padded to MinPayload), u32 FCS. The explicit
// payload-length field is a simulator-internal convenience (see DESIGN.md)
// since the medium model has no preamble/SFD to delimit frames.
func (f *Frame) Marshal() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	payload := f.Payload
	if len(payload) < MinPayload {
		padded := make([]byte, MinPayload)
		copy(padded, payload)
		payload = padded
	}

	b := ipaddr.NewByteBuilder(18 + len(payload) + 4)
	b.Bytes6(f.Dst).Bytes6(f.Src).U16(f.EtherType).U32(uint32(len(payload))).Raw(payload)
	b.U32(fcs(f.Dst, f.Src, f.EtherType, payload))
	return b.Bytes(), nil
}

// UnmarshalFrame decodes and FCS-verifies a frame produced by Marshal.
func UnmarshalFrame(buf []byte) (*Frame, error) {
	r := ipaddr.NewByteReader(buf)
	dst, err := r.Bytes6()
	if err != nil {
		return nil, err
	}
	src, err := r.Bytes6()
	if err != nil {
		return nil, err
	}
	etherType, err := r.U16()
	if err != nil {
		return nil, err
	}
	payloadLen, err := r.U32()
	if err != nil {
		return nil, err
	}
	payload, err := r.Raw(int(payloadLen))
	if err != nil {
		return nil, err
	}
	wantFCS, err := r.U32()
	if err != nil {
		return nil, err
	}
	if got := fcs(ipaddr.MAC(dst), ipaddr.MAC(src), etherType, payload); got != wantFCS {
		return nil, ErrBadFCS
	}
	// Copy the payload slice out of the shared buffer so callers can
	// safely retain it.
	out := make([]byte, len(payload))
	copy(out, payload)
	return &Frame{Dst: ipaddr.MAC(dst), Src: ipaddr.MAC(src), EtherType: etherType, Payload: out}, nil
}
