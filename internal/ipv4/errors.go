package ipv4

import "errors"

var (
	// ErrUnknownInterface is returned by Engine operations naming an
	// interface the engine was not configured with.
	ErrUnknownInterface = errors.New("unknown interface")
	// ErrNoGateway is returned when a destination is off-link and the
	// interface has no configured gateway.
	ErrNoGateway = errors.New("destination is off-link and interface has no gateway")
	// ErrMTUTooSmall is returned when an interface's MTU cannot even fit
	// a bare IPv4 header.
	ErrMTUTooSmall = errors.New("interface MTU too small for an IPv4 header")
	// ErrBadChecksum is returned by UnmarshalIpPacket/UnmarshalIcmpPacket
	// when the recomputed checksum is not zero.
	ErrBadChecksum = errors.New("checksum mismatch")
	// ErrMalformedArpPacket is returned by UnmarshalArpPacket on a
	// truncated buffer.
	ErrMalformedArpPacket = errors.New("malformed arp packet")
)
