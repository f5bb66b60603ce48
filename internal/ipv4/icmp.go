package ipv4

import "encoding/binary"

// ICMP types used by this simulator's error generators. Chosen to match
// real ICMPv4 type/code numbers even though the wire format is otherwise
// simulator-internal, since it costs nothing and helps a reader recognize
// them.
const (
	IcmpTypeDestinationUnreachable uint8 = 3
	IcmpTypeSourceQuench           uint8 = 4
	IcmpTypeTimeExceeded           uint8 = 11

	IcmpCodeNetworkUnreachable uint8 = 0
	IcmpCodeFragmentationNeeded uint8 = 4
	IcmpCodeTTLExceededInTransit uint8 = 0
)

// IcmpPacket is the simulator's ICMP message: type, code, checksum, and an
// opaque data payload.
type IcmpPacket struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	Data     []byte
}

// Marshal encodes the packet as u8 type, u8 code, u16 checksum, then Data,
// with the checksum computed over the whole encoding (field included).
func (p *IcmpPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 4+len(p.Data))
	buf[0] = p.Type
	buf[1] = p.Code
	copy(buf[4:], p.Data)
	cs := checksum16(buf)
	binary.BigEndian.PutUint16(buf[2:4], cs)
	return buf, nil
}

// UnmarshalIcmpPacket decodes and checksum-verifies an ICMP message.
func UnmarshalIcmpPacket(buf []byte) (*IcmpPacket, error) {
	if len(buf) < 4 {
		return nil, ErrBadChecksum
	}
	if checksum16(buf) != 0 {
		return nil, ErrBadChecksum
	}
	data := make([]byte, len(buf)-4)
	copy(data, buf[4:])
	return &IcmpPacket{
		Type:     buf[0],
		Code:     buf[1],
		Checksum: binary.BigEndian.Uint16(buf[2:4]),
		Data:     data,
	}, nil
}

// triggerPayload builds the classic ICMP error payload: the triggering
// packet's IP header plus the first 8 bytes of its data (zero-padded if
// shorter).
func triggerPayload(trigger *IpPacket) []byte {
	hdr, _ := trigger.Marshal()
	if len(hdr) > HeaderLen {
		hdr = hdr[:HeaderLen]
	}
	first8 := make([]byte, 8)
	copy(first8, trigger.Data)
	out := make([]byte, 0, len(hdr)+8)
	out = append(out, hdr...)
	out = append(out, first8...)
	return out
}

// NewTimeExceeded builds the ICMP sent back to a packet's source when its
// TTL reaches zero in transit.
func NewTimeExceeded(trigger *IpPacket) *IcmpPacket {
	return &IcmpPacket{Type: IcmpTypeTimeExceeded, Code: IcmpCodeTTLExceededInTransit, Data: triggerPayload(trigger)}
}

// NewDestinationNetworkUnreachable builds the ICMP sent when routing finds
// no matching route.
func NewDestinationNetworkUnreachable(trigger *IpPacket) *IcmpPacket {
	return &IcmpPacket{Type: IcmpTypeDestinationUnreachable, Code: IcmpCodeNetworkUnreachable, Data: triggerPayload(trigger)}
}

// NewFragmentationRequired builds the ICMP sent when a packet exceeds the
// next hop's MTU but has the Don't-Fragment flag set.
func NewFragmentationRequired(trigger *IpPacket) *IcmpPacket {
	return &IcmpPacket{Type: IcmpTypeDestinationUnreachable, Code: IcmpCodeFragmentationNeeded, Data: triggerPayload(trigger)}
}

// NewSourceQuench builds the ICMP sent when a capped queue overflows on
// ingress.
func NewSourceQuench(trigger *IpPacket) *IcmpPacket {
	return &IcmpPacket{Type: IcmpTypeSourceQuench, Data: triggerPayload(trigger)}
}
