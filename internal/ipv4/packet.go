// Package ipv4 implements the network layer: the IpPacket/IcmpPacket/
// ArpPacket wire codecs, the ARP cache, routing table, and the per-host
// IPv4 engine (output fragmentation/ARP-gating, input TTL/reassembly/
// routing/ICMP generation).
package ipv4

import (
	"encoding/binary"

	"github.com/malbeclabs/netsim/internal/ipaddr"
)

// EtherTypeIPv4 and EtherTypeARP mirror mac.EtherTypeIPv4/EtherTypeARP.
// Duplicated here (rather than importing the mac package) so ipv4 stays a
// layer above the link layer, depending only on the addressing helpers in
// ipaddr.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
)

const (
	ProtocolICMP uint8 = 1
	ProtocolTCP  uint8 = 6
	ProtocolUDP  uint8 = 17
)

const (
	FlagDF uint8 = 0x2
	FlagMF uint8 = 0x1
)

// HeaderLen is the fixed IPv4 header length this simulator uses; options
// are not modeled, so IHL is always 5.
const HeaderLen = 20

// IpPacket is the simulator's IPv4 datagram.
type IpPacket struct {
	Version        uint8
	IHL            uint8
	DSCP           uint8
	Identification uint16
	Flags          uint8
	FragmentOffset uint16 // units of 8 bytes
	TTL            uint8
	Protocol       uint8
	Checksum       uint16
	Src            ipaddr.IPv4
	Dst            ipaddr.IPv4
	Data           []byte
}

// Marshal encodes the packet's byte layout: byte0 = (IHL<<4)|version; byte1
// = DSCP; u16 totalLength; u16 ident; u16 flagsAndOffset =
// (fragmentOffset<<3)|flags; u8 TTL; u8 protocol; u16 checksum; 4-byte src;
// 4-byte dst; then Data. TotalLength is always derived from
// HeaderLen+len(Data) rather than trusting a stale field.
func (p *IpPacket) Marshal() ([]byte, error) {
	totalLength := HeaderLen + len(p.Data)
	b := ipaddr.NewByteBuilder(HeaderLen + len(p.Data))
	b.U8((p.IHL << 4) | p.Version)
	b.U8(p.DSCP)
	b.U16(uint16(totalLength))
	b.U16(p.Identification)
	flagsAndOffset := (p.FragmentOffset << 3) | uint16(p.Flags)
	b.U16(flagsAndOffset)
	b.U8(p.TTL)
	b.U8(p.Protocol)
	b.U16(0) // checksum placeholder, filled below
	b.Bytes4(p.Src)
	b.Bytes4(p.Dst)
	buf := b.Bytes()
	cs := checksum16(buf[:HeaderLen])
	binary.BigEndian.PutUint16(buf[10:12], cs)
	buf = append(buf, p.Data...)
	return buf, nil
}

// UnmarshalIpPacket decodes and checksum-verifies a packet produced by
// Marshal.
func UnmarshalIpPacket(buf []byte) (*IpPacket, error) {
	r := ipaddr.NewByteReader(buf)
	b0, err := r.U8()
	if err != nil {
		return nil, err
	}
	dscp, err := r.U8()
	if err != nil {
		return nil, err
	}
	totalLength, err := r.U16()
	if err != nil {
		return nil, err
	}
	ident, err := r.U16()
	if err != nil {
		return nil, err
	}
	flagsAndOffset, err := r.U16()
	if err != nil {
		return nil, err
	}
	ttl, err := r.U8()
	if err != nil {
		return nil, err
	}
	protocol, err := r.U8()
	if err != nil {
		return nil, err
	}
	checksum, err := r.U16()
	if err != nil {
		return nil, err
	}
	src, err := r.Bytes4()
	if err != nil {
		return nil, err
	}
	dst, err := r.Bytes4()
	if err != nil {
		return nil, err
	}
	if checksum16(buf[:HeaderLen]) != 0 {
		return nil, ErrBadChecksum
	}
	dataLen := int(totalLength) - HeaderLen
	if dataLen < 0 {
		dataLen = 0
	}
	data, err := r.Raw(dataLen)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)

	return &IpPacket{
		Version:        b0 & 0xF,
		IHL:            b0 >> 4,
		DSCP:           dscp,
		Identification: ident,
		Flags:          uint8(flagsAndOffset & 0x7),
		FragmentOffset: flagsAndOffset >> 3,
		TTL:            ttl,
		Protocol:       protocol,
		Checksum:       checksum,
		Src:            ipaddr.IPv4(src),
		Dst:            ipaddr.IPv4(dst),
		Data:           out,
	}, nil
}

// IsFragment reports whether p is part of a fragmented datagram (MF set or
// a non-zero fragment offset).
func (p *IpPacket) IsFragment() bool {
	return p.Flags&FlagMF != 0 || p.FragmentOffset > 0
}
