package ipaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// MAC is a 6-byte 802.3 hardware address.
type MAC [6]byte

// Broadcast is the all-ones MAC address used for ARP requests.
var Broadcast = MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ParseMAC parses "XX:XX:XX:XX:XX:XX" or "XX-XX-XX-XX-XX-XX", two hex
// digits per group, either separator accepted but not mixed.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	sep := byte(':')
	if strings.IndexByte(s, '-') >= 0 {
		sep = '-'
	}
	parts := strings.Split(s, string(sep))
	if len(parts) != 6 {
		return m, &ErrInvalidFormat{Kind: "mac", Value: s}
	}
	for i, p := range parts {
		if len(p) != 2 {
			return m, &ErrInvalidFormat{Kind: "mac", Value: s}
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return m, &ErrInvalidFormat{Kind: "mac", Value: s}
		}
		m[i] = byte(v)
	}
	return m, nil
}

// String renders colon-separated uppercase hex, e.g. "AA:BB:CC:DD:EE:FF".
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast reports whether m is the all-ones broadcast address.
func (m MAC) IsBroadcast() bool { return m == Broadcast }
