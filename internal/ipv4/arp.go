package ipv4

import (
	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/malbeclabs/netsim/internal/simmetrics"
)

// arpExpiry is how long a learned (IP,MAC) mapping stays valid.
const arpExpiry engine.Time = 10 * 60 * 1e9

// ArpPacket is the simulator's ARP message (simulator-internal wire
// format, not real 802.3 ARP): a request/response flag plus sender and
// target MAC/IP pairs.
type ArpPacket struct {
	IsRequest bool
	SenderMac ipaddr.MAC
	SenderIp  ipaddr.IPv4
	TargetMac ipaddr.MAC
	TargetIp  ipaddr.IPv4
}

// Marshal encodes the packet as a 1-byte bool, 6-byte sender MAC, 4-byte
// sender IP, 6-byte target MAC, 4-byte target IP.
func (p *ArpPacket) Marshal() ([]byte, error) {
	b := ipaddr.NewByteBuilder(21)
	if p.IsRequest {
		b.U8(1)
	} else {
		b.U8(0)
	}
	b.Bytes6(p.SenderMac).Bytes4(p.SenderIp).Bytes6(p.TargetMac).Bytes4(p.TargetIp)
	return b.Bytes(), nil
}

// UnmarshalArpPacket is the inverse of Marshal.
func UnmarshalArpPacket(buf []byte) (*ArpPacket, error) {
	r := ipaddr.NewByteReader(buf)
	flag, err := r.U8()
	if err != nil {
		return nil, ErrMalformedArpPacket
	}
	senderMac, err := r.Bytes6()
	if err != nil {
		return nil, ErrMalformedArpPacket
	}
	senderIp, err := r.Bytes4()
	if err != nil {
		return nil, ErrMalformedArpPacket
	}
	targetMac, err := r.Bytes6()
	if err != nil {
		return nil, ErrMalformedArpPacket
	}
	targetIp, err := r.Bytes4()
	if err != nil {
		return nil, ErrMalformedArpPacket
	}
	return &ArpPacket{
		IsRequest: flag != 0,
		SenderMac: ipaddr.MAC(senderMac),
		SenderIp:  ipaddr.IPv4(senderIp),
		TargetMac: ipaddr.MAC(targetMac),
		TargetIp:  ipaddr.IPv4(targetIp),
	}, nil
}

type arpEntry struct {
	mac    ipaddr.MAC
	expiry engine.Time
}

// ArpCache is one interface's ARP cache: a map of live (IP,MAC) entries
// plus a set of IPs with an in-flight resolution request, so
// Engine.outputToNextHop never emits more than one request per pending IP.
type ArpCache struct {
	ifaceName  string
	entries    map[ipaddr.IPv4]arpEntry
	inProgress map[ipaddr.IPv4]bool
	metrics    *simmetrics.Registry
}

// NewArpCache returns an empty cache for one interface.
func NewArpCache(ifaceName string, metrics *simmetrics.Registry) *ArpCache {
	return &ArpCache{
		ifaceName:  ifaceName,
		entries:    make(map[ipaddr.IPv4]arpEntry),
		inProgress: make(map[ipaddr.IPv4]bool),
		metrics:    metrics,
	}
}

// Lookup returns the cached MAC for ip if a non-expired entry exists.
func (c *ArpCache) Lookup(now engine.Time, ip ipaddr.IPv4) (ipaddr.MAC, bool) {
	e, ok := c.entries[ip]
	if !ok || now > e.expiry {
		if c.metrics != nil {
			c.metrics.ArpCacheMisses.WithLabelValues(c.ifaceName).Inc()
		}
		return ipaddr.MAC{}, false
	}
	if c.metrics != nil {
		c.metrics.ArpCacheHits.WithLabelValues(c.ifaceName).Inc()
	}
	return e.mac, true
}

// Learn records or refreshes a (IP,MAC) mapping.
func (c *ArpCache) Learn(now engine.Time, ip ipaddr.IPv4, mac ipaddr.MAC) {
	c.entries[ip] = arpEntry{mac: mac, expiry: now + arpExpiry}
}

// MarkInProgress adds ip to the in-flight resolution set and reports
// whether it was newly added (true means the caller should emit a
// request; false means one is already outstanding).
func (c *ArpCache) MarkInProgress(ip ipaddr.IPv4) bool {
	if c.inProgress[ip] {
		return false
	}
	c.inProgress[ip] = true
	return true
}

// ClearInProgress removes ip from the in-flight set.
func (c *ArpCache) ClearInProgress(ip ipaddr.IPv4) {
	delete(c.inProgress, ip)
}

// ArpEntryView is a read-only snapshot of one cache entry, for
// presentation layers (e.g. `netsimd run`'s final report).
type ArpEntryView struct {
	IP      ipaddr.IPv4
	MAC     ipaddr.MAC
	Expiry  engine.Time
	Expired bool
}

// Entries returns a snapshot of every entry currently in the cache,
// including expired ones (the caller decides how to present them).
func (c *ArpCache) Entries(now engine.Time) []ArpEntryView {
	out := make([]ArpEntryView, 0, len(c.entries))
	for ip, e := range c.entries {
		out = append(out, ArpEntryView{IP: ip, MAC: e.mac, Expiry: e.expiry, Expired: now > e.expiry})
	}
	return out
}
