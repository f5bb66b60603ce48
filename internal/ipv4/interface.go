package ipv4

import (
	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/malbeclabs/netsim/internal/ipaddr"
)

// Link is the small capability an Interface needs from its link layer: its
// hardware address and a way to hand a frame payload down to it. mac.NIC
// satisfies this directly.
type Link interface {
	MAC() ipaddr.MAC
	Output(eng *engine.Engine, dst ipaddr.MAC, payload []byte, etherType uint16) error
}

// Interface is one host network interface: its IP configuration and a
// handle to the link layer that actually moves bytes.
type Interface struct {
	Name     string
	Hostname string
	IP       ipaddr.IPv4
	Netmask  ipaddr.Netmask
	Gateway  *ipaddr.IPv4
	MTU      int
	Link     Link
}

// Subnet returns the interface's local network as a CIDR.
func (i *Interface) Subnet() ipaddr.CIDR {
	return ipaddr.CIDR{IP: i.IP, Bits: i.Netmask}
}
