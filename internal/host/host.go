// Package host wires together one simulated machine's link-layer NICs and
// its IPv4 engine: one long-lived object holding a handful of maps,
// advanced only by callbacks dispatched off the explicit *engine.Engine
// handle.
package host

import (
	"hash/fnv"
	"log/slog"
	"math/rand"

	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/malbeclabs/netsim/internal/ipv4"
	"github.com/malbeclabs/netsim/internal/mac"
	"github.com/malbeclabs/netsim/internal/phy"
	"github.com/malbeclabs/netsim/internal/simmetrics"
)

// defaultNodalProcessingDelay is the per-host input-queue service time
// default.
const defaultNodalProcessingDelay engine.Time = 20000

// InterfaceConfig describes one interface to add at construction.
type InterfaceConfig struct {
	Name       string
	MAC        ipaddr.MAC // zero value requests an auto-generated address
	IP         ipaddr.IPv4
	Netmask    ipaddr.Netmask
	Gateway    *ipaddr.IPv4
	MTU        int
	BitrateBps float64
	FIFOCap    int
}

// Config groups Host construction parameters.
type Config struct {
	Hostname             string
	Interfaces           []InterfaceConfig
	NodalProcessingDelay engine.Time
	InputQueueCap        int
	OutputQueueCap       int
	Rand                 *rand.Rand
	Metrics              *simmetrics.Registry
	Log                  *slog.Logger
}

// Host owns its interfaces (each an independent mac.NIC), a routing table,
// and an ipv4.Engine: Host owns Interfaces, Interfaces own their NIC, and
// NICs own their Connector.
type Host struct {
	hostname string
	nics     map[string]*mac.NIC
	routes   *ipv4.RoutingTable
	ipv4     *ipv4.Engine
	log      *slog.Logger
}

// New builds a Host with one mac.NIC per configured interface and an
// ipv4.Engine wired to all of them.
func New(cfg Config) *Host {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	nodalDelay := cfg.NodalProcessingDelay
	if nodalDelay == 0 {
		nodalDelay = defaultNodalProcessingDelay
	}

	h := &Host{
		hostname: cfg.Hostname,
		nics:     make(map[string]*mac.NIC),
		routes:   ipv4.NewRoutingTable(),
		log:      log,
	}

	ifaces := make(map[string]*ipv4.Interface, len(cfg.Interfaces))
	for _, ic := range cfg.Interfaces {
		hwAddr := ic.MAC
		if hwAddr == (ipaddr.MAC{}) {
			// Derived from "hostname/interface": unicast, locally administered.
			sum := fnv.New64a()
			sum.Write([]byte(cfg.Hostname + "/" + ic.Name))
			copy(hwAddr[:], sum.Sum(nil))
			hwAddr[0] = hwAddr[0]&^0x01 | 0x02
		}
		nic := mac.NewNIC(mac.NICConfig{
			Name:       cfg.Hostname + "/" + ic.Name,
			MAC:        hwAddr,
			BitrateBps: ic.BitrateBps,
			FIFOCap:    ic.FIFOCap,
			Rand:       cfg.Rand,
			Metrics:    cfg.Metrics,
			Log:        log,
		})
		h.nics[ic.Name] = nic

		ifc := &ipv4.Interface{
			Name: ic.Name, Hostname: cfg.Hostname, IP: ic.IP, Netmask: ic.Netmask,
			Gateway: ic.Gateway, MTU: ic.MTU, Link: nic,
		}
		ifaces[ic.Name] = ifc
	}

	h.ipv4 = ipv4.New(ipv4.Config{
		Interfaces:           ifaces,
		RoutingTable:         h.routes,
		NodalProcessingDelay: nodalDelay,
		InputQueueCap:        cfg.InputQueueCap,
		OutputQueueCap:       cfg.OutputQueueCap,
		Metrics:              cfg.Metrics,
		Log:                  log,
	})

	for name, nic := range h.nics {
		ifcName := name
		nic.OnFrame(func(eng *engine.Engine, f *mac.Frame) {
			h.ipv4.OnInput(eng, ifcName, f.Payload, f.EtherType)
		})
		nic.OnSendFifoEmpty(func(eng *engine.Engine) {
			h.ipv4.OnAvailableToSend(eng, ifcName)
		})
	}

	return h
}

// Hostname returns the host's configured name.
func (h *Host) Hostname() string { return h.hostname }

// InterfaceNames returns the names of every interface this host owns, for
// presentation layers that need to enumerate them (ARP/queue reports).
func (h *Host) InterfaceNames() []string {
	names := make([]string, 0, len(h.nics))
	for name := range h.nics {
		names = append(names, name)
	}
	return names
}

// Connector returns the Connector for interface name, to attach it to a
// Cable or Hub port.
func (h *Host) Connector(name string) *phy.Connector {
	nic, ok := h.nics[name]
	if !ok {
		return nil
	}
	return nic.Connector()
}

// AddRoute inserts a route into the host's routing table.
func (h *Host) AddRoute(r *ipv4.Route) { h.routes.Add(r) }

// RemoveRoute deletes a route from the host's routing table.
func (h *Host) RemoveRoute(r *ipv4.Route) bool { return h.routes.Remove(r) }

// RoutingTable returns the host's routing table.
func (h *Host) RoutingTable() *ipv4.RoutingTable { return h.routes }

// IPv4 returns the host's IPv4 engine, for direct inspection (ARP tables,
// queue depths) by presentation layers.
func (h *Host) IPv4() *ipv4.Engine { return h.ipv4 }

// Output sends payload to dstIp out interface ifName, using TCP as the
// stub upper-layer protocol.
func (h *Host) Output(eng *engine.Engine, ifName string, dstIp ipaddr.IPv4, payload []byte) error {
	return h.ipv4.Output(eng, ifName, dstIp, payload, ipv4.ProtocolTCP)
}
