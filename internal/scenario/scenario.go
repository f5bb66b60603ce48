// Package scenario loads a YAML topology description — cables, hubs,
// bridges, hosts, and their routes — and builds the wired simulator
// components from it: a plain struct decoded from file, validated and
// defaulted by one method, consumed by a Build step that wires the actual
// runtime objects.
package scenario

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/malbeclabs/netsim/internal/host"
	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/malbeclabs/netsim/internal/ipv4"
	"github.com/malbeclabs/netsim/internal/mac"
	"github.com/malbeclabs/netsim/internal/phy"
	"github.com/malbeclabs/netsim/internal/simmetrics"
	"gopkg.in/yaml.v3"
)

// Attachment names exactly one of the two things an interface or bridge
// port can be wired to: a shared Cable segment by name and position, or a
// Hub port index (which Build reaches through a dedicated point-to-point
// Cable between the hub port and the interface).
type Attachment struct {
	Cable    string   `yaml:"cable,omitempty"`
	Position *float64 `yaml:"position,omitempty"`
	Hub      string   `yaml:"hub,omitempty"`
	Port     *int     `yaml:"port,omitempty"`
}

// CableConfig describes one shared-medium segment.
type CableConfig struct {
	Name             string  `yaml:"name"`
	LengthM          float64 `yaml:"lengthM"`
	BitrateBps       float64 `yaml:"bitrateBps"`
	VelocityFactor   float64 `yaml:"velocityFactor"`
	Grid             float64 `yaml:"grid,omitempty"`
	BitErrorRate     float64 `yaml:"bitErrorRate,omitempty"`
	MinBurstErrorLen int     `yaml:"minBurstErrorLen,omitempty"`
	MaxBurstErrorLen int     `yaml:"maxBurstErrorLen,omitempty"`
}

// HubConfig describes a pure repeater.
type HubConfig struct {
	Name           string    `yaml:"name"`
	Ports          int       `yaml:"ports"`
	Distances      []float64 `yaml:"distances,omitempty"`
	VelocityFactor float64   `yaml:"velocityFactor"`
}

// BridgeConfig describes a learning switch.
type BridgeConfig struct {
	Name              string       `yaml:"name"`
	Ports             int          `yaml:"ports"`
	BitrateBps        float64      `yaml:"bitrateBps"`
	FIFOCap           int          `yaml:"fifoCap,omitempty"`
	ProcessingDelayNs int64        `yaml:"processingDelayNs,omitempty"`
	PortAttachments   []Attachment `yaml:"attachments,omitempty"`
}

// InterfaceConfig describes one host interface.
type InterfaceConfig struct {
	Name       string     `yaml:"name"`
	MAC        string     `yaml:"mac,omitempty"`
	IP         string     `yaml:"ip"`
	Netmask    int        `yaml:"netmask"`
	Gateway    string     `yaml:"gateway,omitempty"`
	MTU        int        `yaml:"mtu,omitempty"`
	BitrateBps float64    `yaml:"bitrateBps"`
	FIFOCap    int        `yaml:"fifoCap,omitempty"`
	Attach     Attachment `yaml:"attach"`
}

// RouteConfig describes one routing table entry.
type RouteConfig struct {
	Destination string `yaml:"destination"`
	Netmask     int    `yaml:"netmask"`
	Gateway     string `yaml:"gateway,omitempty"`
	Interface   string `yaml:"interface"`
	Metric      int    `yaml:"metric,omitempty"`
}

// HostConfig describes one simulated machine.
type HostConfig struct {
	Name                 string            `yaml:"name"`
	NodalProcessingDelay int64             `yaml:"nodalProcessingDelayNs,omitempty"`
	InputQueueCap        int               `yaml:"inputQueueCap,omitempty"`
	OutputQueueCap       int               `yaml:"outputQueueCap,omitempty"`
	Interfaces           []InterfaceConfig `yaml:"interfaces"`
	Routes               []RouteConfig     `yaml:"routes,omitempty"`
}

// SendConfig schedules an application-level send at a fixed simulated time.
type SendConfig struct {
	AtNs      int64  `yaml:"atNs"`
	Host      string `yaml:"host"`
	Interface string `yaml:"interface"`
	DstIP     string `yaml:"dstIp"`
	Payload   []byte `yaml:"payload"`
}

// Scenario is the decoded YAML topology file.
type Scenario struct {
	Seed    int64          `yaml:"seed,omitempty"`
	Cables  []CableConfig  `yaml:"cables,omitempty"`
	Hubs    []HubConfig    `yaml:"hubs,omitempty"`
	Bridges []BridgeConfig `yaml:"bridges,omitempty"`
	Hosts   []HostConfig   `yaml:"hosts"`
	Sends   []SendConfig   `yaml:"sends,omitempty"`
}

// Load reads and parses a scenario YAML file, then validates it.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate fills defaults and returns the first descriptive error found.
func (s *Scenario) Validate() error {
	if len(s.Hosts) == 0 {
		return &ValidationError{Field: "hosts", Reason: "at least one host is required"}
	}
	cableNames := make(map[string]bool, len(s.Cables))
	for i, c := range s.Cables {
		if c.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("cables[%d].name", i), Reason: "required"}
		}
		if cableNames[c.Name] {
			return &ValidationError{Field: "cables", Reason: fmt.Sprintf("duplicate name %q", c.Name)}
		}
		cableNames[c.Name] = true
		if c.LengthM <= 0 {
			return &ValidationError{Field: fmt.Sprintf("cables[%d].lengthM", i), Reason: "must be > 0"}
		}
		if c.BitrateBps <= 0 {
			return &ValidationError{Field: fmt.Sprintf("cables[%d].bitrateBps", i), Reason: "must be > 0"}
		}
		if c.VelocityFactor <= 0 {
			s.Cables[i].VelocityFactor = 0.66
		}
	}
	hubNames := make(map[string]bool, len(s.Hubs))
	for i, h := range s.Hubs {
		if h.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("hubs[%d].name", i), Reason: "required"}
		}
		if hubNames[h.Name] {
			return &ValidationError{Field: "hubs", Reason: fmt.Sprintf("duplicate name %q", h.Name)}
		}
		hubNames[h.Name] = true
		if h.Ports <= 0 {
			return &ValidationError{Field: fmt.Sprintf("hubs[%d].ports", i), Reason: "must be > 0"}
		}
		if h.VelocityFactor <= 0 {
			s.Hubs[i].VelocityFactor = 0.66
		}
		if len(h.Distances) == 0 {
			s.Hubs[i].Distances = make([]float64, h.Ports)
		} else if len(h.Distances) != h.Ports {
			return &ValidationError{Field: fmt.Sprintf("hubs[%d].distances", i), Reason: "must have one entry per port"}
		}
	}
	bridgeNames := make(map[string]bool, len(s.Bridges))
	for i, b := range s.Bridges {
		if b.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("bridges[%d].name", i), Reason: "required"}
		}
		if bridgeNames[b.Name] {
			return &ValidationError{Field: "bridges", Reason: fmt.Sprintf("duplicate name %q", b.Name)}
		}
		bridgeNames[b.Name] = true
		if b.Ports <= 0 {
			return &ValidationError{Field: fmt.Sprintf("bridges[%d].ports", i), Reason: "must be > 0"}
		}
		if b.BitrateBps <= 0 {
			return &ValidationError{Field: fmt.Sprintf("bridges[%d].bitrateBps", i), Reason: "must be > 0"}
		}
		if b.ProcessingDelayNs < 0 {
			return &ValidationError{Field: fmt.Sprintf("bridges[%d].processingDelayNs", i), Reason: "must be >= 0"}
		}
		if b.FIFOCap == 0 {
			s.Bridges[i].FIFOCap = defaultFIFOCap
		}
	}
	hostNames := make(map[string]bool, len(s.Hosts))
	for i, h := range s.Hosts {
		if h.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("hosts[%d].name", i), Reason: "required"}
		}
		if hostNames[h.Name] {
			return &ValidationError{Field: "hosts", Reason: fmt.Sprintf("duplicate name %q", h.Name)}
		}
		hostNames[h.Name] = true
		if len(h.Interfaces) == 0 {
			return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces", i), Reason: "at least one interface is required"}
		}
		for j, ifc := range h.Interfaces {
			if ifc.Name == "" {
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].name", i, j), Reason: "required"}
			}
			if _, err := ipaddr.ParseIPv4(ifc.IP); err != nil {
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].ip", i, j), Reason: err.Error()}
			}
			if ifc.Netmask < 0 || ifc.Netmask > 32 {
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].netmask", i, j), Reason: "must be in [0,32]"}
			}
			if ifc.MAC != "" {
				if _, err := ipaddr.ParseMAC(ifc.MAC); err != nil {
					return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].mac", i, j), Reason: err.Error()}
				}
			}
			if ifc.Gateway != "" {
				if _, err := ipaddr.ParseIPv4(ifc.Gateway); err != nil {
					return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].gateway", i, j), Reason: err.Error()}
				}
			}
			if ifc.MTU == 0 {
				s.Hosts[i].Interfaces[j].MTU = defaultMTU
			}
			if ifc.BitrateBps <= 0 {
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].bitrateBps", i, j), Reason: "must be > 0"}
			}
			if ifc.FIFOCap == 0 {
				s.Hosts[i].Interfaces[j].FIFOCap = defaultFIFOCap
			}
			switch {
			case ifc.Attach.Cable != "":
				if !cableNames[ifc.Attach.Cable] {
					return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].attach.cable", i, j), Reason: fmt.Sprintf("unknown cable %q", ifc.Attach.Cable)}
				}
			case ifc.Attach.Hub != "":
				if !hubNames[ifc.Attach.Hub] {
					return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].attach.hub", i, j), Reason: fmt.Sprintf("unknown hub %q", ifc.Attach.Hub)}
				}
				if ifc.Attach.Port == nil {
					return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].attach.port", i, j), Reason: "required when attaching to a hub"}
				}
			default:
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].interfaces[%d].attach", i, j), Reason: "must set cable or hub"}
			}
		}
		for j, r := range h.Routes {
			if _, err := ipaddr.ParseIPv4(r.Destination); err != nil {
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].routes[%d].destination", i, j), Reason: err.Error()}
			}
			if r.Netmask < 0 || r.Netmask > 32 {
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].routes[%d].netmask", i, j), Reason: "must be in [0,32]"}
			}
			if r.Interface == "" {
				return &ValidationError{Field: fmt.Sprintf("hosts[%d].routes[%d].interface", i, j), Reason: "required"}
			}
		}
	}
	for i, snd := range s.Sends {
		if !hostNames[snd.Host] {
			return &ValidationError{Field: fmt.Sprintf("sends[%d].host", i), Reason: fmt.Sprintf("unknown host %q", snd.Host)}
		}
		if _, err := ipaddr.ParseIPv4(snd.DstIP); err != nil {
			return &ValidationError{Field: fmt.Sprintf("sends[%d].dstIp", i), Reason: err.Error()}
		}
	}
	return nil
}

// Topology is the set of wired runtime objects Build produced, kept around
// so a driver (cmd/netsimd) can schedule sends and print a final report.
type Topology struct {
	Engine  *engine.Engine
	Hosts   map[string]*host.Host
	Bridges map[string]*mac.Bridge
	Hubs    map[string]*phy.Hub
	Metrics *simmetrics.Registry
}

// Build constructs every cable/hub/bridge/host the scenario describes,
// wires their connectors together, registers each named object in the
// engine's registry, and schedules any declared sends.
func Build(s *Scenario, log *slog.Logger, metrics *simmetrics.Registry) (*Topology, error) {
	if log == nil {
		log = slog.Default()
	}
	rng := rand.New(rand.NewSource(s.Seed))
	eng := engine.New(log)

	t := &Topology{
		Engine:  eng,
		Hosts:   make(map[string]*host.Host),
		Bridges: make(map[string]*mac.Bridge),
		Hubs:    make(map[string]*phy.Hub),
		Metrics: metrics,
	}

	cables := make(map[string]*phy.Cable, len(s.Cables))
	for _, c := range s.Cables {
		cbl, err := phy.New(phy.Params{
			LengthM: c.LengthM, BitrateBps: c.BitrateBps, VelocityFactor: c.VelocityFactor,
			Grid: c.Grid, BitErrorRate: c.BitErrorRate,
			MinBurstErrorLen: c.MinBurstErrorLen, MaxBurstErrorLen: c.MaxBurstErrorLen,
			Rand: rng,
		})
		if err != nil {
			return nil, fmt.Errorf("building cable %q: %w", c.Name, err)
		}
		cables[c.Name] = cbl
		eng.Registry().Register(c.Name, cbl)
	}

	for _, h := range s.Hubs {
		hub := phy.NewHub(h.Ports, h.Distances, h.VelocityFactor)
		t.Hubs[h.Name] = hub
		eng.Registry().Register(h.Name, hub)
	}

	for _, b := range s.Bridges {
		br := mac.NewBridge(mac.BridgeConfig{
			Name: b.Name, Ports: b.Ports, BitrateBps: b.BitrateBps, FIFOCap: b.FIFOCap,
			ProcessingDelay: engine.Time(b.ProcessingDelayNs),
			Rand:            rng, Metrics: metrics, Log: log,
		})
		t.Bridges[b.Name] = br
		eng.Registry().Register(b.Name, br)
		for i, a := range b.PortAttachments {
			if err := attachConnector(cables, t.Hubs, br.Port(i).Connector(), a, b.BitrateBps); err != nil {
				return nil, fmt.Errorf("attaching %s port %d: %w", b.Name, i, err)
			}
		}
	}

	for _, hc := range s.Hosts {
		hostCfg := host.Config{
			Hostname:             hc.Name,
			NodalProcessingDelay: engine.Time(hc.NodalProcessingDelay),
			InputQueueCap:        orDefault(hc.InputQueueCap, defaultInputCap),
			OutputQueueCap:       orDefault(hc.OutputQueueCap, defaultOutputCap),
			Rand:                 rng,
			Metrics:              metrics,
			Log:                  log,
		}
		for _, ifc := range hc.Interfaces {
			icfg := host.InterfaceConfig{
				Name: ifc.Name, MTU: ifc.MTU, BitrateBps: ifc.BitrateBps, FIFOCap: ifc.FIFOCap,
			}
			icfg.IP, _ = ipaddr.ParseIPv4(ifc.IP)
			icfg.Netmask = ipaddr.Netmask(ifc.Netmask)
			if ifc.MAC != "" {
				icfg.MAC, _ = ipaddr.ParseMAC(ifc.MAC)
			}
			if ifc.Gateway != "" {
				gw, _ := ipaddr.ParseIPv4(ifc.Gateway)
				icfg.Gateway = &gw
			}
			hostCfg.Interfaces = append(hostCfg.Interfaces, icfg)
		}
		hst := host.New(hostCfg)
		t.Hosts[hc.Name] = hst
		eng.Registry().Register(hc.Name, hst)

		for _, ifc := range hc.Interfaces {
			if err := attachConnector(cables, t.Hubs, hst.Connector(ifc.Name), ifc.Attach, ifc.BitrateBps); err != nil {
				return nil, fmt.Errorf("attaching %s/%s: %w", hc.Name, ifc.Name, err)
			}
		}
		for _, r := range hc.Routes {
			dst, _ := ipaddr.ParseIPv4(r.Destination)
			route := &ipv4.Route{
				Destination: dst, Netmask: ipaddr.Netmask(r.Netmask),
				Interface: findInterface(hst, r.Interface), Metric: r.Metric,
			}
			if r.Gateway != "" {
				gw, _ := ipaddr.ParseIPv4(r.Gateway)
				route.Gateway = &gw
			}
			hst.AddRoute(route)
		}
	}

	for _, snd := range s.Sends {
		hst, ok := t.Hosts[snd.Host]
		if !ok {
			continue
		}
		dst, _ := ipaddr.ParseIPv4(snd.DstIP)
		ifName, payload := snd.Interface, snd.Payload
		eng.ScheduleCallback(engine.Time(snd.AtNs), func(e *engine.Engine) {
			if err := hst.Output(e, ifName, dst, payload); err != nil {
				log.Warn("scheduled send failed", "host", snd.Host, "err", err)
			}
		})
	}

	return t, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// findInterface looks up a host's ipv4.Interface by name through its IPv4
// engine's InterfaceByName, so routes reference the same *ipv4.Interface
// values the engine already holds.
func findInterface(h *host.Host, name string) *ipv4.Interface {
	return h.IPv4().InterfaceByName(name)
}

// attachConnector wires c to whichever medium a holds: either directly to
// a named Cable at an explicit position, or to a named Hub's port through
// a dedicated point-to-point Cable running at bitrateBps (matching the
// station's own NIC bitrate keeps the hub leg's framing times consistent
// with the CSMA/CD timing the NIC computes for itself).
func attachConnector(cables map[string]*phy.Cable, hubs map[string]*phy.Hub, c *phy.Connector, a Attachment, bitrateBps float64) error {
	if a.Cable != "" {
		cbl := cables[a.Cable]
		pos := 0.0
		if a.Position != nil {
			pos = *a.Position
		}
		return cbl.Attach(c, pos)
	}
	hub := hubs[a.Hub]
	link, err := phy.New(phy.Params{LengthM: 10, BitrateBps: bitrateBps, VelocityFactor: 1})
	if err != nil {
		return err
	}
	if err := link.Attach(hub.Port(*a.Port), 0); err != nil {
		return err
	}
	return link.Attach(c, 5)
}
