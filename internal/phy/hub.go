package phy

import "github.com/malbeclabs/netsim/internal/engine"

// Hub is a pure repeater: it re-emits Sense/Cease observed on one port onto
// every other port, delayed by that port pair's configured distance,
// without participating in CSMA/CD itself — collisions are still detected
// at the attached stations, exactly as with a real repeater hub.
type Hub struct {
	ports     []*Connector
	distances []float64 // meters, port i's distance from the hub's internal backplane
	propSpeed float64
}

// NewHub builds a Hub with nPorts ports. distances[i] is port i's distance
// (in meters) from the hub's internal repeater point; propagation speed is
// speedOfLight*velocityFactor, matching Cable's formula.
func NewHub(nPorts int, distances []float64, velocityFactor float64) *Hub {
	h := &Hub{
		distances: distances,
		propSpeed: speedOfLight * velocityFactor,
	}
	h.ports = make([]*Connector, nPorts)
	for i := range h.ports {
		h.ports[i] = NewConnector(&hubPort{hub: h, idx: i})
	}
	return h
}

// Port returns the Connector for port i, meant to be attached to a Cable
// running to one station.
func (h *Hub) Port(i int) *Connector { return h.ports[i] }

func (h *Hub) relayDelay(from, to int) engine.Time {
	d := h.distances[from] + h.distances[to]
	if d < 0 {
		d = -d
	}
	if h.propSpeed <= 0 {
		return 0
	}
	return engine.Time(d * 1e9 / h.propSpeed)
}

func (h *Hub) onSense(eng *engine.Engine, from int) {
	for j := range h.ports {
		if j == from {
			continue
		}
		delay := h.relayDelay(from, j)
		peer := otherConnector(h.ports[j])
		if peer == nil {
			continue
		}
		eng.ScheduleCallback(delay, func(e *engine.Engine) { peer.owner.OnSense(e) })
	}
}

func (h *Hub) onCease(eng *engine.Engine, from int, data []byte, sender *Connector) {
	for j := range h.ports {
		if j == from {
			continue
		}
		delay := h.relayDelay(from, j)
		peer := otherConnector(h.ports[j])
		if peer == nil {
			continue
		}
		eng.ScheduleCallback(delay, func(e *engine.Engine) { peer.owner.OnCease(e, data, sender) })
	}
}

// otherConnector returns the remote endpoint of c's point-to-point cable
// link (hub ports are always wired one-to-one with a station NIC).
func otherConnector(c *Connector) *Connector {
	if c.cable == nil {
		return nil
	}
	for peer := range c.cable.connectors {
		if peer != c {
			return peer
		}
	}
	return nil
}

// hubPort adapts a single Hub port to the Connector Owner interface.
type hubPort struct {
	hub *Hub
	idx int
}

func (p *hubPort) OnSense(eng *engine.Engine)                         { p.hub.onSense(eng, p.idx) }
func (p *hubPort) OnCease(eng *engine.Engine, data []byte, sender *Connector) {
	p.hub.onCease(eng, p.idx, data, sender)
}
