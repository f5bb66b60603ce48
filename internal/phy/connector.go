package phy

import "github.com/malbeclabs/netsim/internal/engine"

// Owner is the small capability interface a Connector's owner (a NIC,
// Bridge port, or Hub port) implements to receive sense/cease callbacks,
// dispatched as direct function calls rather than through an observer
// registry.
type Owner interface {
	OnSense(eng *engine.Engine)
	OnCease(eng *engine.Engine, data []byte, sender *Connector)
}

// Connector is the endpoint of a cable attached to exactly one Owner. A
// Connector may be attached to at most one Cable at a time; the Cable
// holds the canonical Connector→position mapping.
type Connector struct {
	owner Owner
	cable *Cable
}

// NewConnector returns a Connector that will deliver sense/cease events to
// owner.
func NewConnector(owner Owner) *Connector {
	return &Connector{owner: owner}
}

// Cable returns the cable this connector is attached to, or nil.
func (c *Connector) Cable() *Cable { return c.cable }

// Transmit drives bytes onto the attached cable. It returns ErrNotAttached
// if the connector has no cable.
func (c *Connector) Transmit(eng *engine.Engine, bytes []byte) (engine.Time, error) {
	if c.cable == nil {
		return 0, ErrNotAttached
	}
	return c.cable.Transmit(eng, c, bytes), nil
}

// Jam emits a jam signal on the attached cable.
func (c *Connector) Jam(eng *engine.Engine) (engine.Time, error) {
	if c.cable == nil {
		return 0, ErrNotAttached
	}
	return c.cable.Jam(eng, c), nil
}

func (c *Connector) onSense(eng *engine.Engine) {
	c.owner.OnSense(eng)
}

func (c *Connector) onCease(eng *engine.Engine, data []byte, sender *Connector) {
	c.owner.OnCease(eng, data, sender)
}

// IsJam reports whether a SignalCease's data represents a jam (nil
// payload).
func IsJam(data []byte) bool { return data == nil }
