// Package phy implements the shared-medium physical layer: Cable,
// Connector, Hub, and the optional burst-error distortion model.
package phy

import (
	"math"
	"math/rand"

	"github.com/malbeclabs/netsim/internal/engine"
)

// speedOfLight is c in m/s; a Cable's propagation speed is
// speedOfLight * VelocityFactor.
const speedOfLight = 299792458.0

// Params configures a Cable at construction. Grid, if non-zero, is the
// installation-grid spacing (e.g. 2.5m for 10BASE5, 0.5m for 10BASE2) every
// attached connector's position must be a multiple of.
type Params struct {
	LengthM          float64
	BitrateBps       float64
	VelocityFactor   float64
	FullDuplex       bool
	Grid             float64
	BitErrorRate     float64
	MinBurstErrorLen int
	MaxBurstErrorLen int
	Rand             *rand.Rand // nil uses a new source seeded with 1
}

// Cable models a shared wired segment. It turns a connector's transmission
// into per-connector SignalSense/SignalCease events delayed by
// propagation, and supports jamming to model a CSMA/CD collision.
type Cable struct {
	params      Params
	propSpeed   float64
	connectors  map[*Connector]float64 // position in meters
	rng         *rand.Rand
}

// New validates params and constructs an empty Cable.
func New(p Params) (*Cable, error) {
	if p.LengthM <= 0 {
		return nil, &ConfigError{Field: "LengthM", Reason: "must be > 0"}
	}
	if p.BitrateBps <= 0 {
		return nil, &ConfigError{Field: "BitrateBps", Reason: "must be > 0"}
	}
	if p.VelocityFactor <= 0 || p.VelocityFactor > 1 {
		return nil, &ConfigError{Field: "VelocityFactor", Reason: "must be in (0,1]"}
	}
	if p.BitErrorRate < 0 || p.BitErrorRate > 1 {
		return nil, &ConfigError{Field: "BitErrorRate", Reason: "must be in [0,1]"}
	}
	if p.BitErrorRate > 0 && p.MinBurstErrorLen > p.MaxBurstErrorLen {
		return nil, &ConfigError{Field: "MinBurstErrorLen", Reason: "must be <= MaxBurstErrorLen"}
	}
	rng := p.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Cable{
		params:     p,
		propSpeed:  speedOfLight * p.VelocityFactor,
		connectors: make(map[*Connector]float64),
		rng:        rng,
	}, nil
}

// Attach wires c to the cable at position meters. Position must be unique
// among this cable's connectors and, if a grid is configured, a multiple
// of it.
func (cbl *Cable) Attach(c *Connector, position float64) error {
	if c.cable != nil {
		return ErrAlreadyAttached
	}
	if cbl.params.Grid > 0 {
		units := position / cbl.params.Grid
		if math.Abs(units-math.Round(units)) > 1e-9 {
			return ErrPositionOffGrid
		}
	}
	for _, p := range cbl.connectors {
		if p == position {
			return ErrPositionTaken
		}
	}
	cbl.connectors[c] = position
	c.cable = cbl
	return nil
}

// Detach removes c from the cable.
func (cbl *Cable) Detach(c *Connector) {
	delete(cbl.connectors, c)
	c.cable = nil
}

// transmitTimeNs is the duration, in simulated nanoseconds, of n bytes on this
// cable.
func (cbl *Cable) transmitTimeNs(nBytes int) engine.Time {
	return engine.Time(float64(nBytes) * 8 * 1e9 / cbl.params.BitrateBps)
}

func (cbl *Cable) propDelayNs(a, b float64) engine.Time {
	return engine.Time(math.Abs(a-b) * 1e9 / cbl.propSpeed)
}

// Transmit schedules SignalSense/SignalCease on every attached connector
// (including the source) for a transmission of bytes starting now. It
// returns the on-wire transmission time.
func (cbl *Cable) Transmit(eng *engine.Engine, source *Connector, bytes []byte) engine.Time {
	srcPos := cbl.connectors[source]
	transTime := cbl.transmitTimeNs(len(bytes))

	for c, pos := range cbl.connectors {
		delay := cbl.propDelayNs(srcPos, pos)
		delivered := cbl.distort(bytes)
		c := c
		eng.Schedule(&engine.Event{
			When:   eng.Now() + delay,
			Kind:   engine.KindSense,
			Sender: source,
			Fn:     func(e *engine.Engine) { c.onSense(e) },
		})
		eng.Schedule(&engine.Event{
			When:   eng.Now() + delay + transTime,
			Kind:   engine.KindCease,
			Sender: source,
			Data:   delivered,
			Fn:     func(e *engine.Engine) { c.onCease(e, delivered, source) },
		})
	}
	return transTime
}

// jamBits is the length of a jam signal in bits.
const jamBits = 48

// Jam cancels source's outstanding SignalCease events (they are obsolete —
// the jam supersedes them) and schedules a fresh Sense/Cease pair carrying
// a nil payload (the jam) on every connector. It returns the jam's
// transmission time so the caller's backoff clock can start from it.
func (cbl *Cable) Jam(eng *engine.Engine, source *Connector) engine.Time {
	eng.CancelMatching(func(ev *engine.Event) bool {
		return ev.Kind == engine.KindCease && ev.Sender == source
	})

	srcPos := cbl.connectors[source]
	jamTime := engine.Time(jamBits * 1e9 / cbl.params.BitrateBps)

	for c, pos := range cbl.connectors {
		delay := cbl.propDelayNs(srcPos, pos)
		c := c
		eng.Schedule(&engine.Event{
			When:   eng.Now() + delay,
			Kind:   engine.KindSense,
			Sender: source,
			Fn:     func(e *engine.Engine) { c.onSense(e) },
		})
		eng.Schedule(&engine.Event{
			When:   eng.Now() + delay + jamTime,
			Kind:   engine.KindCease,
			Sender: source,
			Data:   nil,
			Fn:     func(e *engine.Engine) { c.onCease(e, nil, source) },
		})
	}
	return jamTime
}

// distort applies the burst-error model when the cable has a non-zero bit
// error rate: with probability ~BitErrorRate at each bit position, a burst
// of length drawn uniformly from [MinBurstErrorLen,MaxBurstErrorLen] is
// replaced with fresh random bits.
func (cbl *Cable) distort(data []byte) []byte {
	if cbl.params.BitErrorRate <= 0 || len(data) == 0 {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)
	totalBits := len(out) * 8
	for bit := 0; bit < totalBits; bit++ {
		if cbl.rng.Float64() >= cbl.params.BitErrorRate {
			continue
		}
		span := cbl.params.MaxBurstErrorLen - cbl.params.MinBurstErrorLen
		n := cbl.params.MinBurstErrorLen
		if span > 0 {
			n += cbl.rng.Intn(span + 1)
		}
		for i := 0; i < n && bit+i < totalBits; i++ {
			bi := bit + i
			byteIdx, bitIdx := bi/8, uint(bi%8)
			if cbl.rng.Intn(2) == 1 {
				out[byteIdx] |= 1 << (7 - bitIdx)
			} else {
				out[byteIdx] &^= 1 << (7 - bitIdx)
			}
		}
		bit += n - 1
	}
	return out
}
