package mac

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/malbeclabs/netsim/internal/simmetrics"
)

// Bridge is a multi-port learning switch: each port runs its own CSMA/CD
// NIC in promiscuous mode, sharing one forward table and drained by a
// single periodic tick rather than forwarding synchronously off the
// receiving port's own event.
type Bridge struct {
	ports           []*NIC
	inFifos         []*ipaddr.CappedQueue[queuedFrame]
	forwardTable    map[ipaddr.MAC]int
	processingDelay engine.Time
	drainArmed      bool
	rrCursor        int
	log             *slog.Logger
}

// queuedFrame is one frame waiting on a port's input FIFO for the next
// drain tick, tagged with the port it arrived on.
type queuedFrame struct {
	inPort int
	frame  *Frame
}

// BridgeConfig groups Bridge construction parameters.
type BridgeConfig struct {
	Name            string
	Ports           int
	BitrateBps      float64
	FIFOCap         int
	ProcessingDelay engine.Time
	Rand            *rand.Rand
	Metrics         *simmetrics.Registry
	Log             *slog.Logger
}

// NewBridge builds an n-port Bridge. Each port's Connector() is attached to
// the cable running to that segment.
func NewBridge(cfg BridgeConfig) *Bridge {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	b := &Bridge{
		forwardTable:    make(map[ipaddr.MAC]int),
		processingDelay: cfg.ProcessingDelay,
		log:             log,
	}
	b.ports = make([]*NIC, cfg.Ports)
	b.inFifos = make([]*ipaddr.CappedQueue[queuedFrame], cfg.Ports)
	for i := range b.ports {
		idx := i
		nic := NewNIC(NICConfig{
			Name:        fmt.Sprintf("%s-p%d", cfg.Name, i),
			BitrateBps:  cfg.BitrateBps,
			FIFOCap:     cfg.FIFOCap,
			Promiscuous: true,
			Rand:        cfg.Rand,
			Metrics:     cfg.Metrics,
			Log:         log,
		})
		nic.OnFrame(func(eng *engine.Engine, f *Frame) { b.onPortFrame(eng, idx, f) })
		b.ports[idx] = nic
		b.inFifos[idx] = ipaddr.NewCappedQueue[queuedFrame](cfg.FIFOCap)
	}
	return b
}

// Port returns port i's NIC, for attaching its Connector to a segment's
// Cable.
func (b *Bridge) Port(i int) *NIC { return b.ports[i] }

// NumPorts returns the number of ports this bridge was built with.
func (b *Bridge) NumPorts() int { return len(b.ports) }

// ForwardTableEntry is a read-only snapshot of one learned MAC, for
// presentation layers (e.g. `netsimd run`'s final report).
type ForwardTableEntry struct {
	MAC  ipaddr.MAC
	Port int
}

// ForwardTable returns a snapshot of every learned MAC->port mapping.
func (b *Bridge) ForwardTable() []ForwardTableEntry {
	out := make([]ForwardTableEntry, 0, len(b.forwardTable))
	for mac, port := range b.forwardTable {
		out = append(out, ForwardTableEntry{MAC: mac, Port: port})
	}
	return out
}

// onPortFrame runs synchronously off the receiving port's own frame event:
// it verifies FCS (already done by the NIC before calling this), learns the
// source MAC's port, and applies the same-segment drop rule, all before the
// frame ever reaches an input FIFO. Known, preserved behavior: a frame is
// dropped here only when the destination is already learned on the same
// port the frame just arrived on (which, since the source was just learned
// on that same port, is equivalent to forwardTable[src]==forwardTable[dst]);
// the first frame from a new source to an already-known destination on that
// port is not dropped.
func (b *Bridge) onPortFrame(eng *engine.Engine, inPort int, f *Frame) {
	b.forwardTable[f.Src] = inPort

	if outPort, ok := b.forwardTable[f.Dst]; ok && outPort == inPort {
		return
	}

	if err := b.inFifos[inPort].Push(queuedFrame{inPort: inPort, frame: f}); err != nil {
		b.log.Warn("bridge input queue full, frame dropped", "port", inPort)
		return
	}
	b.armDrain(eng)
}

// armDrain schedules the next drain tick if one isn't already pending. The
// tick reschedules itself only while backlog remains, so an idle bridge
// never keeps the event queue alive on its own.
func (b *Bridge) armDrain(eng *engine.Engine) {
	if b.drainArmed {
		return
	}
	b.drainArmed = true
	eng.ScheduleCallback(b.processingDelay, b.drainTick)
}

// drainTick performs one pass moving at most one queued frame from some
// input FIFO into its output port (by forwardTable lookup) or flooding it
// to every port but the one it arrived on, then a second pass nudging any
// output-queued port that is idle but hasn't resumed sending on its own.
func (b *Bridge) drainTick(eng *engine.Engine) {
	b.drainArmed = false

	for i := 0; i < len(b.ports); i++ {
		idx := (b.rrCursor + i) % len(b.ports)
		if qf, ok := b.inFifos[idx].Pop(); ok {
			b.rrCursor = (idx + 1) % len(b.ports)
			b.forward(eng, qf.inPort, qf.frame)
			break
		}
	}

	for _, p := range b.ports {
		p.TryStartDrain(eng)
	}

	for _, q := range b.inFifos {
		if !q.IsEmpty() {
			b.armDrain(eng)
			break
		}
	}
}

func (b *Bridge) forward(eng *engine.Engine, inPort int, f *Frame) {
	if outPort, ok := b.forwardTable[f.Dst]; ok {
		b.send(eng, outPort, f)
		return
	}
	for j := range b.ports {
		if j == inPort {
			continue
		}
		b.send(eng, j, f)
	}
}

func (b *Bridge) send(eng *engine.Engine, port int, f *Frame) {
	if err := b.ports[port].Output(eng, f.Dst, f.Payload, f.EtherType); err != nil {
		b.log.Warn("bridge output dropped", "port", port, "err", err)
	}
}
