package mac

import (
	"log/slog"
	"math/rand"

	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/malbeclabs/netsim/internal/phy"
	"github.com/malbeclabs/netsim/internal/simmetrics"
)

// slotTimeBits is the CSMA/CD slot time: 512 bit-times.
const slotTimeBits = 512

// maxRetransmissions is the truncated binary exponential backoff ceiling:
// the 16th attempt (retransmissionCount > 15) aborts.
const maxRetransmissions = 15

// ifgBits is the interframe gap: 96 bit-times.
const ifgBits = 96

// deferralMinNs/deferralMaxNs bound the pseudo-random wait applied when a
// frame is queued to send but the medium is already busy.
const deferralMinNs = 10000
const deferralMaxNs = 15000

// NIC is a half-duplex CSMA/CD station network interface: an output FIFO
// feeding a transmit state machine, and a receive path that filters on
// destination MAC unless Promiscuous is set (for bridge ports).
//
// Its state machine is a small set of boolean/counter fields advanced
// exclusively by the OnSense/OnCease callbacks and the scheduled
// retry/drain callbacks, never polled from outside.
type NIC struct {
	name        string
	mac         ipaddr.MAC
	bitrateBps  float64
	promiscuous bool

	connector *phy.Connector
	fifo      *ipaddr.CappedQueue[[]byte]

	tx, rx               bool
	jamming              bool
	retransmissionCount  int
	pending              []byte

	onFrame         func(eng *engine.Engine, f *Frame)
	onSendFifoEmpty func(eng *engine.Engine)

	rng     *rand.Rand
	metrics *simmetrics.Registry
	log     *slog.Logger
}

// NICConfig groups NIC construction parameters.
type NICConfig struct {
	Name        string
	MAC         ipaddr.MAC
	BitrateBps  float64
	FIFOCap     int
	Promiscuous bool
	Rand        *rand.Rand
	Metrics     *simmetrics.Registry
	Log         *slog.Logger
}

// NewNIC builds a NIC and its Connector. Attach the returned Connector() to
// a Cable to wire it onto a segment.
func NewNIC(cfg NICConfig) *NIC {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	n := &NIC{
		name:        cfg.Name,
		mac:         cfg.MAC,
		bitrateBps:  cfg.BitrateBps,
		promiscuous: cfg.Promiscuous,
		fifo:        ipaddr.NewCappedQueue[[]byte](cfg.FIFOCap),
		rng:         rng,
		metrics:     cfg.Metrics,
		log:         log,
	}
	n.connector = phy.NewConnector(n)
	return n
}

// Connector returns the Connector to attach to a Cable.
func (n *NIC) Connector() *phy.Connector { return n.connector }

// MAC returns the station's hardware address.
func (n *NIC) MAC() ipaddr.MAC { return n.mac }

// OutputQueueDepth returns the number of frames currently queued for
// transmission. Presentation-only accessor.
func (n *NIC) OutputQueueDepth() int { return n.fifo.Len() }

// OnFrame registers the callback invoked for every frame that passes FCS
// verification and, unless Promiscuous, the destination filter.
func (n *NIC) OnFrame(fn func(eng *engine.Engine, f *Frame)) { n.onFrame = fn }

// OnSendFifoEmpty registers the callback invoked when the output FIFO
// drains to empty after a successful transmission, an edge-triggered
// interrupt rather than something callers poll for.
func (n *NIC) OnSendFifoEmpty(fn func(eng *engine.Engine)) { n.onSendFifoEmpty = fn }

func (n *NIC) slotTimeNs() engine.Time {
	return engine.Time(slotTimeBits * 1e9 / n.bitrateBps)
}

func (n *NIC) ifgNs() engine.Time {
	return engine.Time(ifgBits * 1e9 / n.bitrateBps)
}

// Output enqueues a frame addressed to dst for transmission. It returns
// ErrQueueFull if the output FIFO is at capacity.
func (n *NIC) Output(eng *engine.Engine, dst ipaddr.MAC, payload []byte, etherType uint16) error {
	f := &Frame{Dst: dst, Src: n.mac, EtherType: etherType, Payload: payload}
	bytes, err := f.Marshal()
	if err != nil {
		return err
	}
	wasEmpty := n.fifo.IsEmpty()
	if err := n.fifo.Push(bytes); err != nil {
		return err
	}
	if n.metrics != nil {
		n.metrics.OutputQueueDepth.WithLabelValues(n.name, n.name).Set(float64(n.fifo.Len()))
	}
	if wasEmpty && !n.tx {
		n.startDrain(eng)
	}
	return nil
}

// startDrain pops the next queued frame and begins the deferral/IFG/transmit
// sequence for it.
func (n *NIC) startDrain(eng *engine.Engine) {
	bytes, ok := n.fifo.Pop()
	if !ok {
		return
	}
	if n.metrics != nil {
		n.metrics.OutputQueueDepth.WithLabelValues(n.name, n.name).Set(float64(n.fifo.Len()))
	}
	n.pending = bytes
	n.transmit(eng, bytes)
}

// TryStartDrain nudges the NIC to begin sending a queued frame if it is
// sitting idle with work available: not mid-transmission, mid-collision, or
// already mid-deferral/backoff for a frame it previously popped. A bridge
// port calls this once per drain tick as a safety net in case its own
// queued-work trigger was missed (e.g. a frame arrived while the port was
// still busy and its OnSendFifoEmpty-driven resume never fired).
func (n *NIC) TryStartDrain(eng *engine.Engine) {
	if n.tx || n.rx || n.jamming || n.pending != nil {
		return
	}
	if n.fifo.IsEmpty() {
		return
	}
	n.startDrain(eng)
}

// transmit defers while the medium is busy, then waits out the interframe
// gap before actually keying the carrier.
func (n *NIC) transmit(eng *engine.Engine, bytes []byte) {
	if n.rx {
		delay := engine.Time(deferralMinNs + n.rng.Intn(deferralMaxNs-deferralMinNs+1))
		eng.ScheduleCallback(delay, func(e *engine.Engine) { n.transmit(e, bytes) })
		return
	}
	eng.ScheduleCallback(n.ifgNs(), func(e *engine.Engine) { n.startTransmission(e, bytes) })
}

func (n *NIC) startTransmission(eng *engine.Engine, bytes []byte) {
	if n.rx {
		n.transmit(eng, bytes)
		return
	}
	n.tx = true
	n.pending = bytes
	if _, err := n.connector.Transmit(eng, bytes); err != nil {
		n.log.Error("nic transmit failed", "station", n.name, "err", err)
	}
}

// OnSense implements phy.Owner. A collision is a carrier sensed while this
// station is both receiving and transmitting; the first such sense per
// collision episode triggers jam+backoff, and further senses are ignored
// until the jam's own cease is observed.
func (n *NIC) OnSense(eng *engine.Engine) {
	if n.jamming {
		return
	}
	if n.rx && n.tx {
		n.jamming = true
		if n.metrics != nil {
			n.metrics.Collisions.WithLabelValues(n.name).Inc()
			n.metrics.JamsSent.WithLabelValues(n.name).Inc()
		}
		jamTime, _ := n.connector.Jam(eng)
		n.exponentialBackoff(eng, jamTime)
		return
	}
	n.rx = true
}

// exponentialBackoff schedules a retransmission attempt after the jam plus
// a random multiple of the slot time, per the truncated binary exponential
// backoff algorithm.
func (n *NIC) exponentialBackoff(eng *engine.Engine, jamTime engine.Time) {
	n.retransmissionCount++
	if n.retransmissionCount > maxRetransmissions {
		n.retransmissionCount = 0
		if n.metrics != nil {
			n.metrics.RetransmissionAborts.WithLabelValues(n.name).Inc()
		}
		n.pending = nil
		if !n.fifo.IsEmpty() {
			eng.ScheduleCallback(n.ifgNs(), func(e *engine.Engine) { n.startDrain(e) })
		}
		return
	}
	shift := n.retransmissionCount
	if shift > 10 {
		shift = 10
	}
	c := n.rng.Intn(1 << uint(shift))
	delay := jamTime + engine.Time(c)*n.slotTimeNs()
	pending := n.pending
	eng.ScheduleCallback(delay, func(e *engine.Engine) { n.transmit(e, pending) })
}

// OnCease implements phy.Owner.
func (n *NIC) OnCease(eng *engine.Engine, data []byte, sender *phy.Connector) {
	n.rx = false
	n.tx = false
	if phy.IsJam(data) {
		// Remain in backoff: exponentialBackoff already scheduled the
		// retry from OnSense.
		n.jamming = false
		return
	}
	if sender == n.connector {
		n.onOwnTransmitComplete(eng)
		return
	}
	n.receive(eng, data)
}

func (n *NIC) onOwnTransmitComplete(eng *engine.Engine) {
	n.retransmissionCount = 0
	n.pending = nil
	if !n.fifo.IsEmpty() {
		eng.ScheduleCallback(n.ifgNs(), func(e *engine.Engine) { n.startDrain(e) })
		return
	}
	if n.onSendFifoEmpty != nil {
		n.onSendFifoEmpty(eng)
	}
}

func (n *NIC) receive(eng *engine.Engine, data []byte) {
	f, err := UnmarshalFrame(data)
	if err != nil {
		if n.metrics != nil {
			n.metrics.FramesDroppedBadFCS.WithLabelValues(n.name).Inc()
		}
		return
	}
	if !n.promiscuous {
		if f.Src == n.mac {
			return
		}
		if f.Dst != n.mac && !f.Dst.IsBroadcast() {
			return
		}
	}
	if n.onFrame != nil {
		n.onFrame(eng, f)
	}
}
