package ipv4

import (
	"log/slog"
	"sort"

	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/malbeclabs/netsim/internal/simmetrics"
)

// waitingPacket is an outbound packet deferred pending ARP resolution of
// its next hop.
type waitingPacket struct {
	ip     ipaddr.IPv4
	packet *IpPacket
}

// outItem is one queued, already-marshalled frame payload awaiting
// transmission on an interface.
type outItem struct {
	dstMac    ipaddr.MAC
	etherType uint16
	bytes     []byte
}

type inItem struct {
	packet *IpPacket
	ifc    *Interface
}

// reassembly tracks the fragments seen so far for one (src,dst,protocol,
// ident) key.
type reassembly struct {
	uf            *ipaddr.UnionFind
	byOffset      map[int]*IpPacket
	originalLen   int
	src, dst      ipaddr.IPv4
	protocol      uint8
	identification uint16
}

// Config groups Engine construction parameters.
type Config struct {
	Interfaces           map[string]*Interface
	RoutingTable         *RoutingTable
	InputQueueCap        int
	OutputQueueCap       int
	NodalProcessingDelay engine.Time
	Metrics              *simmetrics.Registry
	Log                  *slog.Logger

	// OnDeliver, if set, is invoked for every packet destined to a local
	// address that isn't consumed internally (i.e. not an ICMP error the
	// engine generated or reassembly bookkeeping). It stands in for the
	// (out of scope) transport layer.
	OnDeliver func(ifc *Interface, p *IpPacket)
}

// Engine is the per-host IPv4 network layer: output queueing gated on ARP,
// MTU-aware fragmentation, reassembly, longest-prefix routing, TTL
// handling, and ICMP generation. State lives in a handful of maps advanced
// only from callbacks scheduled through the explicit *engine.Engine handle.
type Engine struct {
	interfaces map[string]*Interface
	routes     *RoutingTable

	arp     map[string]*ArpCache
	waiting map[string][]waitingPacket
	outQ    map[string]*ipaddr.CappedQueue[outItem]
	inQ     *ipaddr.CappedQueue[inItem]

	fragments map[uint64]*reassembly

	nodalDelay engine.Time
	metrics    *simmetrics.Registry
	log        *slog.Logger
	onDeliver  func(ifc *Interface, p *IpPacket)
}

// New builds an Engine over the given interfaces and routing table.
func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		interfaces: cfg.Interfaces,
		routes:     cfg.RoutingTable,
		arp:        make(map[string]*ArpCache),
		waiting:    make(map[string][]waitingPacket),
		outQ:       make(map[string]*ipaddr.CappedQueue[outItem]),
		inQ:        ipaddr.NewCappedQueue[inItem](cfg.InputQueueCap),
		fragments:  make(map[uint64]*reassembly),
		nodalDelay: cfg.NodalProcessingDelay,
		metrics:    cfg.Metrics,
		log:        log,
		onDeliver:  cfg.OnDeliver,
	}
	for name := range cfg.Interfaces {
		e.arp[name] = NewArpCache(name, cfg.Metrics)
		e.outQ[name] = ipaddr.NewCappedQueue[outItem](cfg.OutputQueueCap)
	}
	return e
}

// InterfaceByName returns the named interface, or nil if unknown. Used by
// scenario wiring to build *Route values referencing the engine's own
// *Interface instances.
func (e *Engine) InterfaceByName(name string) *Interface {
	return e.interfaces[name]
}

// ArpTable returns the ARP cache for the named interface, or nil if the
// interface is unknown. Presentation-only accessor.
func (e *Engine) ArpTable(ifcName string) *ArpCache {
	return e.arp[ifcName]
}

// OutputQueueDepth returns the number of frames queued on the named
// interface's output queue. Presentation-only accessor.
func (e *Engine) OutputQueueDepth(ifcName string) int {
	q, ok := e.outQ[ifcName]
	if !ok {
		return 0
	}
	return q.Len()
}

// OutputQueueCap returns the named interface's output queue capacity (0
// means unbounded). Presentation-only accessor.
func (e *Engine) OutputQueueCap(ifcName string) int {
	q, ok := e.outQ[ifcName]
	if !ok {
		return 0
	}
	return q.Cap()
}

// InputQueueDepth returns the number of packets queued on the host's
// shared IP input queue. Presentation-only accessor.
func (e *Engine) InputQueueDepth() int { return e.inQ.Len() }

// Output fragments data into as many IpPackets as the interface's MTU
// requires and starts each one towards dstIp.
func (e *Engine) Output(eng *engine.Engine, ifcName string, dstIp ipaddr.IPv4, data []byte, protocol uint8) error {
	ifc, ok := e.interfaces[ifcName]
	if !ok {
		return ErrUnknownInterface
	}
	maxPayload := ifc.MTU - HeaderLen
	if maxPayload <= 0 {
		return ErrMTUTooSmall
	}
	n := (len(data) + maxPayload - 1) / maxPayload
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		start := i * maxPayload
		end := start + maxPayload
		if end > len(data) {
			end = len(data)
		}
		seg := make([]byte, end-start)
		copy(seg, data[start:end])

		p := &IpPacket{
			Version: 4, IHL: 5, TTL: 64, Protocol: protocol,
			Src: ifc.IP, Dst: dstIp, Data: seg,
		}
		nextHop := dstIp
		if !ifc.Subnet().Contains(dstIp) {
			if ifc.Gateway == nil {
				return ErrNoGateway
			}
			nextHop = *ifc.Gateway
		}
		if err := e.outputToNextHop(eng, ifc, nextHop, p); err != nil {
			return err
		}
	}
	return nil
}

// outputToNextHop resolves ip's MAC via ARP, deferring the packet into
// waitingPackets if unresolved.
func (e *Engine) outputToNextHop(eng *engine.Engine, ifc *Interface, ip ipaddr.IPv4, packet *IpPacket) error {
	cache := e.arp[ifc.Name]
	if mac, ok := cache.Lookup(eng.Now(), ip); ok {
		return e.enqueueOutput(eng, ifc, mac, EtherTypeIPv4, mustMarshal(packet))
	}
	e.waiting[ifc.Name] = append(e.waiting[ifc.Name], waitingPacket{ip: ip, packet: packet})
	if cache.MarkInProgress(ip) {
		e.sendArpRequest(eng, ifc, ip)
	}
	return nil
}

func mustMarshal(p *IpPacket) []byte {
	b, _ := p.Marshal()
	return b
}

func (e *Engine) sendArpRequest(eng *engine.Engine, ifc *Interface, ip ipaddr.IPv4) {
	req := &ArpPacket{IsRequest: true, SenderMac: ifc.Link.MAC(), SenderIp: ifc.IP, TargetMac: ipaddr.Broadcast, TargetIp: ip}
	bytes, _ := req.Marshal()
	_ = e.enqueueOutput(eng, ifc, ipaddr.Broadcast, EtherTypeARP, bytes)
}

// enqueueOutput pushes a ready-to-send frame payload onto ifc's output
// queue, scheduling a drain if the queue was empty.
func (e *Engine) enqueueOutput(eng *engine.Engine, ifc *Interface, dst ipaddr.MAC, etherType uint16, bytes []byte) error {
	q := e.outQ[ifc.Name]
	wasEmpty := q.IsEmpty()
	if err := q.Push(outItem{dstMac: dst, etherType: etherType, bytes: bytes}); err != nil {
		if e.metrics != nil {
			e.metrics.IPPacketsDropped.WithLabelValues(ifc.Name, "output_queue_full").Inc()
		}
		return err
	}
	if e.metrics != nil {
		e.metrics.OutputQueueDepth.WithLabelValues(ifc.Hostname, ifc.Name).Set(float64(q.Len()))
	}
	if wasEmpty {
		eng.ScheduleCallback(0, func(ee *engine.Engine) { e.emptySendFifo(ee, ifc) })
	}
	return nil
}

func (e *Engine) emptySendFifo(eng *engine.Engine, ifc *Interface) {
	q := e.outQ[ifc.Name]
	item, ok := q.Pop()
	if !ok {
		return
	}
	if e.metrics != nil {
		e.metrics.OutputQueueDepth.WithLabelValues(ifc.Hostname, ifc.Name).Set(float64(q.Len()))
	}
	if err := ifc.Link.Output(eng, item.dstMac, item.bytes, item.etherType); err != nil {
		e.log.Warn("ipv4 output dropped", "interface", ifc.Name, "err", err)
	}
}

// OnAvailableToSend is wired to the link layer's SendFifoEmpty interrupt:
// if the interface still has queued output, start draining it again.
func (e *Engine) OnAvailableToSend(eng *engine.Engine, ifcName string) {
	ifc, ok := e.interfaces[ifcName]
	if !ok {
		return
	}
	if !e.outQ[ifcName].IsEmpty() {
		eng.ScheduleCallback(0, func(ee *engine.Engine) { e.emptySendFifo(ee, ifc) })
	}
}

// OnInput is wired to the link layer's DataReceived interrupt and
// dispatches on etherType.
func (e *Engine) OnInput(eng *engine.Engine, ifcName string, payload []byte, etherType uint16) {
	ifc, ok := e.interfaces[ifcName]
	if !ok {
		return
	}
	switch etherType {
	case EtherTypeARP:
		e.onArpInput(eng, ifc, payload)
	case EtherTypeIPv4:
		e.onIpInput(eng, ifc, payload)
	}
}

func (e *Engine) onArpInput(eng *engine.Engine, ifc *Interface, bytes []byte) {
	pkt, err := UnmarshalArpPacket(bytes)
	if err != nil {
		return
	}
	if pkt.SenderMac == ifc.Link.MAC() {
		return
	}
	cache := e.arp[ifc.Name]
	cache.Learn(eng.Now(), pkt.SenderIp, pkt.SenderMac)
	cache.ClearInProgress(pkt.SenderIp)
	e.flushWaiting(eng, ifc, pkt.SenderIp, pkt.SenderMac)

	if pkt.IsRequest && pkt.TargetIp == ifc.IP {
		resp := &ArpPacket{IsRequest: false, SenderMac: ifc.Link.MAC(), SenderIp: ifc.IP, TargetMac: pkt.SenderMac, TargetIp: pkt.SenderIp}
		respBytes, _ := resp.Marshal()
		_ = e.enqueueOutput(eng, ifc, pkt.SenderMac, EtherTypeARP, respBytes)
	}
}

// flushWaiting sends every packet that was deferred waiting for ip's MAC.
func (e *Engine) flushWaiting(eng *engine.Engine, ifc *Interface, ip ipaddr.IPv4, mac ipaddr.MAC) {
	pending := e.waiting[ifc.Name]
	if len(pending) == 0 {
		return
	}
	remaining := pending[:0]
	for _, w := range pending {
		if w.ip == ip {
			_ = e.enqueueOutput(eng, ifc, mac, EtherTypeIPv4, mustMarshal(w.packet))
		} else {
			remaining = append(remaining, w)
		}
	}
	e.waiting[ifc.Name] = remaining
}

func (e *Engine) onIpInput(eng *engine.Engine, ifc *Interface, bytes []byte) {
	pkt, err := UnmarshalIpPacket(bytes)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IPPacketsDropped.WithLabelValues(ifc.Name, "bad_checksum").Inc()
		}
		return
	}
	wasEmpty := e.inQ.IsEmpty()
	if err := e.inQ.Push(inItem{packet: pkt, ifc: ifc}); err != nil {
		if e.metrics != nil {
			e.metrics.IPPacketsDropped.WithLabelValues(ifc.Name, "input_queue_full").Inc()
		}
		e.sendIcmpError(eng, ifc, NewSourceQuench(pkt), pkt.Src)
		return
	}
	if e.metrics != nil {
		e.metrics.InputQueueDepth.WithLabelValues(ifc.Hostname).Set(float64(e.inQ.Len()))
	}
	if wasEmpty {
		eng.ScheduleCallback(e.nodalDelay, func(ee *engine.Engine) { e.processPackets(ee) })
	}
}

// processPackets handles exactly one queued packet per call, rescheduling
// itself immediately if more remain.
func (e *Engine) processPackets(eng *engine.Engine) {
	item, ok := e.inQ.Pop()
	if !ok {
		return
	}
	if e.metrics != nil {
		e.metrics.InputQueueDepth.WithLabelValues(item.ifc.Hostname).Set(float64(e.inQ.Len()))
	}
	p, ifc := item.packet, item.ifc

	p.TTL--
	if p.TTL == 0 {
		if p.Protocol != ProtocolICMP {
			e.sendIcmpError(eng, ifc, NewTimeExceeded(p), p.Src)
		}
	} else {
		// Deliberately not an RFC 1624 incremental update: the checksum is
		// bumped by a flat +1 per hop rather than recomputed from the TTL
		// delta. Kept as-is to match the behavior this was ported from.
		sum := uint32(p.Checksum) + 1
		p.Checksum = uint16((sum + (sum >> 16)) & 0xFFFF)
		e.deliverOrRoute(eng, ifc, p)
	}

	if !e.inQ.IsEmpty() {
		eng.ScheduleCallback(0, func(ee *engine.Engine) { e.processPackets(ee) })
	}
}

func (e *Engine) isLocalAddress(ip ipaddr.IPv4) bool {
	for _, ifc := range e.interfaces {
		if ifc.IP == ip {
			return true
		}
	}
	return false
}

func (e *Engine) deliverOrRoute(eng *engine.Engine, ifc *Interface, p *IpPacket) {
	if e.isLocalAddress(p.Dst) {
		if p.IsFragment() {
			e.reassemble(eng, ifc, p)
			return
		}
		e.deliverLocal(ifc, p)
		return
	}
	e.route(eng, ifc, p)
}

func (e *Engine) deliverLocal(ifc *Interface, p *IpPacket) {
	if p.Protocol == ProtocolICMP {
		icmp, err := UnmarshalIcmpPacket(p.Data)
		if err != nil {
			return
		}
		e.log.Info("icmp delivered", "interface", ifc.Name, "type", icmp.Type, "code", icmp.Code)
		return
	}
	if e.onDeliver != nil {
		e.onDeliver(ifc, p)
	}
}

func (e *Engine) route(eng *engine.Engine, ifc *Interface, p *IpPacket) {
	r, ok := e.routes.Match(p.Dst)
	if !ok {
		e.sendIcmpError(eng, ifc, NewDestinationNetworkUnreachable(p), p.Src)
		return
	}
	totalLength := HeaderLen + len(p.Data)
	if totalLength > r.Interface.MTU {
		if p.Flags&FlagDF != 0 {
			e.sendIcmpError(eng, ifc, NewFragmentationRequired(p), p.Src)
			return
		}
		for _, frag := range fragment(p, r.Interface.MTU, eng.Now()) {
			nextHop := frag.Dst
			if r.Gateway != nil {
				nextHop = *r.Gateway
			}
			_ = e.outputToNextHop(eng, r.Interface, nextHop, frag)
		}
		return
	}
	nextHop := p.Dst
	if r.Gateway != nil {
		nextHop = *r.Gateway
	}
	_ = e.outputToNextHop(eng, r.Interface, nextHop, p)
}

// sendIcmpError wraps icmp in a fresh IpPacket from ifc back to dst and
// routes it out via the normal ARP-gated output path.
func (e *Engine) sendIcmpError(eng *engine.Engine, ifc *Interface, icmp *IcmpPacket, dst ipaddr.IPv4) {
	icmpBytes, _ := icmp.Marshal()
	p := &IpPacket{Version: 4, IHL: 5, TTL: 64, Protocol: ProtocolICMP, Src: ifc.IP, Dst: dst, Data: icmpBytes}
	nextHop := dst
	if !ifc.Subnet().Contains(dst) && ifc.Gateway != nil {
		nextHop = *ifc.Gateway
	}
	_ = e.outputToNextHop(eng, ifc, nextHop, p)
}

// fragment splits p into fragments no larger than mtu, rounding the
// per-fragment data size down to a multiple of 8 bytes (fragmentOffset
// units) except for the final fragment, which carries the remainder and
// has MF clear.
func fragment(p *IpPacket, mtu int, now engine.Time) []*IpPacket {
	maxSegSize := mtu - HeaderLen
	if maxSegSize <= 0 {
		return nil
	}
	segSize := maxSegSize - (maxSegSize % 8)
	if segSize == 0 {
		segSize = 8
	}
	data := p.Data
	numSegs := (len(data) + segSize - 1) / segSize
	if numSegs == 0 {
		numSegs = 1
	}
	ident := uint16(now % 65536)

	out := make([]*IpPacket, 0, numSegs)
	for i := 0; i < numSegs; i++ {
		start := i * segSize
		end := start + segSize
		if end > len(data) {
			end = len(data)
		}
		mf := i < numSegs-1
		flags := p.Flags
		if mf {
			flags |= FlagMF
		} else {
			flags &^= FlagMF
		}
		seg := make([]byte, end-start)
		copy(seg, data[start:end])
		out = append(out, &IpPacket{
			Version: p.Version, IHL: p.IHL, DSCP: p.DSCP,
			Identification: ident, Flags: flags,
			FragmentOffset: p.FragmentOffset + uint16(start/8),
			TTL:            p.TTL, Protocol: p.Protocol,
			Src: p.Src, Dst: p.Dst, Data: seg,
		})
	}
	return out
}

// reassemble folds one more fragment into its key's reassembly state using
// the union-find, delivering locally once every byte from 0 to originalLen
// is connected.
func (e *Engine) reassemble(eng *engine.Engine, ifc *Interface, p *IpPacket) {
	key := ipaddr.FragmentKey(p.Src, p.Dst, p.Protocol, p.Identification)
	r, ok := e.fragments[key]
	if !ok {
		r = &reassembly{
			uf:             ipaddr.NewUnionFind(),
			byOffset:       make(map[int]*IpPacket),
			src:            p.Src,
			dst:            p.Dst,
			protocol:       p.Protocol,
			identification: p.Identification,
		}
		e.fragments[key] = r
	}

	from := int(p.FragmentOffset) * 8
	to := from + len(p.Data) - 1
	r.byOffset[from] = p
	r.uf.Union(from, to)
	r.uf.Union(to, to+1)
	if p.Flags&FlagMF == 0 {
		r.originalLen = from + len(p.Data)
	}

	if r.originalLen == 0 {
		return
	}
	if !r.uf.Connected(0, r.originalLen) {
		return
	}

	offsets := make([]int, 0, len(r.byOffset))
	for off := range r.byOffset {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	data := make([]byte, 0, r.originalLen)
	for _, off := range offsets {
		data = append(data, r.byOffset[off].Data...)
	}
	delete(e.fragments, key)

	whole := &IpPacket{
		Version: 4, IHL: 5, TTL: p.TTL, Protocol: r.protocol,
		Identification: r.identification, Src: r.src, Dst: r.dst, Data: data,
	}
	e.deliverLocal(ifc, whole)
}
