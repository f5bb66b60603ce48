// Package simmetrics exposes the simulator's prometheus instrumentation:
// label-vector counters and gauges keyed by station/interface name.
package simmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelStation   = "station"
	LabelInterface = "interface"
	LabelReason    = "reason"
)

// Registry groups every counter/gauge the simulator emits, registered
// against a caller-supplied prometheus.Registerer so tests and multiple
// simulator instances in one process don't collide on the default
// registry.
type Registry struct {
	Collisions          *prometheus.CounterVec
	JamsSent            *prometheus.CounterVec
	FramesDroppedBadFCS  *prometheus.CounterVec
	RetransmissionAborts *prometheus.CounterVec
	ArpCacheHits         *prometheus.CounterVec
	ArpCacheMisses       *prometheus.CounterVec
	IPPacketsDropped     *prometheus.CounterVec
	// ReassemblyTimeouts is registered but not incremented: the IPv4 engine
	// keeps incomplete fragment sets without a timeout.
	ReassemblyTimeouts   *prometheus.CounterVec
	OutputQueueDepth     *prometheus.GaugeVec
	InputQueueDepth      *prometheus.GaugeVec
}

// New registers every metric against reg and returns the populated
// Registry. Pass a fresh prometheus.NewRegistry() in tests to avoid
// colliding with other instances.
func New(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)
	return &Registry{
		Collisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_collisions_total",
			Help: "Count of CSMA/CD collisions detected by a station.",
		}, []string{LabelStation}),
		JamsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_jams_sent_total",
			Help: "Count of jam signals emitted onto a cable.",
		}, []string{LabelStation}),
		FramesDroppedBadFCS: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_frames_dropped_bad_fcs_total",
			Help: "Count of frames discarded for a CRC-32 mismatch.",
		}, []string{LabelStation}),
		RetransmissionAborts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_retransmission_aborts_total",
			Help: "Count of transmissions abandoned after 15 retransmissions.",
		}, []string{LabelStation}),
		ArpCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_arp_cache_hits_total",
			Help: "Count of ARP lookups resolved from a live cache entry.",
		}, []string{LabelInterface}),
		ArpCacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_arp_cache_misses_total",
			Help: "Count of ARP lookups that found no live cache entry.",
		}, []string{LabelInterface}),
		IPPacketsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_ip_packets_dropped_total",
			Help: "Count of IPv4 packets dropped, labeled by reason.",
		}, []string{LabelInterface, LabelReason}),
		ReassemblyTimeouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_reassembly_timeouts_total",
			Help: "Count of fragment sets that never completed reassembly.",
		}, []string{LabelInterface}),
		OutputQueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netsim_output_queue_depth",
			Help: "Current depth of a station's output queue.",
		}, []string{LabelStation, LabelInterface}),
		InputQueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netsim_input_queue_depth",
			Help: "Current depth of a station's input queue.",
		}, []string{LabelStation}),
	}
}
