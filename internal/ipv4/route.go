package ipv4

import "github.com/malbeclabs/netsim/internal/ipaddr"

// Route is one routing table entry.
type Route struct {
	Destination ipaddr.IPv4
	Netmask     ipaddr.Netmask
	Gateway     *ipaddr.IPv4
	Interface   *Interface
	Metric      int
}

// RoutingTable is an insertion-ordered list of routes. Matching prefers the
// longest prefix, then the lowest metric, then the earliest insertion —
// the last of which falls out naturally from iterating in insertion order
// and only replacing the current best on a strict improvement.
type RoutingTable struct {
	routes []*Route
}

// NewRoutingTable returns an empty table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{}
}

// Add appends r to the table.
func (t *RoutingTable) Add(r *Route) {
	t.routes = append(t.routes, r)
}

// Remove deletes the first route with the same Destination, Netmask and
// Interface as r, reporting whether one was found.
func (t *RoutingTable) Remove(r *Route) bool {
	for i, existing := range t.routes {
		if existing.Destination == r.Destination && existing.Netmask == r.Netmask && existing.Interface == r.Interface {
			t.routes = append(t.routes[:i], t.routes[i+1:]...)
			return true
		}
	}
	return false
}

// Routes returns every configured route, in insertion order.
func (t *RoutingTable) Routes() []*Route {
	return t.routes
}

// Match returns the best route for dst, or false if none match.
func (t *RoutingTable) Match(dst ipaddr.IPv4) (*Route, bool) {
	var best *Route
	for _, r := range t.routes {
		if !ipaddr.SameNetwork(r.Destination, dst, r.Netmask) {
			continue
		}
		switch {
		case best == nil:
			best = r
		case r.Netmask > best.Netmask:
			best = r
		case r.Netmask == best.Netmask && r.Metric < best.Metric:
			best = r
		}
	}
	return best, best != nil
}
