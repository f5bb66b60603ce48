package ipv4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIPv4_RoutingTable_Match_PrefersLongestPrefix(t *testing.T) {
	t.Parallel()
	table := NewRoutingTable()
	wide := &Route{Destination: mustIP(t, "10.0.0.0"), Netmask: 8, Metric: 1}
	narrow := &Route{Destination: mustIP(t, "10.1.0.0"), Netmask: 16, Metric: 5}
	table.Add(wide)
	table.Add(narrow)

	got, ok := table.Match(mustIP(t, "10.1.2.3"))
	require.True(t, ok)
	require.Same(t, narrow, got)

	got, ok = table.Match(mustIP(t, "10.2.2.3"))
	require.True(t, ok)
	require.Same(t, wide, got)
}

func TestIPv4_RoutingTable_Match_TiesBreakOnMetricThenInsertionOrder(t *testing.T) {
	t.Parallel()
	table := NewRoutingTable()
	first := &Route{Destination: mustIP(t, "10.0.0.0"), Netmask: 8, Metric: 5}
	lowerMetric := &Route{Destination: mustIP(t, "10.0.0.0"), Netmask: 8, Metric: 1}
	sameMetricLater := &Route{Destination: mustIP(t, "10.0.0.0"), Netmask: 8, Metric: 1}
	table.Add(first)
	table.Add(lowerMetric)
	table.Add(sameMetricLater)

	got, ok := table.Match(mustIP(t, "10.5.5.5"))
	require.True(t, ok)
	require.Same(t, lowerMetric, got) // lower metric wins, and is earlier among ties
}

func TestIPv4_RoutingTable_Match_NoneMatchReturnsFalse(t *testing.T) {
	t.Parallel()
	table := NewRoutingTable()
	table.Add(&Route{Destination: mustIP(t, "10.0.0.0"), Netmask: 8})
	_, ok := table.Match(mustIP(t, "192.168.1.1"))
	require.False(t, ok)
}

func TestIPv4_RoutingTable_RemoveByValue(t *testing.T) {
	t.Parallel()
	table := NewRoutingTable()
	r := &Route{Destination: mustIP(t, "10.0.0.0"), Netmask: 8}
	table.Add(r)
	require.True(t, table.Remove(&Route{Destination: mustIP(t, "10.0.0.0"), Netmask: 8}))
	require.Empty(t, table.Routes())
}
