package phy

import (
	"testing"

	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/stretchr/testify/require"
)

func TestPhy_Hub_RelaysSenseAndCeaseToOtherPortsOnly(t *testing.T) {
	t.Parallel()
	hub := NewHub(3, []float64{0, 0, 0}, 0.66)

	// Attach a station on each hub port via its own point-to-point cable.
	var stations []*recorder
	for i := 0; i < 3; i++ {
		cbl, err := New(Params{LengthM: 10, BitrateBps: 1e7, VelocityFactor: 1})
		require.NoError(t, err)
		r := &recorder{}
		station := NewConnector(r)
		require.NoError(t, cbl.Attach(hub.Port(i), 0))
		require.NoError(t, cbl.Attach(station, 5))
		stations = append(stations, r)
	}

	eng := engine.New(nil)
	// Station 0 transmits onto its segment; the hub must relay to stations
	// 1 and 2, but station 0 only sees its own local sense/cease, not a
	// relayed copy of itself.
	cbl0 := hub.Port(0).cable
	src := otherConnector(hub.Port(0))
	cbl0.Transmit(eng, src, []byte("hello"))

	eng.RunAll()

	require.Equal(t, 1, stations[0].senses)
	require.Equal(t, 1, stations[1].senses)
	require.Equal(t, 1, stations[2].senses)
	require.Len(t, stations[1].ceases, 1)
	require.Len(t, stations[2].ceases, 1)
}
