package phy

import (
	"testing"

	"github.com/malbeclabs/netsim/internal/engine"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	senses int
	ceases [][]byte
	senders []*Connector
}

func (r *recorder) OnSense(eng *engine.Engine) { r.senses++ }
func (r *recorder) OnCease(eng *engine.Engine, data []byte, sender *Connector) {
	r.ceases = append(r.ceases, data)
	r.senders = append(r.senders, sender)
}

func TestPhy_Cable_New_RejectsBadParams(t *testing.T) {
	t.Parallel()
	_, err := New(Params{LengthM: 0, BitrateBps: 1e7, VelocityFactor: 0.66})
	require.Error(t, err)

	_, err = New(Params{LengthM: 100, BitrateBps: 1e7, VelocityFactor: 1.5})
	require.Error(t, err)

	_, err = New(Params{LengthM: 100, BitrateBps: 1e7, VelocityFactor: 0.66, BitErrorRate: 0.1, MinBurstErrorLen: 10, MaxBurstErrorLen: 5})
	require.Error(t, err)
}

func TestPhy_Cable_Attach_RejectsOffGridAndDuplicatePosition(t *testing.T) {
	t.Parallel()
	cbl, err := New(Params{LengthM: 500, BitrateBps: 1e7, VelocityFactor: 0.66, Grid: 2.5})
	require.NoError(t, err)

	r := &recorder{}
	c1 := NewConnector(r)
	require.Error(t, cbl.Attach(c1, 1.0)) // not a multiple of 2.5

	require.NoError(t, cbl.Attach(c1, 2.5))

	c2 := NewConnector(r)
	require.Error(t, cbl.Attach(c2, 2.5)) // taken

	require.NoError(t, cbl.Attach(c2, 5.0))
}

func TestPhy_Cable_Transmit_DeliversSenseThenCeaseWithPropagationDelay(t *testing.T) {
	t.Parallel()
	cbl, err := New(Params{LengthM: 250, BitrateBps: 1e7, VelocityFactor: 0.66})
	require.NoError(t, err)

	r1, r2 := &recorder{}, &recorder{}
	c1, c2 := NewConnector(r1), NewConnector(r2)
	require.NoError(t, cbl.Attach(c1, 0))
	require.NoError(t, cbl.Attach(c2, 250))

	eng := engine.New(nil)
	payload := make([]byte, 64)
	transTime := cbl.Transmit(eng, c1, payload)
	require.Greater(t, transTime, engine.Time(0))

	eng.RunAll()

	// c1 (source) gets its own sense/cease at zero propagation delay.
	require.Equal(t, 1, r1.senses)
	require.Len(t, r1.ceases, 1)
	require.Equal(t, c1, r1.senders[0])

	// c2 gets sense/cease delayed by propagation.
	require.Equal(t, 1, r2.senses)
	require.Len(t, r2.ceases, 1)
	require.Equal(t, payload, r2.ceases[0])
}

func TestPhy_Cable_Jam_CancelsOutstandingCeaseAndDeliversNilPayload(t *testing.T) {
	t.Parallel()
	cbl, err := New(Params{LengthM: 250, BitrateBps: 1e7, VelocityFactor: 0.66})
	require.NoError(t, err)

	r1, r2 := &recorder{}, &recorder{}
	c1, c2 := NewConnector(r1), NewConnector(r2)
	require.NoError(t, cbl.Attach(c1, 0))
	require.NoError(t, cbl.Attach(c2, 250))

	eng := engine.New(nil)
	cbl.Transmit(eng, c1, make([]byte, 1500))
	// Jam before the original cease fires.
	cbl.Jam(eng, c1)

	eng.RunAll()

	// The original (long) cease for c2 must have been cancelled, leaving
	// only the jam's cease (nil payload).
	require.Len(t, r2.ceases, 1)
	require.True(t, IsJam(r2.ceases[0]))
}

func TestPhy_Cable_Distort_OnlyAppliesWhenBitErrorRatePositive(t *testing.T) {
	t.Parallel()
	cbl, err := New(Params{LengthM: 10, BitrateBps: 1e7, VelocityFactor: 1})
	require.NoError(t, err)
	data := []byte{1, 2, 3, 4}
	require.Equal(t, data, cbl.distort(data))
}
