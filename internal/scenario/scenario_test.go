package scenario

import (
	"os"
	"testing"

	"github.com/malbeclabs/netsim/internal/ipaddr"
	"github.com/stretchr/testify/require"
)

// yamlBasic is a basic two-host topology on one 250m 10BASE5-like segment,
// H1 sending to H2 at t=0.
const yamlBasic = `
cables:
  - name: seg1
    lengthM: 250
    bitrateBps: 1e7
    velocityFactor: 0.66
    grid: 2.5
hosts:
  - name: h1
    interfaces:
      - name: eth0
        mac: "AA:AA:AA:AA:AA:AA"
        ip: "192.168.1.2"
        netmask: 24
        bitrateBps: 1e7
        attach: {cable: seg1, position: 0}
  - name: h2
    interfaces:
      - name: eth0
        mac: "BB:BB:BB:BB:BB:BB"
        ip: "192.168.1.3"
        netmask: 24
        bitrateBps: 1e7
        attach: {cable: seg1, position: 250}
sends:
  - atNs: 0
    host: h1
    interface: eth0
    dstIp: "192.168.1.3"
    payload: [1, 2, 3, 4]
`

func TestScenario_Load_ParsesAndValidates(t *testing.T) {
	t.Parallel()
	s, err := parseString(t, yamlBasic)
	require.NoError(t, err)
	require.Len(t, s.Cables, 1)
	require.Len(t, s.Hosts, 2)
}

func TestScenario_Validate_RejectsUnknownCableReference(t *testing.T) {
	t.Parallel()
	s, err := parseString(t, `
hosts:
  - name: h1
    interfaces:
      - name: eth0
        ip: "10.0.0.1"
        netmask: 24
        bitrateBps: 1e7
        attach: {cable: nope}
`)
	require.Error(t, err)
	require.Nil(t, s)
}

func TestScenario_Build_DeliversPayloadAcrossArpResolution(t *testing.T) {
	t.Parallel()
	s, err := parseString(t, yamlBasic)
	require.NoError(t, err)

	top, err := Build(s, nil, nil)
	require.NoError(t, err)

	h2 := top.Hosts["h2"]
	require.NotNil(t, h2)
	top.Engine.RunAll()

	cache := h2.IPv4().ArpTable("eth0")
	require.NotNil(t, cache)
	entries := cache.Entries(top.Engine.Now())
	require.Len(t, entries, 1)
	require.Equal(t, mustMAC(t, "AA:AA:AA:AA:AA:AA"), entries[0].MAC)
}

func parseString(t *testing.T, content string) (*Scenario, error) {
	t.Helper()
	path := t.TempDir() + "/scenario.yaml"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return Load(path)
}

func mustMAC(t *testing.T, s string) ipaddr.MAC {
	t.Helper()
	m, err := ipaddr.ParseMAC(s)
	require.NoError(t, err)
	return m
}
