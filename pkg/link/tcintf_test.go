package link

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Vnet/api"
)

func tcOpts(n *fakeNode, p *api.TrafficParams) IntfOpts {
	return IntfOpts{Node: n, Config: api.IntfConfig{Up: boolPtr(false), Traffic: p}}
}

// shapeCmds returns the recorded tc commands, skipping the show/del
// cleanup pass.
func shapeCmds(n *fakeNode) []string {
	var cmds []string
	for _, c := range n.cmds {
		if strings.Contains(c, "tc qdisc add") || strings.Contains(c, "tc class add") {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

func TestTCBandwidthInstallsRateLimiter(t *testing.T) {
	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Bandwidth: 10}))
	require.NoError(t, err)

	cmds := shapeCmds(n)
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[0], "root handle 5:0 htb default 1")
	assert.Contains(t, cmds[1], "parent 5:0 classid 5:1 htb rate 10.000000Mbit burst 15k")
}

func TestTCBandwidthOutOfRangeIsIgnored(t *testing.T) {
	logs, restore := captureLogs()
	defer restore()

	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Bandwidth: 2000}))
	require.NoError(t, err)

	assert.Empty(t, shapeCmds(n))
	assert.Equal(t, 1, errorCount(logs))
}

func TestTCLossOutOfRangeIsIgnored(t *testing.T) {
	logs, restore := captureLogs()
	defer restore()

	n := newFakeNode("h1")
	loss := 150.0
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Loss: &loss}))
	require.NoError(t, err)
	assert.Empty(t, shapeCmds(n))
	assert.Equal(t, 1, errorCount(logs))
}

func TestTCNegativeDelaySkipsStageOnly(t *testing.T) {
	logs, restore := captureLogs()
	defer restore()

	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{
		Bandwidth: 10, Delay: "-5ms",
	}))
	require.NoError(t, err)

	// rate limiter still installed, emulator stage skipped
	cmds := shapeCmds(n)
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[0], "htb default 1")
	assert.Equal(t, 1, errorCount(logs))
}

func TestTCFullChainOrdering(t *testing.T) {
	n := newFakeNode("h1")
	loss := 1.0
	i, err := NewTCIntf("h1-eth0", IntfOpts{Node: n, Config: api.IntfConfig{Up: boolPtr(false)}})
	require.NoError(t, err)

	res, err := i.Configure(api.IntfConfig{Up: boolPtr(false), Traffic: &api.TrafficParams{
		Bandwidth: 10, Delay: "5ms", Loss: &loss,
	}})
	require.NoError(t, err)

	cmds := shapeCmds(n)
	require.Len(t, cmds, 3)
	assert.Contains(t, cmds[0], "htb default 1")
	assert.Contains(t, cmds[1], "classid 5:1 htb rate")
	assert.Contains(t, cmds[2], " parent 5:1 ")
	assert.Contains(t, cmds[2], "handle 10: netem delay 5ms loss 1.00000")
	assert.Equal(t, " parent 10:1 ", res.Parent)
}

func TestTCDelayWithoutBandwidthAttachesAtRoot(t *testing.T) {
	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Delay: "20ms", Jitter: "2ms"}))
	require.NoError(t, err)

	cmds := shapeCmds(n)
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], " root handle 10: netem delay 20ms 2ms")
}

func TestTCRedChain(t *testing.T) {
	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{
		Bandwidth: 100, EnableRED: true,
	}))
	require.NoError(t, err)

	cmds := shapeCmds(n)
	require.Len(t, cmds, 3)
	// default min threshold of 30 slots at 1500 bytes each, max 3x min
	assert.Contains(t, cmds[2], "handle 6: red limit 1000000 min 45000 max 135000")
	assert.NotContains(t, cmds[2], "ecn")
}

func TestTCEcnAddsMarking(t *testing.T) {
	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{
		Bandwidth: 100, EnableECN: true,
	}))
	require.NoError(t, err)

	cmds := shapeCmds(n)
	require.Len(t, cmds, 3)
	assert.True(t, strings.HasSuffix(cmds[2], " ecn"))
}

func TestTCEcnWithoutBandwidthIsRejected(t *testing.T) {
	logs, restore := captureLogs()
	defer restore()

	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{EnableECN: true}))
	require.NoError(t, err)

	assert.Empty(t, shapeCmds(n))
	assert.Equal(t, 1, errorCount(logs))
}

func TestTCTbfDefaultLatency(t *testing.T) {
	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{
		Bandwidth: 8, UseTBF: true,
	}))
	require.NoError(t, err)

	cmds := shapeCmds(n)
	require.Len(t, cmds, 1)
	// 15 * 8 / bw with bw = 8
	assert.Contains(t, cmds[0], "tbf rate 8.000000Mbit burst 15000 latency 15.000000ms")
}

func TestTCHfscCurves(t *testing.T) {
	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{
		Bandwidth: 50, UseHFSC: true,
	}))
	require.NoError(t, err)

	cmds := shapeCmds(n)
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[0], "hfsc default 1")
	assert.Contains(t, cmds[1], "hfsc sc rate 50.000000Mbit ul rate 50.000000Mbit")
}

func TestTCSpeedupOnlyOnSwitchPorts(t *testing.T) {
	sw := newFakeNode("s1")
	_, err := NewTCIntf("s1-eth0", tcOpts(sw, &api.TrafficParams{
		Bandwidth: 10, Speedup: 100,
	}))
	require.NoError(t, err)
	assert.True(t, sw.hasCmd("htb rate 100.000000Mbit"))

	h := newFakeNode("h1")
	_, err = NewTCIntf("h1-eth0", tcOpts(h, &api.TrafficParams{
		Bandwidth: 10, Speedup: 100,
	}))
	require.NoError(t, err)
	assert.True(t, h.hasCmd("htb rate 10.000000Mbit"))
}

func TestTCClearsExistingChain(t *testing.T) {
	n := newFakeNode("h1")
	n.respond("tc qdisc show", "qdisc htb 5: root refcnt 2")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Bandwidth: 10}))
	require.NoError(t, err)
	assert.True(t, n.hasCmd("tc qdisc del dev h1-eth0 root"))
}

func TestTCDefaultQdiscNeedsNoClearing(t *testing.T) {
	n := newFakeNode("h1")
	n.respond("tc qdisc show", "qdisc noqueue 0: root refcnt 2")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Bandwidth: 10}))
	require.NoError(t, err)
	assert.False(t, n.hasCmd("tc qdisc del"))
}

func TestTCGroDisabledByDefault(t *testing.T) {
	n := newFakeNode("h1")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Bandwidth: 10}))
	require.NoError(t, err)
	assert.True(t, n.hasCmd("ethtool -K h1-eth0 gro off"))

	keep := newFakeNode("h2")
	gro := false
	_, err = NewTCIntf("h2-eth0", tcOpts(keep, &api.TrafficParams{Bandwidth: 10, DisableGRO: &gro}))
	require.NoError(t, err)
	assert.False(t, keep.hasCmd("gro off"))
}

func TestTCShapingErrorOutputIsReported(t *testing.T) {
	logs, restore := captureLogs()
	defer restore()

	n := newFakeNode("h1")
	n.respond("tc qdisc add", "RTNETLINK answers: Operation not permitted")
	_, err := NewTCIntf("h1-eth0", tcOpts(n, &api.TrafficParams{Bandwidth: 10}))
	require.NoError(t, err)
	// one error per failed command, shaping kept going
	assert.Equal(t, 1, errorCount(logs))
	assert.True(t, n.hasCmd("tc class add"))
}
