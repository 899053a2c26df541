package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Vnet/pkg/runner"
)

type recordingRunner struct {
	cmds []string
}

func (r *recordingRunner) Run(cmd string) string {
	r.cmds = append(r.cmds, cmd)
	return ""
}

func (r *recordingRunner) Pexec(cmd string) (string, string, int) {
	return r.Run(cmd), "", 0
}

func TestNewPortIsMonotonic(t *testing.T) {
	n := New("h1", &recordingRunner{}, "")
	assert.Equal(t, 0, n.NewPort())
	assert.Equal(t, 1, n.NewPort())

	// registering a higher port bumps the allocator past it
	n.AddIntf("h1-eth5", 5)
	assert.Equal(t, 6, n.NewPort())
}

func TestIntfTable(t *testing.T) {
	n := New("h1", &recordingRunner{}, "")
	n.AddIntf("h1-eth0", 0)
	n.AddIntf("h1-eth1", 1)
	assert.Equal(t, []string{"h1-eth0", "h1-eth1"}, n.IntfNames())

	n.DelIntf("h1-eth0")
	assert.Equal(t, []string{"h1-eth1"}, n.IntfNames())
}

func TestPortAliases(t *testing.T) {
	n := New("r1", &recordingRunner{}, "1")
	n.SetPortAlias("r1-eth0", "pair1")
	assert.Equal(t, "pair1", n.PortAlias("r1-eth0"))
	assert.Equal(t, "r1-eth1", n.PortAlias("r1-eth1"))

	n.DelPortAlias("r1-eth0")
	assert.Equal(t, "r1-eth0", n.PortAlias("r1-eth0"))
}

func TestJailNodeRunsUnderJexec(t *testing.T) {
	n := NewJailNode("j1", 12)
	assert.Equal(t, "12", n.ContextID())

	p, ok := n.r.(*runner.Prefixed)
	require.True(t, ok)
	assert.Equal(t, "jexec 12", p.Prefix)
}

func TestRdomainNodeRunsUnderRouteExec(t *testing.T) {
	n := NewRdomainNode("r1", 3)
	assert.Equal(t, "3", n.ContextID())
	assert.False(t, n.IsSwitch())

	p, ok := n.r.(*runner.Prefixed)
	require.True(t, ok)
	assert.Equal(t, "route -T 3 exec", p.Prefix)
}
