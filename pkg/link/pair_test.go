package link

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner is a root-context stand-in answering from a rule table.
type fakeRunner struct {
	rules []respRule
	cmds  []string
}

func (f *fakeRunner) Run(cmd string) string {
	f.cmds = append(f.cmds, cmd)
	for _, r := range f.rules {
		if strings.Contains(cmd, r.substr) {
			return r.out
		}
	}
	return ""
}

func (f *fakeRunner) Pexec(cmd string) (string, string, int) {
	return f.Run(cmd), "", 0
}

func (f *fakeRunner) hasCmd(substr string) bool {
	for _, c := range f.cmds {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func TestEpairPairRenamesKernelNames(t *testing.T) {
	host := &fakeRunner{rules: []respRule{{"ifconfig epair create", "epair0a\n"}}}
	f := &EpairPair{Host: host}

	e1, e2, err := f.MakePair(PairRequest{
		Name1: "j1-eth0", Name2: "j2-eth0",
		Node1: newFakeNode("j1"), Node2: newFakeNode("j2"),
	})
	require.NoError(t, err)

	assert.Equal(t, PairEnd{Name: "j1-eth0"}, e1)
	assert.Equal(t, PairEnd{Name: "j2-eth0"}, e2)
	assert.True(t, host.hasCmd("ifconfig epair0a name j1-eth0"))
	assert.True(t, host.hasCmd("ifconfig epair0b name j2-eth0"))
	assert.True(t, host.hasCmd("ifconfig j1-eth0 up"))
}

func TestEpairPairDeleteExisting(t *testing.T) {
	host := &fakeRunner{rules: []respRule{{"ifconfig epair create", "epair0a\n"}}}
	f := &EpairPair{Host: host}

	_, _, err := f.MakePair(PairRequest{
		Name1: "j1-eth0", Name2: "j2-eth0",
		DeleteExisting: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ifconfig j1-eth0 destroy", host.cmds[0])
	assert.Equal(t, "ifconfig j2-eth0 destroy", host.cmds[1])
}

func TestEpairPairRejectsBadCreateOutput(t *testing.T) {
	host := &fakeRunner{rules: []respRule{{"ifconfig epair create", "ifconfig: not permitted"}}}
	f := &EpairPair{Host: host}

	_, _, err := f.MakePair(PairRequest{Name1: "a", Name2: "b"})
	require.Error(t, err)
}

func TestEpairPairMovesIntoJails(t *testing.T) {
	host := &fakeRunner{rules: []respRule{{"ifconfig epair create", "epair0a\n"}}}
	f := &EpairPair{Host: host}
	j1, j2 := newFakeNode("j1"), newFakeNode("j2")
	j1.ctxID, j2.ctxID = "12", "13"

	_, _, err := f.MakePair(PairRequest{
		Name1: "j1-eth0", Name2: "j2-eth0",
		Node1: j1, Node2: j2,
		Move: true,
	})
	require.NoError(t, err)
	assert.True(t, host.hasCmd("ifconfig j1-eth0 vnet 12"))
	assert.True(t, host.hasCmd("ifconfig j2-eth0 vnet 13"))
}

func TestPairPairKeepsKernelNames(t *testing.T) {
	host := &fakeRunner{}
	f := &PairPair{Host: host, Index: &Sequence{}}
	r1, r2 := newFakeNode("r1"), newFakeNode("r2")
	r1.ctxID, r2.ctxID = "1", "2"

	e1, e2, err := f.MakePair(PairRequest{
		Name1: "r1-eth0", Name2: "r2-eth0",
		Node1: r1, Node2: r2,
		Move: true,
	})
	require.NoError(t, err)

	assert.Equal(t, PairEnd{Name: "r1-eth0", RealName: "pair1"}, e1)
	assert.Equal(t, PairEnd{Name: "r2-eth0", RealName: "pair2"}, e2)
	assert.True(t, host.hasCmd("ifconfig pair1 create"))
	assert.True(t, host.hasCmd("ifconfig pair1 patch pair2"))
	// moves target the kernel names, not the logical ones
	assert.True(t, host.hasCmd("ifconfig pair1 rdomain 1"))
	assert.True(t, host.hasCmd("ifconfig pair2 rdomain 2"))
	assert.False(t, host.hasCmd("r1-eth0"))
}

func TestPairPairNumbersAdvanceAcrossLinks(t *testing.T) {
	host := &fakeRunner{}
	f := &PairPair{Host: host, Index: &Sequence{}}

	_, _, err := f.MakePair(PairRequest{Name1: "a", Name2: "b"})
	require.NoError(t, err)
	e1, _, err := f.MakePair(PairRequest{Name1: "c", Name2: "d"})
	require.NoError(t, err)
	assert.Equal(t, "pair3", e1.RealName)
}

func TestPairPairSetsMACs(t *testing.T) {
	host := &fakeRunner{}
	f := &PairPair{Host: host, Index: &Sequence{}}

	_, _, err := f.MakePair(PairRequest{
		Name1: "a", Name2: "b",
		Addr1: "00:11:22:33:44:55",
	})
	require.NoError(t, err)
	assert.True(t, host.hasCmd("ifconfig pair1 lladdr 00:11:22:33:44:55"))
	assert.False(t, host.hasCmd("ifconfig pair2 lladdr"))
}
