package link

import (
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"Vnet/api"
	"Vnet/pkg/logging"
)

// respRule maps a command substring to canned output; first match wins.
type respRule struct {
	substr string
	out    string
}

// fakeNode records every command it is asked to run and answers from a
// rule table, defaulting to empty output (success).
type fakeNode struct {
	name     string
	ctxID    string
	isSwitch bool
	rules    []respRule
	cmds     []string

	nextPort int
	intfs    map[string]int
	aliases  map[string]string

	patched [][2]string // AddPatchPort calls: {port, peer}
}

func newFakeNode(name string) *fakeNode {
	return &fakeNode{
		name:    name,
		intfs:   make(map[string]int),
		aliases: make(map[string]string),
	}
}

func (f *fakeNode) respond(substr, out string) {
	f.rules = append(f.rules, respRule{substr, out})
}

func (f *fakeNode) Name() string { return f.name }

func (f *fakeNode) Cmd(cmd string) string {
	f.cmds = append(f.cmds, cmd)
	for _, r := range f.rules {
		if strings.Contains(cmd, r.substr) {
			return r.out
		}
	}
	return ""
}

func (f *fakeNode) Pexec(cmd string) (string, string, int) {
	return f.Cmd(cmd), "", 0
}

func (f *fakeNode) NewPort() int {
	p := f.nextPort
	f.nextPort++
	return p
}

func (f *fakeNode) AddIntf(name string, port int) { f.intfs[name] = port }
func (f *fakeNode) DelIntf(name string)           { delete(f.intfs, name) }

func (f *fakeNode) IntfNames() []string {
	names := make([]string, 0, len(f.intfs))
	for n := range f.intfs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *fakeNode) ContextID() string { return f.ctxID }
func (f *fakeNode) IsSwitch() bool    { return f.isSwitch }

func (f *fakeNode) SetPortAlias(logical, real string) { f.aliases[logical] = real }
func (f *fakeNode) DelPortAlias(logical string)       { delete(f.aliases, logical) }

func (f *fakeNode) AddPatchPort(port, peer string) error {
	f.patched = append(f.patched, [2]string{port, peer})
	return nil
}

// hasCmd reports whether any recorded command contains all substrings.
func (f *fakeNode) hasCmd(substrs ...string) bool {
	for _, c := range f.cmds {
		ok := true
		for _, s := range substrs {
			if !strings.Contains(c, s) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// fakePairFactory returns pre-set ends and records the last request.
type fakePairFactory struct {
	end1, end2 PairEnd
	last       *PairRequest
}

func (f *fakePairFactory) MakePair(req PairRequest) (PairEnd, PairEnd, error) {
	f.last = &req
	e1, e2 := f.end1, f.end2
	if e1.Name == "" {
		e1.Name = req.Name1
	}
	if e2.Name == "" {
		e2.Name = req.Name2
	}
	return e1, e2, nil
}

// captureLogs swaps in an observer logger; the returned function restores
// the previous one. Filter the returned logs by level in assertions.
func captureLogs() (*observer.ObservedLogs, func()) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logging.Replace(core)
	return logs, restore
}

func errorCount(logs *observer.ObservedLogs) int {
	return logs.FilterLevelExact(zapcore.ErrorLevel).Len()
}

func basicOpts(n api.Node) IntfOpts {
	return IntfOpts{Node: n, Port: n.NewPort()}
}
