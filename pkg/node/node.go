// Package node provides the execution contexts links attach to: plain
// processes, containers, jails, routing domains and vswitch bridges.
package node

import (
	"sort"
	"strconv"
	"sync"

	"Vnet/pkg/runner"
)

// Node is a basic execution context: a name, a command runner and an
// interface table. It satisfies api.Node.
type Node struct {
	name     string
	r        runner.Runner
	ctxID    string
	isSwitch bool

	mu       sync.Mutex
	nextPort int
	intfs    map[string]int
	aliases  map[string]string
}

// New returns a node running commands through r. ctxID identifies the
// node's isolation context; empty means the root context.
func New(name string, r runner.Runner, ctxID string) *Node {
	return &Node{
		name:    name,
		r:       r,
		ctxID:   ctxID,
		intfs:   make(map[string]int),
		aliases: make(map[string]string),
	}
}

// NewProcessNode returns a root-context node running commands locally.
func NewProcessNode(name string) *Node {
	return New(name, runner.NewLocal(), "")
}

// NewJailNode returns a node whose commands run inside a vnet jail.
func NewJailNode(name string, jid int) *Node {
	id := strconv.Itoa(jid)
	return New(name, runner.NewPrefixed("jexec "+id), id)
}

// NewRdomainNode returns a node whose commands run inside a routing
// domain.
func NewRdomainNode(name string, rdomain int) *Node {
	id := strconv.Itoa(rdomain)
	return New(name, runner.NewPrefixed("route -T "+id+" exec"), id)
}

func (n *Node) Name() string { return n.name }

// Cmd runs a command in the node's context, resolving interface aliases
// first on backends that need them.
func (n *Node) Cmd(cmd string) string {
	return n.r.Run(cmd)
}

func (n *Node) Pexec(cmd string) (string, string, int) {
	return n.r.Pexec(cmd)
}

// NewPort hands out the next free port index, starting at 0.
func (n *Node) NewPort() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.nextPort
	n.nextPort++
	return p
}

func (n *Node) AddIntf(name string, port int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intfs[name] = port
	if port >= n.nextPort {
		n.nextPort = port + 1
	}
}

func (n *Node) DelIntf(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.intfs, name)
}

func (n *Node) IntfNames() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.intfs))
	for name := range n.intfs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Node) ContextID() string { return n.ctxID }
func (n *Node) IsSwitch() bool    { return n.isSwitch }

// SetPortAlias records the real device name behind a logical interface
// name; used on backends whose devices cannot be renamed.
func (n *Node) SetPortAlias(logical, real string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.aliases[logical] = real
}

func (n *Node) DelPortAlias(logical string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.aliases, logical)
}

// PortAlias resolves a logical interface name to its real device name.
// Names without an alias map to themselves.
func (n *Node) PortAlias(logical string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if real, ok := n.aliases[logical]; ok {
		return real
	}
	return logical
}
