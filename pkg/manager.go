// Package pkg ties the pieces together: it owns node lifecycle and builds
// links between the nodes it manages.
package pkg

import (
	"context"

	"github.com/pkg/errors"

	"Vnet/api"
	"Vnet/pkg/link"
	"Vnet/pkg/logging"
	"Vnet/pkg/node"
	"Vnet/pkg/ovs"
)

// Manager owns a topology: its nodes, the links between them and the
// vswitch and container backends behind them.
type Manager struct {
	Nodes map[string]api.Node

	links []*link.Link
	om    *ovs.Manager
	dm    *node.DockerManager
	pair  link.PairFactory
	ctx   context.Context
}

// NewManager wires up the default backends: container-backed hosts,
// vswitch-backed switches, veth pairs for links.
func NewManager() (*Manager, error) {
	dm, err := node.NewDockerManager()
	if err != nil {
		return nil, err
	}
	return &Manager{
		Nodes: make(map[string]api.Node),
		om:    ovs.NewManager(),
		dm:    dm,
		pair:  link.NewVethPair(),
		ctx:   context.Background(),
	}, nil
}

// AddNode creates a node from its spec: a vswitch bridge for switches, a
// container for everything else. Re-adding a name replaces the old node.
func (m *Manager) AddNode(spec api.NodeSpec) error {
	if _, existed := m.Nodes[spec.Name]; existed {
		if err := m.removeNode(spec.Name); err != nil {
			return err
		}
	}

	var n api.Node
	var err error
	if spec.Switch {
		n, err = node.NewSwitch(spec.Name, m.om)
	} else {
		n, err = m.dm.AddNode(m.ctx, &spec)
	}
	if err != nil {
		return err
	}
	m.Nodes[spec.Name] = n
	return nil
}

func (m *Manager) removeNode(name string) error {
	n := m.Nodes[name]
	delete(m.Nodes, name)
	if sw, ok := n.(*node.Switch); ok {
		return sw.Delete()
	}
	return m.dm.RemoveNode(m.ctx, name)
}

// removeNodeBackend removes a node's backing resource by spec alone,
// without requiring the node to be managed by this process.
func (m *Manager) removeNodeBackend(spec api.NodeSpec) error {
	if spec.Switch {
		return m.om.DeleteBridge(spec.Name)
	}
	return m.dm.RemoveNode(m.ctx, spec.Name)
}

// AddLink connects two managed nodes. Two switches get a patch link,
// shaped parameters get a qdisc-shaped link, everything else a plain one.
// Endpoints landing on a switch are attached to its bridge.
func (m *Manager) AddLink(spec api.LinkSpec) error {
	n1, ok := m.Nodes[spec.Node1]
	if !ok {
		return errors.Errorf("node %s not found", spec.Node1)
	}
	n2, ok := m.Nodes[spec.Node2]
	if !ok {
		return errors.Errorf("node %s not found", spec.Node2)
	}

	opts := link.LinkOpts{
		Params1: spec.Params,
		Params2: spec.Params,
		Fast:    spec.Fast,
		Pair:    m.pair,
		Backend: link.BackendNamespace,
	}

	var l *link.Link
	var err error
	switch {
	case n1.IsSwitch() && n2.IsSwitch():
		l, err = link.NewOVSLink(n1, n2, opts)
	case spec.Params != nil && spec.Params.Traffic != nil:
		l, err = link.NewTCLink(n1, n2, opts)
	default:
		l, err = link.NewLink(n1, n2, opts)
	}
	if err != nil {
		return errors.Wrapf(err, "linking %s and %s", spec.Node1, spec.Node2)
	}

	// Patch ports live in the vswitch database; only device-backed
	// endpoints landing on a switch need attaching to its bridge.
	if !(n1.IsSwitch() && n2.IsSwitch()) {
		for _, intf := range []link.Intf{l.Intf1, l.Intf2} {
			if sw, ok := intf.Node().(*node.Switch); ok {
				if err := sw.AttachPort(intf.RealName()); err != nil {
					return err
				}
			}
		}
	}

	m.links = append(m.links, l)
	return nil
}

// ShowNodes logs the managed nodes and their interfaces.
func (m *Manager) ShowNodes() {
	for name, n := range m.Nodes {
		logging.Infof("%s: %v", name, n.IntfNames())
	}
}

// ShowLinks logs every managed link with its endpoint status.
func (m *Manager) ShowLinks() {
	for _, l := range m.links {
		logging.Infof("%s %s", l, l.Status())
	}
}

// Destroy tears down all links and nodes. Errors are logged, not
// returned; teardown keeps going.
func (m *Manager) Destroy() {
	for _, l := range m.links {
		l.Delete()
	}
	m.links = nil
	for name := range m.Nodes {
		if err := m.removeNode(name); err != nil {
			logging.Errorf("removing %s: %v", name, err)
		}
	}
}
