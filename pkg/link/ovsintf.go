package link

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"Vnet/api"
	"Vnet/pkg/logging"
)

// maxPatchLinks is the point past which a chain of patch links is known
// to degrade badly in the switch datapath.
const maxPatchLinks = 64

// patchCount approximates the number of patch links created process-wide;
// per-chain accounting would need datapath queries this layer avoids.
var patchCount atomic.Int64

// PatchBridger is implemented by switch nodes that can wire a patch port
// to a peer port on another bridge.
type PatchBridger interface {
	AddPatchPort(port, peer string) error
}

// OVSIntf is a patch-port endpoint. It has no kernel device behind it:
// address configuration and shaping are meaningless and rejected.
type OVSIntf struct {
	*BaseIntf
}

// NewOVSIntf registers a patch-port endpoint on a switch node.
func NewOVSIntf(name string, opts IntfOpts) (*OVSIntf, error) {
	i := &OVSIntf{BaseIntf: &BaseIntf{
		name: name,
		node: opts.Node,
		port: opts.Port,
	}}
	if i.name == "" {
		return nil, errors.New("interface name must not be empty")
	}
	if i.node == nil {
		return nil, errors.Errorf("interface %s has no owning node", name)
	}
	i.node.AddIntf(i.name, i.port)
	if _, err := i.Configure(opts.Config); err != nil {
		return nil, err
	}
	return i, nil
}

// Configure accepts only the administrative-up request; a patch port has
// nothing else to configure.
func (i *OVSIntf) Configure(cfg api.IntfConfig) (*api.ConfigResult, error) {
	if cfg.Mac != "" || cfg.IP != "" || cfg.Ifconfig != "" ||
		(cfg.Traffic != nil && !cfg.Traffic.Empty()) {
		return nil, errors.Errorf("cannot configure patch port %s: only 'up' is supported", i.name)
	}
	return &api.ConfigResult{Ops: map[string]string{}}, nil
}

// IsUp is vacuously true: there is no device to bring up.
func (i *OVSIntf) IsUp(bool) bool { return true }

// Delete detaches the endpoint; the patch port goes away with its bridge,
// so no commands are issued here.
func (i *OVSIntf) Delete() {
	i.node.DelIntf(i.name)
	i.node = nil
	i.link = nil
}

// Status always reports OK: patch ports exist exactly as long as their
// bridge does.
func (i *OVSIntf) Status() string { return "OK" }

// NewOVSLink connects two switch nodes with a pair of patch ports instead
// of a device pair. When either node is not a switch it degrades to a
// regular device link.
func NewOVSLink(node1, node2 api.Node, opts LinkOpts) (*Link, error) {
	if node1 == nil || node2 == nil {
		return nil, errors.New("link requires two nodes")
	}
	if !node1.IsSwitch() || !node2.IsSwitch() {
		return NewLink(node1, node2, opts)
	}

	port1, port2 := allocPort(node1, opts.Port1), allocPort(node2, opts.Port2)
	name1, name2 := opts.Name1, opts.Name2
	if name1 == "" {
		name1 = IntfName(node1, port1)
	}
	if name2 == "" {
		name2 = IntfName(node2, port2)
	}

	if n := patchCount.Add(1); n > maxPatchLinks {
		logging.Warnf("%d patch links in use; the datapath degrades beyond %d", n, maxPatchLinks)
	}

	intf1, err := NewOVSIntf(name1, IntfOpts{Node: node1, Port: port1, Config: configOrZero(opts.Params1)})
	if err != nil {
		return nil, err
	}
	intf2, err := NewOVSIntf(name2, IntfOpts{Node: node2, Port: port2, Config: configOrZero(opts.Params2)})
	if err != nil {
		return nil, err
	}

	if b, ok := node1.(PatchBridger); ok {
		if err := b.AddPatchPort(name1, name2); err != nil {
			return nil, errors.Wrapf(err, "patching %s", name1)
		}
	}
	if b, ok := node2.(PatchBridger); ok {
		if err := b.AddPatchPort(name2, name1); err != nil {
			return nil, errors.Wrapf(err, "patching %s", name2)
		}
	}

	l := &Link{Intf1: intf1, Intf2: intf2}
	intf1.attach(l)
	intf2.attach(l)
	return l, nil
}
