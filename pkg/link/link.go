package link

import (
	"fmt"

	"github.com/pkg/errors"

	"Vnet/api"
	"Vnet/pkg/logging"
)

// PairEnd describes one side of a created device pair. RealName differs
// from Name on backends that cannot rename devices.
type PairEnd struct {
	Name     string
	RealName string
}

// PairRequest tells a pair factory what to create and where the ends go.
type PairRequest struct {
	Name1, Name2 string
	Addr1, Addr2 string
	Node1, Node2 api.Node
	// DeleteExisting removes stale devices with the same names first.
	DeleteExisting bool
	// Move places each end into its node's isolation context. When unset
	// the interface layer does the placement itself.
	Move bool
}

// PairFactory creates connected device pairs for one backend.
type PairFactory interface {
	MakePair(req PairRequest) (end1, end2 PairEnd, err error)
}

// IntfFactory builds one link endpoint.
type IntfFactory func(name string, opts IntfOpts) (Intf, error)

// LinkOpts tunes link construction. Zero values pick sensible defaults:
// ports are allocated from the nodes, names derive from node and port,
// endpoints are plain unshaped interfaces.
type LinkOpts struct {
	Port1, Port2 *int
	Name1, Name2 string
	Addr1, Addr2 string

	// Intf builds both endpoints unless Cls1/Cls2 override per side.
	Intf       IntfFactory
	Cls1, Cls2 IntfFactory

	Params1, Params2 *api.IntfConfig

	// Fast skips the pre-placement cleanup pass: the factory neither
	// deletes stale devices nor moves the ends; interface construction
	// places them instead.
	Fast bool

	Pair    PairFactory
	Backend Backend

	// HostRun executes root-context commands (device moves). Defaults to
	// a local runner.
	HostRun func(cmd string) string
}

// IntfName returns the canonical interface name for a node port.
func IntfName(node api.Node, port int) string {
	return fmt.Sprintf("%s-eth%d", node.Name(), port)
}

// Link is a device pair connecting two nodes, one endpoint per side.
type Link struct {
	Intf1, Intf2 Intf
}

// NewLink creates a device pair between node1 and node2 and wraps each end
// in an interface. Endpoints come up configured per Params1/Params2.
func NewLink(node1, node2 api.Node, opts LinkOpts) (*Link, error) {
	if node1 == nil || node2 == nil {
		return nil, errors.New("link requires two nodes")
	}
	if opts.Pair == nil {
		return nil, errors.New("link requires a pair factory")
	}

	port1, port2 := allocPort(node1, opts.Port1), allocPort(node2, opts.Port2)
	name1, name2 := opts.Name1, opts.Name2
	if name1 == "" {
		name1 = IntfName(node1, port1)
	}
	if name2 == "" {
		name2 = IntfName(node2, port2)
	}

	end1, end2, err := opts.Pair.MakePair(PairRequest{
		Name1: name1, Name2: name2,
		Addr1: opts.Addr1, Addr2: opts.Addr2,
		Node1: node1, Node2: node2,
		DeleteExisting: !opts.Fast,
		Move:           !opts.Fast,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "creating pair %s<->%s", name1, name2)
	}

	cls1 := pickFactory(opts.Cls1, opts.Intf)
	cls2 := pickFactory(opts.Cls2, opts.Intf)

	intf1, err := cls1(name1, IntfOpts{
		Node: node1, Port: port1, MAC: opts.Addr1,
		RealName: end1.RealName, Backend: opts.Backend,
		Placed: !opts.Fast, HostRun: opts.HostRun,
		Config: configOrZero(opts.Params1),
	})
	if err != nil {
		return nil, err
	}
	intf2, err := cls2(name2, IntfOpts{
		Node: node2, Port: port2, MAC: opts.Addr2,
		RealName: end2.RealName, Backend: opts.Backend,
		Placed: !opts.Fast, HostRun: opts.HostRun,
		Config: configOrZero(opts.Params2),
	})
	if err != nil {
		return nil, err
	}

	l := &Link{Intf1: intf1, Intf2: intf2}
	intf1.attach(l)
	intf2.attach(l)
	return l, nil
}

func allocPort(n api.Node, p *int) int {
	if p != nil {
		return *p
	}
	return n.NewPort()
}

func pickFactory(cls, def IntfFactory) IntfFactory {
	if cls != nil {
		return cls
	}
	if def != nil {
		return def
	}
	return func(name string, opts IntfOpts) (Intf, error) {
		return NewIntf(name, opts)
	}
}

func configOrZero(c *api.IntfConfig) api.IntfConfig {
	if c != nil {
		return *c
	}
	return api.IntfConfig{}
}

// Delete tears down both endpoints and their devices.
func (l *Link) Delete() {
	if l.Intf1 != nil {
		l.Intf1.Delete()
		l.Intf1 = nil
	}
	if l.Intf2 != nil {
		l.Intf2.Delete()
		l.Intf2 = nil
	}
}

// Status reports both endpoint statuses, e.g. "(OK OK)".
func (l *Link) Status() string {
	return fmt.Sprintf("(%s %s)", l.Intf1.Status(), l.Intf2.Status())
}

func (l *Link) String() string {
	return fmt.Sprintf("%s<->%s", l.Intf1, l.Intf2)
}

// NewTCLink creates a link shaped with queueing disciplines on both ends.
// When only Params1 is given it applies symmetrically.
func NewTCLink(node1, node2 api.Node, opts LinkOpts) (*Link, error) {
	opts.Intf = func(name string, o IntfOpts) (Intf, error) {
		return NewTCIntf(name, o)
	}
	if opts.Params2 == nil {
		opts.Params2 = opts.Params1
	}
	return NewLink(node1, node2, opts)
}

// IFLink is a link shaped with firewall pipes. Pipes only work in the root
// context, so shaping attaches to the endpoint whose node lives there.
type IFLink struct {
	*Link
	shapeEnd Intf
	// lossOnly is set when both nodes are isolated and nothing can host
	// the pipes; only probabilistic loss rules still apply.
	lossOnly bool
}

// NewIFLink creates a pipe-shaped link. Shaping parameters come from
// Params1's Traffic section and apply to whichever end can carry pipes.
func NewIFLink(node1, node2 api.Node, opts LinkOpts) (*IFLink, error) {
	traffic := trafficOf(opts.Params1)
	// Endpoints are built unshaped; shaping is applied once the target
	// end is known.
	opts.Params1, opts.Params2 = stripTraffic(opts.Params1), stripTraffic(opts.Params2)
	opts.Intf = func(name string, o IntfOpts) (Intf, error) {
		return NewIFIntf(name, o)
	}

	base, err := NewLink(node1, node2, opts)
	if err != nil {
		return nil, err
	}
	l := &IFLink{Link: base}

	switch {
	case node1.ContextID() == "":
		l.shapeEnd = base.Intf1
	case node2.ContextID() == "":
		l.shapeEnd = base.Intf2
	default:
		logging.Warnf("both ends of %s are isolated; applying loss only", l)
		l.shapeEnd = base.Intf1
		l.lossOnly = true
	}

	if traffic != nil {
		if _, err := l.Shape(traffic); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Shape applies traffic parameters to the link's shaping endpoint.
func (l *IFLink) Shape(p *api.TrafficParams) (*api.ConfigResult, error) {
	cfg := api.IntfConfig{Traffic: p}
	if l.lossOnly {
		trimmed := *p
		trimmed.Bandwidth = 0
		trimmed.Delay, trimmed.Jitter = "", ""
		trimmed.MaxQueueSize = nil
		trimmed.EnableECN, trimmed.EnableRED, trimmed.EnableGRED = false, false, false
		cfg.Traffic = &trimmed
	}
	return l.shapeEnd.Configure(cfg)
}

func trafficOf(c *api.IntfConfig) *api.TrafficParams {
	if c == nil {
		return nil
	}
	return c.Traffic
}

func stripTraffic(c *api.IntfConfig) *api.IntfConfig {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Traffic = nil
	return &cp
}
