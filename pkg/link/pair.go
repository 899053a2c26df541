package link

import (
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"

	"Vnet/api"
	"Vnet/pkg/logging"
	"Vnet/pkg/runner"
	"Vnet/pkg/util"
)

// VethPair creates veth device pairs for the namespace backend.
type VethPair struct {
	// Host runs root-context commands, device moves in particular.
	Host runner.Runner
}

// NewVethPair returns a veth factory using a local root-context runner.
func NewVethPair() *VethPair {
	return &VethPair{Host: runner.NewLocal()}
}

func (v *VethPair) MakePair(req PairRequest) (PairEnd, PairEnd, error) {
	if req.DeleteExisting {
		for _, name := range []string{req.Name1, req.Name2} {
			if old, err := netlink.LinkByName(name); err == nil {
				_ = netlink.LinkDel(old)
			}
		}
	}

	la := netlink.NewLinkAttrs()
	la.Name = req.Name1
	la.MTU = 1500
	veth := &netlink.Veth{LinkAttrs: la, PeerName: req.Name2}
	if err := netlink.LinkAdd(veth); err != nil {
		return PairEnd{}, PairEnd{}, errors.Wrapf(err, "creating veth %s<->%s", req.Name1, req.Name2)
	}

	for _, end := range []struct{ name, addr string }{
		{req.Name1, req.Addr1}, {req.Name2, req.Addr2},
	} {
		l, err := netlink.LinkByName(end.name)
		if err != nil {
			return PairEnd{}, PairEnd{}, errors.Wrapf(err, "looking up %s", end.name)
		}
		if end.addr != "" {
			hw, err := net.ParseMAC(end.addr)
			if err != nil {
				return PairEnd{}, PairEnd{}, errors.Wrapf(err, "bad MAC for %s", end.name)
			}
			if err := netlink.LinkSetHardwareAddr(l, hw); err != nil {
				return PairEnd{}, PairEnd{}, errors.Wrapf(err, "setting MAC on %s", end.name)
			}
		}
		if err := netlink.LinkSetUp(l); err != nil {
			return PairEnd{}, PairEnd{}, errors.Wrapf(err, "bringing up %s", end.name)
		}
	}

	if req.Move {
		movePairEnds(v.Host, BackendNamespace, req)
	}
	return PairEnd{Name: req.Name1}, PairEnd{Name: req.Name2}, nil
}

// EpairPair creates epair device pairs for the jail backend. The kernel
// picks the epair number; both sides are renamed in place afterwards.
type EpairPair struct {
	Host runner.Runner
}

// NewEpairPair returns an epair factory using a local root-context runner.
func NewEpairPair() *EpairPair {
	return &EpairPair{Host: runner.NewLocal()}
}

func (e *EpairPair) MakePair(req PairRequest) (PairEnd, PairEnd, error) {
	if req.DeleteExisting {
		e.Host.Run("ifconfig " + req.Name1 + " destroy")
		e.Host.Run("ifconfig " + req.Name2 + " destroy")
	}

	sideA := strings.TrimSpace(e.Host.Run("ifconfig epair create"))
	if !strings.HasPrefix(sideA, "epair") || !strings.HasSuffix(sideA, "a") {
		return PairEnd{}, PairEnd{}, errors.Errorf("unexpected epair create output %q", sideA)
	}
	sideB := strings.TrimSuffix(sideA, "a") + "b"

	for _, r := range []struct{ from, to, addr string }{
		{sideA, req.Name1, req.Addr1}, {sideB, req.Name2, req.Addr2},
	} {
		if out := e.Host.Run(fmt.Sprintf("ifconfig %s name %s", r.from, r.to)); strings.TrimSpace(out) != "" && strings.TrimSpace(out) != r.to {
			return PairEnd{}, PairEnd{}, errors.Errorf("renaming %s to %s: %s", r.from, r.to, out)
		}
		if r.addr != "" {
			e.Host.Run(fmt.Sprintf("ifconfig %s ether %s", r.to, r.addr))
		}
		e.Host.Run("ifconfig " + r.to + " up")
	}

	if req.Move {
		movePairEnds(e.Host, BackendJail, req)
	}
	return PairEnd{Name: req.Name1}, PairEnd{Name: req.Name2}, nil
}

// PairPair creates pair(4) device pairs for the routing-domain backend.
// pair(4) devices cannot be renamed, so the created names are returned as
// real names and the logical names only live in node alias tables.
type PairPair struct {
	Host runner.Runner
	// Index numbers created devices; pair(4) creation names the device up
	// front instead of reporting it.
	Index *Sequence
}

// NewPairPair returns a pair(4) factory using a local root-context runner.
func NewPairPair() *PairPair {
	return &PairPair{Host: runner.NewLocal(), Index: &Sequence{}}
}

func (p *PairPair) MakePair(req PairRequest) (PairEnd, PairEnd, error) {
	real1 := fmt.Sprintf("pair%d", p.Index.Next())
	real2 := fmt.Sprintf("pair%d", p.Index.Next())

	for _, r := range []struct{ dev, addr string }{
		{real1, req.Addr1}, {real2, req.Addr2},
	} {
		if out := p.Host.Run("ifconfig " + r.dev + " create"); strings.TrimSpace(out) != "" {
			return PairEnd{}, PairEnd{}, errors.Errorf("creating %s: %s", r.dev, out)
		}
		if r.addr != "" {
			p.Host.Run(fmt.Sprintf("ifconfig %s lladdr %s", r.dev, r.addr))
		}
	}
	if out := p.Host.Run(fmt.Sprintf("ifconfig %s patch %s", real1, real2)); strings.TrimSpace(out) != "" {
		return PairEnd{}, PairEnd{}, errors.Errorf("patching %s to %s: %s", real1, real2, out)
	}
	p.Host.Run("ifconfig " + real1 + " up")
	p.Host.Run("ifconfig " + real2 + " up")

	if req.Move {
		moveReq := req
		moveReq.Name1, moveReq.Name2 = real1, real2
		movePairEnds(p.Host, BackendPair, moveReq)
	}
	return PairEnd{Name: req.Name1, RealName: real1},
		PairEnd{Name: req.Name2, RealName: real2}, nil
}

// movePairEnds places both ends into their nodes' isolation contexts. An
// endpoint that cannot be placed leaves a half-wired topology nothing can
// recover from, so exhausted retries abort the process.
func movePairEnds(host runner.Runner, b Backend, req PairRequest) {
	for _, end := range []struct {
		dev  string
		node api.Node
	}{
		{req.Name1, req.Node1}, {req.Name2, req.Node2},
	} {
		if end.node == nil {
			continue
		}
		ctx := end.node.ContextID()
		if ctx == "" {
			continue
		}
		cmd := moveCommand(b, end.dev, ctx)
		if err := util.MoveIntf(host.Run, cmd, end.dev, end.node.Name()); err != nil {
			logging.Fatalf("placing %s in %s: %v", end.dev, end.node.Name(), err)
		}
	}
}
