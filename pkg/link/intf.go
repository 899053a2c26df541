// Package link implements the virtual link and interface abstraction:
// creating, naming, configuring, shaping and tearing down the device pairs
// that bind two emulated nodes together, across the namespace, jail and
// pair(4) backends.
package link

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"Vnet/api"
	"Vnet/pkg/logging"
	"Vnet/pkg/runner"
	"Vnet/pkg/util"
)

// Backend selects the OS mechanism behind an interface: how devices are
// renamed, destroyed, listed and moved between isolation contexts.
type Backend int

const (
	// BackendNamespace: veth devices in network namespaces. Devices rename
	// in place, so logical and real names never diverge.
	BackendNamespace Backend = iota
	// BackendJail: epair devices in vnet jails. Renames in place; destroy
	// needs a -vnet qualifier when the device lives inside a jail.
	BackendJail
	// BackendPair: pair(4) devices in routing domains. Devices cannot be
	// renamed; the logical name is tracked as a device description while
	// every command targets the real device.
	BackendPair
)

// moveCommand builds the command that places dev into a node's isolation
// context.
func moveCommand(b Backend, dev, ctx string) string {
	switch b {
	case BackendJail:
		return fmt.Sprintf("ifconfig %s vnet %s", dev, ctx)
	case BackendPair:
		return fmt.Sprintf("ifconfig %s rdomain %s", dev, ctx)
	default:
		return fmt.Sprintf("ip link set %s netns %s", dev, ctx)
	}
}

// Intf is one endpoint of a link, bound to a node. Implementations differ
// in how Configure translates shaping parameters into commands; everything
// else is shared.
type Intf interface {
	fmt.Stringer
	Name() string
	RealName() string
	Node() api.Node
	Link() *Link
	Port() int
	IP() string
	MAC() string

	Configure(cfg api.IntfConfig) (*api.ConfigResult, error)
	SetIP(ipstr string, prefixLen int) (string, error)
	SetMAC(mac string) string
	UpdateIP() string
	UpdateMAC() string
	UpdateAddr() (ip, mac string)
	IsUp(setUp bool) bool
	Rename(newName string) string
	Delete()
	Status() string

	attach(l *Link)
}

// IntfOpts carries everything an interface needs besides its name.
type IntfOpts struct {
	Node api.Node
	Port int
	MAC  string
	// RealName is the underlying device name when it differs from the
	// logical name (pair backend).
	RealName string
	Backend  Backend
	// Placed is set when the pair factory already moved the device into
	// the node's context, so construction must not move it again.
	Placed bool
	// HostRun executes commands in the root context; device moves have to
	// run there. Defaults to a local runner.
	HostRun func(cmd string) string

	Config api.IntfConfig
}

// BaseIntf configures one link endpoint through the node's command runner.
type BaseIntf struct {
	name     string
	realName string
	node     api.Node
	link     *Link
	backend  Backend
	port     int
	mac      string
	ip       string
	prefix   int
}

// NewIntf wraps one end of a device pair, registers it with its node,
// places the device if the pair factory left that to us, and applies the
// initial configuration.
func NewIntf(name string, opts IntfOpts) (*BaseIntf, error) {
	i := &BaseIntf{
		name:     name,
		realName: opts.RealName,
		node:     opts.Node,
		backend:  opts.Backend,
		port:     opts.Port,
		mac:      opts.MAC,
	}
	if err := i.init(opts); err != nil {
		return nil, err
	}
	if _, err := i.Configure(opts.Config); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *BaseIntf) init(opts IntfOpts) error {
	if i.name == "" {
		return errors.New("interface name must not be empty")
	}
	if i.node == nil {
		return errors.Errorf("interface %s has no owning node", i.name)
	}

	// The loopback address is fixed; skip the query we would otherwise
	// need per node.
	if i.name == "lo" || i.name == "lo0" {
		i.ip, i.prefix = "127.0.0.1", 8
	}

	i.node.AddIntf(i.name, i.port)

	if !opts.Placed {
		if ctx := i.node.ContextID(); ctx != "" {
			hostRun := opts.HostRun
			if hostRun == nil {
				hostRun = runner.NewLocal().Run
			}
			cmd := moveCommand(i.backend, i.devName(), ctx)
			if err := util.MoveIntf(hostRun, cmd, i.devName(), i.node.Name()); err != nil {
				logging.Fatalf("placing %s in %s: %v", i.devName(), i.node.Name(), err)
			}
		}
	}

	if i.backend == BackendPair && i.realName != "" {
		if pa, ok := i.node.(api.PortAliaser); ok {
			pa.SetPortAlias(i.name, i.realName)
		}
		i.ifconfig(fmt.Sprintf("description %q", i.name))
	}
	return nil
}

func (i *BaseIntf) String() string { return i.name }
func (i *BaseIntf) Name() string   { return i.name }
func (i *BaseIntf) Node() api.Node { return i.node }
func (i *BaseIntf) Link() *Link    { return i.link }
func (i *BaseIntf) Port() int      { return i.port }
func (i *BaseIntf) IP() string     { return i.ip }
func (i *BaseIntf) MAC() string    { return i.mac }
func (i *BaseIntf) attach(l *Link) { i.link = l }

// RealName returns the name configuration commands target: the underlying
// device name on the pair backend, the logical name everywhere else.
func (i *BaseIntf) RealName() string { return i.devName() }

func (i *BaseIntf) devName() string {
	if i.realName != "" {
		return i.realName
	}
	return i.name
}

// cmd runs a command in the owning node's context.
func (i *BaseIntf) cmd(c string) string {
	return i.node.Cmd(c)
}

// ifconfig configures the underlying device; args may be empty to query.
func (i *BaseIntf) ifconfig(args string) string {
	c := "ifconfig " + i.devName()
	if args != "" {
		c += " " + args
	}
	return i.cmd(c)
}

// Configure applies cfg in a fixed order: hardware address, IP address,
// administrative state, raw arguments. Unset options are skipped. Shaping
// parameters are ignored here; shaped variants handle them.
func (i *BaseIntf) Configure(cfg api.IntfConfig) (*api.ConfigResult, error) {
	res := &api.ConfigResult{Ops: make(map[string]string)}
	if cfg.Mac != "" {
		res.Ops["mac"] = i.SetMAC(cfg.Mac)
	}
	if cfg.IP != "" {
		out, err := i.SetIP(cfg.IP, cfg.PrefixLen)
		if err != nil {
			return res, err
		}
		res.Ops["ip"] = out
	}
	if cfg.BringUp() {
		res.Ops["up"] = strconv.FormatBool(i.IsUp(true))
	}
	if cfg.Ifconfig != "" {
		res.Ops["ifconfig"] = i.ifconfig(cfg.Ifconfig)
	}
	return res, nil
}

// SetIP applies an IP address. ipstr may carry its own prefix length in
// "addr/prefixLen" form; otherwise prefixLen must be supplied.
func (i *BaseIntf) SetIP(ipstr string, prefixLen int) (string, error) {
	if strings.Contains(ipstr, "/") {
		parts := strings.SplitN(ipstr, "/", 2)
		pl, err := strconv.Atoi(parts[1])
		if err != nil {
			return "", errors.Wrapf(err, "bad prefix length in %s", ipstr)
		}
		i.ip, i.prefix = parts[0], pl
		return i.ifconfig(ipstr + " up"), nil
	}
	if prefixLen == 0 {
		return "", errors.Errorf("no prefix length set for IP address %s", ipstr)
	}
	i.ip, i.prefix = ipstr, prefixLen
	return i.ifconfig(fmt.Sprintf("%s/%d up", ipstr, prefixLen)), nil
}

// SetMAC sets the hardware address, cycling the interface down and back up
// on backends that require it.
func (i *BaseIntf) SetMAC(mac string) string {
	i.mac = mac
	switch i.backend {
	case BackendPair:
		return i.ifconfig("lladdr " + mac)
	case BackendJail:
		return i.ifconfig("down") + i.ifconfig("ether "+mac+" up")
	default:
		return i.ifconfig("down") + i.ifconfig("hw ether "+mac+" up")
	}
}

// UpdateIP re-reads the live device configuration and returns the first
// IPv4 address found, or "".
func (i *BaseIntf) UpdateIP() string {
	// pexec keeps backgrounded shell output out of the query text.
	out, _, _ := i.node.Pexec("ifconfig " + i.devName())
	i.ip = util.FirstIPv4(out)
	return i.ip
}

// UpdateMAC re-reads the live device configuration and returns the
// hardware address found, or "".
func (i *BaseIntf) UpdateMAC() string {
	i.mac = util.FirstMAC(i.ifconfig(""))
	return i.mac
}

// UpdateAddr extracts IP and MAC from a single device query; one command
// instead of two.
func (i *BaseIntf) UpdateAddr() (string, string) {
	out := i.ifconfig("")
	i.ip = util.FirstIPv4(out)
	i.mac = util.FirstMAC(out)
	return i.ip, i.mac
}

// IsUp reports whether the interface is up. With setUp it first issues the
// bring-up command; no output indicates success.
func (i *BaseIntf) IsUp(setUp bool) bool {
	if setUp {
		if out := i.ifconfig("up"); out != "" {
			logging.Errorf("error setting %s up: %s", i.name, strings.TrimSpace(out))
			return false
		}
		return true
	}
	return strings.Contains(i.ifconfig(""), "UP")
}

// Rename changes the interface's logical name. The pair backend cannot
// rename devices, so it updates the node's alias table and the device
// description instead; other backends rename the device itself.
func (i *BaseIntf) Rename(newName string) string {
	old := i.name
	var out string
	switch i.backend {
	case BackendPair:
		if pa, ok := i.node.(api.PortAliaser); ok {
			pa.DelPortAlias(old)
			pa.SetPortAlias(newName, i.devName())
		}
		i.name = newName
		i.ifconfig(fmt.Sprintf("description %q", newName))
		out = newName
	case BackendJail:
		out = i.ifconfig("name " + newName)
		i.name = newName
	default:
		out = i.cmd(fmt.Sprintf("ip link set %s name %s", old, newName))
		i.name = newName
	}
	i.node.DelIntf(old)
	i.node.AddIntf(i.name, i.port)
	return out
}

// Delete destroys the underlying device and detaches the interface from
// its node and link. Safe to call exactly once; the interface must not be
// reused afterwards.
func (i *BaseIntf) Delete() {
	switch i.backend {
	case BackendJail:
		if ctx := i.node.ContextID(); ctx != "" {
			i.ifconfig("-vnet " + ctx + " destroy")
		} else {
			i.ifconfig("destroy")
		}
	case BackendPair:
		i.ifconfig("destroy")
		if pa, ok := i.node.(api.PortAliaser); ok {
			pa.DelPortAlias(i.name)
		}
	default:
		i.cmd("ip link del " + i.devName())
	}
	i.node.DelIntf(i.name)
	i.node = nil
	i.link = nil
}

// Status reports "OK" when the device shows up in the node's current
// device listing, else "MISSING". Diagnostic only.
func (i *BaseIntf) Status() string {
	var listing string
	switch i.backend {
	case BackendJail:
		listing, _, _ = i.node.Pexec("ifconfig -l")
	case BackendPair:
		listing, _, _ = i.node.Pexec("ifconfig pair")
		if strings.Contains(listing, i.devName()+":") {
			return "OK"
		}
		return "MISSING"
	default:
		listing, _, _ = i.node.Pexec("ip -o link show")
	}
	if strings.Contains(listing, i.devName()) {
		return "OK"
	}
	return "MISSING"
}
