// Package ovs wraps the vswitch database operations the link layer needs:
// bridges, ports and patch ports.
package ovs

import (
	"github.com/digitalocean/go-openvswitch/ovs"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// Manager talks to the local vswitch daemon.
type Manager struct {
	c *ovs.Client
}

// NewManager returns a manager bound to the default vswitch socket.
func NewManager() *Manager {
	return &Manager{c: ovs.New()}
}

// AddBridge creates a bridge, succeeding if it already exists.
func (om *Manager) AddBridge(bridge string) error {
	if err := om.c.VSwitch.AddBridge(bridge); err != nil {
		return errors.Wrapf(err, "adding bridge %s", bridge)
	}
	return nil
}

// DeleteBridge removes a bridge and all its ports.
func (om *Manager) DeleteBridge(bridge string) error {
	if err := om.c.VSwitch.DeleteBridge(bridge); err != nil {
		return errors.Wrapf(err, "deleting bridge %s", bridge)
	}
	return nil
}

// AddPort attaches an existing kernel device to a bridge, bringing it up
// first.
func (om *Manager) AddPort(bridge, port string) error {
	l, err := netlink.LinkByName(port)
	if err != nil {
		return errors.Wrapf(err, "looking up port device %s", port)
	}
	if err := netlink.LinkSetUp(l); err != nil {
		return errors.Wrapf(err, "bringing up %s", port)
	}
	if err := om.c.VSwitch.AddPort(bridge, port); err != nil {
		return errors.Wrapf(err, "adding %s to bridge %s", port, bridge)
	}
	return nil
}

// AddPatchPort creates a patch port on bridge wired to peer on another
// bridge. No kernel device is involved.
func (om *Manager) AddPatchPort(bridge, port, peer string) error {
	if err := om.c.VSwitch.AddPort(bridge, port); err != nil {
		return errors.Wrapf(err, "adding patch port %s to bridge %s", port, bridge)
	}
	if err := om.c.VSwitch.Set.Interface(port, ovs.InterfaceOptions{
		Type: ovs.InterfaceTypePatch,
		Peer: peer,
	}); err != nil {
		return errors.Wrapf(err, "setting patch peer %s on %s", peer, port)
	}
	return nil
}

// DeletePort detaches a port from its bridge.
func (om *Manager) DeletePort(bridge, port string) error {
	if err := om.c.VSwitch.DeletePort(bridge, port); err != nil {
		return errors.Wrapf(err, "deleting %s from bridge %s", port, bridge)
	}
	return nil
}
