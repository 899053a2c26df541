package node

import (
	"Vnet/pkg/ovs"
	"Vnet/pkg/runner"
)

// Switch is a forwarding-element node backed by a vswitch bridge named
// after the node. It runs commands in the root context and accepts patch
// ports from the link layer.
type Switch struct {
	*Node
	om *ovs.Manager
}

// NewSwitch creates the bridge and returns the switch node.
func NewSwitch(name string, om *ovs.Manager) (*Switch, error) {
	if err := om.AddBridge(name); err != nil {
		return nil, err
	}
	n := New(name, runner.NewLocal(), "")
	n.isSwitch = true
	return &Switch{Node: n, om: om}, nil
}

// Bridge returns the backing bridge name.
func (s *Switch) Bridge() string { return s.name }

// AttachPort adds an existing kernel device to the switch's bridge.
func (s *Switch) AttachPort(port string) error {
	return s.om.AddPort(s.name, port)
}

// AddPatchPort wires a patch port on this switch to a peer port on
// another bridge.
func (s *Switch) AddPatchPort(port, peer string) error {
	return s.om.AddPatchPort(s.name, port, peer)
}

// Delete removes the backing bridge and every port on it.
func (s *Switch) Delete() error {
	return s.om.DeleteBridge(s.name)
}
