package api

// Node is the execution context a link endpoint is bound to. The link and
// interface layer never manages node lifecycle; it only needs to run
// commands in the node's context and keep the node's interface table in
// sync.
type Node interface {
	Name() string

	// Cmd runs a command in the node's context and returns its merged
	// stdout/stderr text. Most network tools print nothing on success, so
	// callers treat empty output as ok.
	Cmd(cmd string) string

	// Pexec runs a command and returns stdout, stderr and the exit code
	// separately.
	Pexec(cmd string) (stdout, stderr string, exitCode int)

	// NewPort returns the next free port index on this node.
	NewPort() int

	AddIntf(name string, port int)
	DelIntf(name string)

	// IntfNames lists the node's current interface names.
	IntfNames() []string

	// ContextID identifies the node's isolation context: a pid for
	// namespace nodes, a jail id, or a routing-domain number. Empty for
	// nodes living in the root context.
	ContextID() string

	// IsSwitch reports whether the node is an internal forwarding element.
	IsSwitch() bool
}

// PortAliaser is implemented by nodes on backends whose devices cannot be
// renamed in place. It maps logical interface names to the real device
// names that configuration commands must target.
type PortAliaser interface {
	SetPortAlias(logical, real string)
	DelPortAlias(logical string)
}

// NodeSpec describes one node in a topology file.
type NodeSpec struct {
	Name   string `yaml:"name"`
	Image  string `yaml:"image"`
	Ipv4   string `yaml:"ipv4"`
	Switch bool   `yaml:"switch"`
}
