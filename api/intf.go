package api

// IntfConfig carries the configuration applied to one link endpoint at
// construction time or on reconfiguration. Zero/nil fields mean "leave
// this aspect alone".
type IntfConfig struct {
	Mac string `yaml:"mac"`
	// IP is either "addr/prefixLen" or a bare address; a bare address
	// requires PrefixLen to be set.
	IP        string `yaml:"ip"`
	PrefixLen int    `yaml:"prefixLen"`
	// Up defaults to true: bring the interface administratively up and
	// verify the command produced no failure output.
	Up *bool `yaml:"up"`
	// Ifconfig passes arbitrary raw arguments through to the underlying
	// device-configuration command.
	Ifconfig string `yaml:"ifconfig"`

	Traffic *TrafficParams `yaml:"traffic"`
}

// BringUp reports whether the endpoint should be brought up (default true).
func (c *IntfConfig) BringUp() bool {
	return c.Up == nil || *c.Up
}

// TrafficParams is the declarative shaping surface shared by both shaping
// engines. All fields are optional; fields whose zero value is meaningful
// are pointers.
type TrafficParams struct {
	Bandwidth    float64  `yaml:"bw"`     // Mb/s, valid range (0, 1000]
	Delay        string   `yaml:"delay"`  // e.g. "10ms"
	Jitter       string   `yaml:"jitter"` // e.g. "1ms"
	Loss         *float64 `yaml:"loss"`   // percent, 0..100
	MaxQueueSize *int     `yaml:"maxQueueSize"`

	EnableECN  bool `yaml:"enableEcn"`
	EnableRED  bool `yaml:"enableRed"`
	EnableGRED bool `yaml:"enableGred"`

	UseHFSC   bool    `yaml:"useHfsc"`
	UseTBF    bool    `yaml:"useTbf"`
	LatencyMS float64 `yaml:"latencyMs"`

	// DisableGRO defaults to true; generic receive offload skews
	// packet-timing accuracy on shaped links.
	DisableGRO *bool `yaml:"disableGro"`
	// Speedup overrides the bandwidth limit on forwarding-element ports.
	Speedup float64 `yaml:"speedup"`

	// RED/GRED tuning. Max threshold is fixed at 3x the minimum and the
	// marking probability at 1.0.
	RedWeight    *float64 `yaml:"redWeight"`    // w_q, 0..1, default 0.005
	RedMinThresh *int     `yaml:"redMinThresh"` // slots, default 30

	// QueueAsSlots selects slot-based queue sizing on the pipe backend
	// (default true; false means Kbytes).
	QueueAsSlots *bool `yaml:"queueAsSlots"`
}

// Empty reports whether no shaping aspect was requested at all.
func (p *TrafficParams) Empty() bool {
	return p.Bandwidth == 0 && p.Delay == "" && p.Loss == nil &&
		p.MaxQueueSize == nil && !p.EnableECN && !p.EnableRED && !p.EnableGRED
}

// RedParams returns the early-drop weight and minimum threshold with
// defaults filled in.
func (p *TrafficParams) RedParams() (wq float64, minTh int) {
	wq, minTh = 0.005, 30
	if p.RedWeight != nil {
		wq = *p.RedWeight
	}
	if p.RedMinThresh != nil {
		minTh = *p.RedMinThresh
	}
	return wq, minTh
}

// ConfigResult reports what a Configure call did, for diagnostics.
type ConfigResult struct {
	// Ops maps option name (mac, ip, up, ifconfig) to command output.
	Ops map[string]string
	// ShapeOutputs holds the output of every shaping command issued, in
	// order.
	ShapeOutputs []string
	// Parent is the final parent handle of the shaping chain (qdisc-style
	// backend only).
	Parent string
}
