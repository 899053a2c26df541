package link

import (
	"fmt"
	"strings"

	"Vnet/api"
	"Vnet/pkg/logging"
)

// bwParamMax is the highest bandwidth limit (Mb/s) the shaping engines
// accept. Beyond it the rate-limiter maths stop being trustworthy.
const bwParamMax = 1000

// switchPrefix marks forwarding-element ports by node-name convention;
// Speedup only applies to those.
const switchPrefix = "s"

// TCIntf shapes its traffic with a chain of queueing disciplines: a
// rate limiter at the root, an optional early-drop stage below it, and a
// delay/loss emulator at the leaf.
type TCIntf struct {
	*BaseIntf
}

// NewTCIntf builds a qdisc-shaped interface endpoint.
func NewTCIntf(name string, opts IntfOpts) (*TCIntf, error) {
	i := &TCIntf{BaseIntf: &BaseIntf{
		name:     name,
		realName: opts.RealName,
		node:     opts.Node,
		backend:  opts.Backend,
		port:     opts.Port,
		mac:      opts.MAC,
	}}
	if err := i.init(opts); err != nil {
		return nil, err
	}
	if _, err := i.Configure(opts.Config); err != nil {
		return nil, err
	}
	return i, nil
}

// bwCmds builds the rate-limiter stage. On invalid bandwidth it reports an
// error and emits no commands; shaping continues without a limiter.
func (i *TCIntf) bwCmds(p *api.TrafficParams) (cmds []string, parent string) {
	parent = " root "
	if p.Bandwidth == 0 && !p.EnableECN && !p.EnableRED && !p.EnableGRED {
		return nil, parent
	}
	bw := p.Bandwidth
	if bw != 0 && (bw <= 0 || bw > bwParamMax) {
		logging.Errorf("bandwidth limit %f is outside supported range 0..%d - ignoring", bw, bwParamMax)
		bw = 0
	}
	if bw > 0 && p.Speedup > 0 && strings.HasPrefix(i.node.Name(), switchPrefix) {
		// Forwarding-element ports may run faster than the link rate to
		// keep the switch from becoming the bottleneck.
		bw = p.Speedup
	}
	if bw > 0 {
		switch {
		case p.UseHFSC:
			cmds = append(cmds,
				"tc qdisc add dev %s root handle 5:0 hfsc default 1",
				fmt.Sprintf("tc class add dev %%s parent 5:0 classid 5:1 hfsc sc rate %fMbit ul rate %fMbit", bw, bw))
		case p.UseTBF:
			latency := p.LatencyMS
			if latency == 0 {
				latency = 15.0 * 8 / bw
			}
			cmds = append(cmds,
				fmt.Sprintf("tc qdisc add dev %%s root handle 5: tbf rate %fMbit burst 15000 latency %fms", bw, latency))
		default:
			cmds = append(cmds,
				"tc qdisc add dev %s root handle 5:0 htb default 1",
				fmt.Sprintf("tc class add dev %%s parent 5:0 classid 5:1 htb rate %fMbit burst 15k", bw))
		}
		parent = " parent 5:1 "

		if p.EnableECN || p.EnableRED || p.EnableGRED {
			wq, minTh := p.RedParams()
			if wq < 0 || wq > 1 || minTh < 0 {
				logging.Errorf("bad early-drop parameters weight %v min threshold %d - ignoring", wq, minTh)
				return cmds, parent
			}
			minBytes := minTh * 1500
			maxBytes := 3 * minBytes
			algo := "red"
			if p.EnableGRED {
				algo = "gred"
			}
			red := fmt.Sprintf(
				"tc qdisc add dev %%s%shandle 6: %s limit 1000000 min %d max %d avpkt 1000 burst %d bandwidth %fMbit probability 1",
				parent, algo, minBytes, maxBytes, minTh, bw)
			if p.EnableECN {
				red += " ecn"
			}
			cmds = append(cmds, red)
			parent = " parent 6: "
		}
	} else if p.EnableECN || p.EnableRED || p.EnableGRED {
		logging.Errorf("cannot enable ECN/RED without a bandwidth limit - ignoring")
	}
	return cmds, parent
}

// delayCmds builds the delay/loss/queue emulator stage. Nonsensical values
// are reported and the stage is skipped; earlier stages stay installed.
func (i *TCIntf) delayCmds(p *api.TrafficParams, parent string) (cmds []string, newParent string) {
	if strings.HasPrefix(p.Delay, "-") {
		logging.Errorf("negative delay %s - ignoring", p.Delay)
		return nil, parent
	}
	if strings.HasPrefix(p.Jitter, "-") {
		logging.Errorf("negative jitter %s - ignoring", p.Jitter)
		return nil, parent
	}
	if p.Loss != nil && (*p.Loss < 0 || *p.Loss > 100) {
		logging.Errorf("loss %v is outside range 0..100 - ignoring", *p.Loss)
		return nil, parent
	}
	if p.Delay == "" && p.Loss == nil && p.MaxQueueSize == nil {
		return nil, parent
	}
	netem := ""
	if p.Delay != "" {
		netem += " delay " + p.Delay
		if p.Jitter != "" {
			netem += " " + p.Jitter
		}
	}
	if p.Loss != nil && *p.Loss > 0 {
		netem += fmt.Sprintf(" loss %.5f", *p.Loss)
	}
	if p.MaxQueueSize != nil {
		netem += fmt.Sprintf(" limit %d", *p.MaxQueueSize)
	}
	cmds = append(cmds, fmt.Sprintf("tc qdisc add dev %%s%shandle 10: netem%s", parent, netem))
	return cmds, " parent 10:1 "
}

// tc runs one shaping command with the device name substituted in, logging
// any output as an error. Shaping keeps going past individual failures so
// the remaining stages still get installed.
func (i *TCIntf) tc(cmdPattern string) string {
	out := i.cmd(fmt.Sprintf(cmdPattern, i.devName()))
	if out != "" {
		logging.Errorf("*** Error: %s", strings.TrimSpace(out))
	}
	return out
}

// Configure applies address configuration, then rebuilds the shaping chain
// from the supplied traffic parameters.
func (i *TCIntf) Configure(cfg api.IntfConfig) (*api.ConfigResult, error) {
	res, err := i.BaseIntf.Configure(cfg)
	if err != nil {
		return res, err
	}
	p := cfg.Traffic
	if p == nil {
		return res, nil
	}

	// Offload coalescing merges packets and skews timing measurements on
	// shaped links, so it goes off unless explicitly retained.
	if p.DisableGRO == nil || *p.DisableGRO {
		i.cmd(fmt.Sprintf("ethtool -K %s gro off", i.devName()))
	}

	if p.Empty() {
		return res, nil
	}

	// Tear down any existing chain so reconfiguration starts clean. The
	// default qdisc needs no removal.
	existing := i.cmd(fmt.Sprintf("tc qdisc show dev %s", i.devName()))
	if !strings.Contains(existing, "priomap") && !strings.Contains(existing, "noqueue") {
		i.cmd(fmt.Sprintf("tc qdisc del dev %s root", i.devName()))
	}

	bwCmds, parent := i.bwCmds(p)
	delayCmds, parent := i.delayCmds(p, parent)
	for _, c := range append(bwCmds, delayCmds...) {
		res.ShapeOutputs = append(res.ShapeOutputs, i.tc(c))
	}
	res.Parent = parent
	return res, nil
}
