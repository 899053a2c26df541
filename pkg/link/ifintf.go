package link

import (
	"fmt"
	"strings"
	"sync/atomic"

	"Vnet/api"
	"Vnet/pkg/logging"
)

// Sequence hands out monotonically increasing 1-based numbers. Pipe
// numbers are global across the firewall, so the counter is shared by
// every shaped interface behind the same kernel.
type Sequence struct {
	n atomic.Int64
}

// Next returns the next number in the sequence.
func (s *Sequence) Next() int {
	return int(s.n.Add(1))
}

// pipeSeq numbers firewall pipes for interfaces that were not handed a
// counter of their own. Numbers are never reused; reconfiguration leaks
// the old pair, which is harmless at emulation scale.
var pipeSeq Sequence

// IFIntf shapes its traffic with firewall pipes: one pipe per direction,
// configured with a single combined parameter string, plus probabilistic
// drop rules when loss is requested.
type IFIntf struct {
	*BaseIntf
	pipes *Sequence
}

// NewIFIntf builds a pipe-shaped interface endpoint.
func NewIFIntf(name string, opts IntfOpts) (*IFIntf, error) {
	return newIFIntf(name, opts, &pipeSeq)
}

func newIFIntf(name string, opts IntfOpts, seq *Sequence) (*IFIntf, error) {
	i := &IFIntf{
		BaseIntf: &BaseIntf{
			name:     name,
			realName: opts.RealName,
			node:     opts.Node,
			backend:  opts.Backend,
			port:     opts.Port,
			mac:      opts.MAC,
		},
		pipes: seq,
	}
	if err := i.init(opts); err != nil {
		return nil, err
	}
	if _, err := i.Configure(opts.Config); err != nil {
		return nil, err
	}
	return i, nil
}

// pipeConfig renders the combined pipe parameter string shared by both
// directions. Invalid parameters are reported and their fragment skipped.
func (i *IFIntf) pipeConfig(p *api.TrafficParams) string {
	var frags []string

	bw := p.Bandwidth
	if bw != 0 && (bw <= 0 || bw > bwParamMax) {
		logging.Errorf("bandwidth limit %f is outside supported range 0..%d - ignoring", bw, bwParamMax)
		bw = 0
	}
	if bw > 0 && p.Speedup > 0 && strings.HasPrefix(i.node.Name(), switchPrefix) {
		bw = p.Speedup
	}
	if bw > 0 {
		frags = append(frags, fmt.Sprintf("bw %vMbit/s", bw))
	}

	if p.EnableRED || p.EnableGRED {
		wq, minTh := p.RedParams()
		if wq < 0 || wq > 1 || minTh < 0 {
			logging.Errorf("bad early-drop parameters weight %v min threshold %d - ignoring", wq, minTh)
		} else {
			algo := "red"
			if p.EnableGRED {
				algo = "gred"
			}
			frag := fmt.Sprintf("%s %v/%d/%d/1.0", algo, wq, minTh, 3*minTh)
			if p.EnableECN {
				frag += " ecn"
			}
			frags = append(frags, frag)
		}
	} else if p.EnableECN {
		logging.Errorf("cannot enable ECN without RED/GRED early drop - ignoring")
	}

	switch {
	case strings.HasPrefix(p.Delay, "-"):
		logging.Errorf("negative delay %s - ignoring", p.Delay)
	case p.Delay != "":
		frags = append(frags, "delay "+p.Delay)
	}
	if p.Jitter != "" {
		logging.Warnf("jitter %s is not supported by the pipe backend - ignoring", p.Jitter)
	}

	if p.MaxQueueSize != nil {
		if p.QueueAsSlots == nil || *p.QueueAsSlots {
			frags = append(frags, fmt.Sprintf("queue %d", *p.MaxQueueSize))
		} else {
			frags = append(frags, fmt.Sprintf("queue %dKbytes", *p.MaxQueueSize))
		}
	}
	return strings.Join(frags, " ")
}

// lossCmds emits probabilistic drop rules for both directions. Loss above
// 1.0 is read as a percentage; out-of-range values are reported and
// skipped.
func (i *IFIntf) lossCmds(p *api.TrafficParams) []string {
	if p.Loss == nil {
		return nil
	}
	loss := *p.Loss
	if loss < 0 || loss > 100 {
		logging.Errorf("loss %v is outside range 0..100 - ignoring", loss)
		return nil
	}
	if loss == 0 {
		return nil
	}
	prob := loss
	if prob > 1.0 {
		prob = prob / 100
	}
	dev := i.devName()
	return []string{
		fmt.Sprintf("ipfw add prob %v deny all from any to any out via %s", prob, dev),
		fmt.Sprintf("ipfw add prob %v deny all from any to any in via %s", prob, dev),
	}
}

// Configure applies address configuration, then attaches a fresh pipe pair
// to the interface and configures both with the rendered parameter string.
func (i *IFIntf) Configure(cfg api.IntfConfig) (*api.ConfigResult, error) {
	res, err := i.BaseIntf.Configure(cfg)
	if err != nil {
		return res, err
	}
	p := cfg.Traffic
	if p == nil || p.Empty() {
		return res, nil
	}

	pipeCfg := i.pipeConfig(p)

	// Drop rules go in first: the firewall evaluates rules in insertion
	// order and a packet consumed by a pipe filter never reaches a later
	// rule, so loss placed behind the pipes would not apply.
	cmds := i.lossCmds(p)
	if pipeCfg != "" {
		dev := i.devName()
		inPipe, outPipe := i.pipes.Next(), i.pipes.Next()
		cmds = append(cmds,
			fmt.Sprintf("ipfw add pipe %d all from any to any in via %s", inPipe, dev),
			fmt.Sprintf("ipfw add pipe %d all from any to any out via %s", outPipe, dev),
			fmt.Sprintf("ipfw pipe %d config %s", inPipe, pipeCfg),
			fmt.Sprintf("ipfw pipe %d config %s", outPipe, pipeCfg),
		)
	}

	for _, c := range cmds {
		out := i.cmd(c)
		if out != "" {
			logging.Errorf("*** Error: %s", strings.TrimSpace(out))
		}
		res.ShapeOutputs = append(res.ShapeOutputs, out)
	}
	return res, nil
}
