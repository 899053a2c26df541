package runner

import (
	ns "github.com/containernetworking/plugins/pkg/ns"
)

// Namespace runs commands inside a network namespace identified by its
// bind path (e.g. /proc/<pid>/ns/net).
type Namespace struct {
	Path string
	Echo bool
}

// NewNamespace returns a runner scoped to the namespace at path.
func NewNamespace(path string) *Namespace {
	return &Namespace{Path: path}
}

func (n *Namespace) Pexec(cmd string) (string, string, int) {
	netns, err := ns.GetNS(n.Path)
	if err != nil {
		return "", err.Error(), 1
	}
	defer netns.Close()

	var out, errOut string
	var code int
	if err := netns.Do(func(_ ns.NetNS) error {
		out, errOut, code = (&Local{Echo: n.Echo}).Pexec(cmd)
		return nil
	}); err != nil {
		return out, errOut + err.Error(), 1
	}
	return out, errOut, code
}

func (n *Namespace) Run(cmd string) string {
	out, errOut, _ := n.Pexec(cmd)
	return out + errOut
}
