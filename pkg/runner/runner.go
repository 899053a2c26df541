// Package runner executes shell commands in a node's execution context and
// captures what they print. The link layer treats this as an opaque
// text-in/text-out boundary: it hands over an argument string and gets back
// output, and nothing more.
package runner

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner runs commands in some execution context.
type Runner interface {
	// Run executes cmd and returns merged stdout/stderr.
	Run(cmd string) string
	// Pexec executes cmd and returns stdout, stderr and exit code.
	Pexec(cmd string) (stdout, stderr string, exitCode int)
}

// Local runs commands in the calling process's own context. With Echo set,
// output is additionally streamed to the terminal as it arrives.
type Local struct {
	Echo bool
}

// NewLocal returns a quiet root-context runner.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Pexec(cmd string) (string, string, int) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "", "", 0
	}
	c := exec.Command(parts[0], parts[1:]...)
	var out, errOut bytes.Buffer
	if l.Echo {
		c.Stdout = io.MultiWriter(&out, os.Stdout)
		c.Stderr = io.MultiWriter(&errOut, os.Stderr)
	} else {
		c.Stdout = &out
		c.Stderr = &errOut
	}
	err := c.Run()
	code := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		} else {
			// command did not start at all
			code = 127
			errOut.WriteString(err.Error())
		}
	}
	return out.String(), errOut.String(), code
}

func (l *Local) Run(cmd string) string {
	out, errOut, _ := l.Pexec(cmd)
	return out + errOut
}

// Prefixed wraps another runner, prepending an execution prefix such as
// "jexec 12" or "route -T 1 exec" to every command.
type Prefixed struct {
	Prefix string
	Next   Runner
}

// NewPrefixed returns a runner that executes commands under prefix via a
// local runner.
func NewPrefixed(prefix string) *Prefixed {
	return &Prefixed{Prefix: prefix, Next: NewLocal()}
}

func (p *Prefixed) Run(cmd string) string {
	return p.Next.Run(p.Prefix + " " + cmd)
}

func (p *Prefixed) Pexec(cmd string) (string, string, int) {
	return p.Next.Pexec(p.Prefix + " " + cmd)
}
