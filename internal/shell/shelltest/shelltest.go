// Package shelltest provides in-memory fakes for the shell package.
package shelltest

import (
	"context"
	"strings"
	"sync"

	"github.com/atomikpanda/blazesetup/internal/shell"
)

// Runner records every command it is asked to run. Commands succeed unless a
// registered failure matches or Handler says otherwise.
type Runner struct {
	// Handler, when set, decides the outcome of every command.
	Handler func(c shell.Command) (shell.Result, error)

	mu       sync.Mutex
	calls    []shell.Command
	failures []failure
}

type failure struct {
	prefix string
	result shell.Result
}

// Fail makes every command whose command line starts with prefix exit with
// code and stderr.
func (r *Runner) Fail(prefix string, code int, stderr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure{prefix: prefix, result: shell.Result{ExitCode: code, Stderr: stderr}})
}

// Run implements shell.Runner.
func (r *Runner) Run(_ context.Context, c shell.Command) (shell.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	handler := r.Handler
	failures := append([]failure(nil), r.failures...)
	r.mu.Unlock()

	line := c.String()
	for _, f := range failures {
		if strings.HasPrefix(line, f.prefix) {
			return f.result, nil
		}
	}
	if handler != nil {
		return handler(c)
	}
	return shell.Result{}, nil
}

// Calls returns the commands run so far.
func (r *Runner) Calls() []shell.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shell.Command(nil), r.calls...)
}

// Lines returns the command line of every call so far.
func (r *Runner) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}

// Reset forgets recorded calls but keeps registered failures.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Prober is a fixed set of commands that "exist".
type Prober struct {
	mu      sync.Mutex
	present map[string]bool
	probed  []string
}

// NewProber returns a Prober where names are present.
func NewProber(names ...string) *Prober {
	p := &Prober{present: make(map[string]bool)}
	p.Add(names...)
	return p
}

// Add marks names as present.
func (p *Prober) Add(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range names {
		p.present[n] = true
	}
}

// Exists implements shell.Prober.
func (p *Prober) Exists(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, name)
	return p.present[name]
}

// Probed returns every name looked up so far, in order.
func (p *Prober) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}
