// Package runnertest provides a scripted Runner for tests.
package runnertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pyproj/internal/runner"
)

// Fake records every command and answers from a script of results keyed
// by command line prefix. Unscripted commands succeed.
type Fake struct {
	mu      sync.Mutex
	Calls   []runner.Command
	Missing map[string]bool
	results map[string]runner.Result
	hooks   map[string]func(runner.Command)
}

// New returns an empty Fake where every tool is on PATH.
func New() *Fake {
	return &Fake{
		results: make(map[string]runner.Result),
		hooks:   make(map[string]func(runner.Command)),
		Missing: make(map[string]bool),
	}
}

// On scripts the result for commands whose line starts with prefix.
func (f *Fake) On(prefix string, res runner.Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[prefix] = res
	return f
}

// Fail scripts a non-zero exit for commands starting with prefix.
func (f *Fake) Fail(prefix string, code int) *Fake {
	return f.On(prefix, runner.Result{ExitCode: code, Err: fmt.Errorf("exit status %d", code)})
}

// Do registers a side effect run before answering commands starting with
// prefix. When prefixes overlap, the longest one wins, as with On.
func (f *Fake) Do(prefix string, fn func(runner.Command)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[prefix] = fn
	return f
}

// Run implements runner.Runner.
func (f *Fake) Run(_ context.Context, cmd runner.Command) runner.Result {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	line := cmd.String()
	hook := f.hook(line)
	res, ok := f.match(line)
	f.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}
	if !ok {
		return runner.Result{}
	}
	return res
}

// match returns the result of the longest matching prefix.
func (f *Fake) match(line string) (runner.Result, bool) {
	best := -1
	var res runner.Result
	for prefix, r := range f.results {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			res = r
		}
	}
	return res, best >= 0
}

// hook returns the side effect of the longest matching prefix, or nil.
func (f *Fake) hook(line string) func(runner.Command) {
	best := -1
	var fn func(runner.Command)
	for prefix, h := range f.hooks {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			fn = h
		}
	}
	return fn
}

// LookPath implements runner.Runner.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// Lines returns the recorded command lines in call order.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.String()
	}
	return lines
}

// Called reports whether any recorded command line starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
