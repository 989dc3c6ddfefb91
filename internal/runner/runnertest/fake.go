// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

// Fake answers commands from a script keyed by the full command line
// ("name arg1 arg2"). Unscripted commands succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	responses map[string]response
	missing   map[string]bool
	calls     []string
}

type response struct {
	res runner.Result
	err error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		responses: make(map[string]response),
		missing:   make(map[string]bool),
	}
}

// On scripts stdout for cmdLine.
func (f *Fake) On(cmdLine, stdout string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdLine] = response{res: runner.Result{Stdout: stdout}}
	return f
}

// OnError scripts a non-zero exit for cmdLine.
func (f *Fake) OnError(cmdLine string, code int, output string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdLine] = response{
		res: runner.Result{Stdout: output, ExitCode: code},
		err: &runner.ExitError{Cmd: cmdLine, Code: code, Output: output},
	}
	return f
}

// Missing makes LookPath fail for name.
func (f *Fake) Missing(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[name] = true
	return f
}

// Run implements runner.Runner.
func (f *Fake) Run(_ context.Context, name string, args ...string) (runner.Result, error) {
	cmdLine := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmdLine)
	if f.missing[name] {
		return runner.Result{ExitCode: 127}, errors.New(name + ": command not found")
	}
	r, ok := f.responses[cmdLine]
	if !ok {
		return runner.Result{}, nil
	}
	return r.res, r.err
}

// LookPath implements runner.Runner.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[name] {
		return "", errors.New(name + ": not found")
	}
	return "/usr/bin/" + name, nil
}

// Calls returns every command line run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Called reports whether cmdLine was run.
func (f *Fake) Called(cmdLine string) bool {
	for _, c := range f.Calls() {
		if c == cmdLine {
			return true
		}
	}
	return false
}

// CalledPrefix reports whether any call starts with prefix.
func (f *Fake) CalledPrefix(prefix string) bool {
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
