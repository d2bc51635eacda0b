// Package testutil provides a wired shell for plugin tests.
package testutil

import (
	"context"
	"maps"
	"sync"
	"testing"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/repl"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/tree"
)

// FakeEnv is an in-memory tab.Environment.
type FakeEnv struct {
	mu  sync.Mutex
	Env map[string]string
	Cwd string
}

// NewFakeEnv creates a FakeEnv rooted at cwd.
func NewFakeEnv(cwd string) *FakeEnv {
	return &FakeEnv{Env: map[string]string{"HOME": cwd}, Cwd: cwd}
}

func (f *FakeEnv) Environ() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.Env)
}

func (f *FakeEnv) Getwd() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Cwd, nil
}

func (f *FakeEnv) Replace(env map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Env = maps.Clone(env)
	return nil
}

func (f *FakeEnv) Chdir(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cwd = dir
	return nil
}

// Shell is an executor over a fresh command tree.
type Shell struct {
	Tree *tree.Tree
	Bus  *event.Bus
	Tabs *tab.Manager
	Env  *FakeEnv
	Exec *repl.Executor

	mu     sync.Mutex
	events []event.Event
}

// Options configures NewShell.
type Options struct {
	LocalAccess bool
	Headless    bool
	MaxJobs     int
	// Cwd is the starting directory, t.TempDir() when empty
	Cwd string
}

// NewShell loads plugins into a new tree and wires an executor over it.
// Every event published on the bus is recorded. build receives the bus and
// tab manager so plugins that need them can be constructed.
func NewShell(t *testing.T, opts Options, build func(bus *event.Bus, tabs *tab.Manager) []plugins.Plugin) *Shell {
	t.Helper()
	if opts.Cwd == "" {
		opts.Cwd = t.TempDir()
	}

	s := &Shell{Tree: tree.New(), Bus: event.NewBus(), Env: NewFakeEnv(opts.Cwd)}
	s.Tabs = tab.NewManager(tab.Options{Environment: s.Env, MaxJobs: opts.MaxJobs})
	s.Bus.SubscribeAll(func(e event.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, e)
	})

	if err := plugins.Load(s.Tree, build(s.Bus, s.Tabs)...); err != nil {
		t.Fatalf("plugins.Load() error = %v", err)
	}
	s.Tree.Seal()

	s.Exec = repl.New(repl.Options{
		Tree:        s.Tree,
		Bus:         s.Bus,
		Tabs:        s.Tabs,
		LocalAccess: opts.LocalAccess,
		Headless:    opts.Headless,
	})
	return s
}

// Run executes line at top level and fails the test if Exec returns an
// error, which top-level execution never should.
func (s *Shell) Run(t *testing.T, line string) any {
	t.Helper()
	resp, err := s.Exec.Exec(context.Background(), line, nil)
	if err != nil {
		t.Fatalf("Exec(%q) returned error %v", line, err)
	}
	return resp
}

// Nested executes line as a nested command.
func (s *Shell) Nested(line string) (any, error) {
	return s.Exec.Qexec(context.Background(), line, &command.ExecOptions{})
}

// Events returns the events recorded so far.
func (s *Shell) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.events...)
}

// Completions returns the recorded completion events.
func (s *Shell) Completions() []event.CommandCompleteEvent {
	var out []event.CommandCompleteEvent
	for _, e := range s.Events() {
		if c, ok := e.(event.CommandCompleteEvent); ok {
			out = append(out, c)
		}
	}
	return out
}
