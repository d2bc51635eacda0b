// Package tab models independent shell surfaces that share one process.
//
// Each Tab keeps its own environment, working directory, background jobs and
// history. Switching tabs captures the outgoing tab's state and restores the
// incoming one onto the process, so commands always run against the
// environment of the tab that issued them.
package tab

import (
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/history"
	"github.com/quocvuong92/kshell/internal/logging"
)

// Job is a background watcher attached to a tab.
type Job interface {
	ID() string
	Abort()
}

// Tab is one execution context.
type Tab struct {
	uuid string
	log  *logging.FieldLogger

	mu     sync.Mutex
	env    map[string]string
	cwd    string
	vars   map[string]string
	closed bool

	jobs       []Job
	age        []int
	ageCounter int

	history *history.Log
	envir   Environment
}

// Options configures a new Tab.
type Options struct {
	// MaxJobs is the number of job slots; defaults to constants.DefaultMaxJobsPerTab
	MaxJobs int
	// HistorySize bounds the history log; defaults to constants.DefaultHistorySize
	HistorySize int
	// Environment is the process state captured and restored; defaults to OS
	Environment Environment
	// HistoryStore, when set, receives every line added to the tab's history
	HistoryStore history.Store
}

// New creates a Tab and captures the current environment into it.
func New(opts Options) *Tab {
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = constants.DefaultMaxJobsPerTab
	}
	if opts.Environment == nil {
		opts.Environment = OS{}
	}
	id := uuid.NewString()
	t := &Tab{
		uuid:    id,
		log:     logging.Named("tab").With(logging.Fields{"tab": id}),
		vars:    map[string]string{},
		jobs:    make([]Job, opts.MaxJobs),
		age:     make([]int, opts.MaxJobs),
		history: history.NewLog(opts.HistorySize),
		envir:   opts.Environment,
	}
	if opts.HistoryStore != nil {
		t.history.Persist(opts.HistoryStore)
	}
	t.Capture()
	return t
}

// UUID returns the tab's unique identifier.
func (t *Tab) UUID() string { return t.uuid }

// History returns the tab's command history.
func (t *Tab) History() *history.Log { return t.history }

// Env returns a copy of the captured environment.
func (t *Tab) Env() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.env)
}

// Cwd returns the captured working directory.
func (t *Tab) Cwd() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cwd
}

// SetCwd records a new working directory for the tab. It does not touch
// the process; call Restore for that.
func (t *Tab) SetCwd(dir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cwd = dir
}

// Chdir changes the process working directory and records it as the tab's.
func (t *Tab) Chdir(dir string) error {
	if err := t.envir.Chdir(dir); err != nil {
		return err
	}
	t.SetCwd(dir)
	return nil
}

// Capture snapshots the process environment and working directory.
func (t *Tab) Capture() {
	env := t.envir.Environ()
	cwd, err := t.envir.Getwd()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.env = env
	if err != nil {
		t.log.Warn("failed to capture working directory", logging.Fields{"error": err.Error()})
		return
	}
	t.cwd = cwd
}

// Restore re-applies the captured environment and working directory to the
// process.
func (t *Tab) Restore() error {
	t.mu.Lock()
	env, cwd := maps.Clone(t.env), t.cwd
	t.mu.Unlock()

	if err := t.envir.Replace(env); err != nil {
		return err
	}
	if cwd == "" {
		return nil
	}
	t.log.Debug("changing cwd", logging.Fields{"cwd": cwd})
	return t.envir.Chdir(cwd)
}

// Var returns a symbol-table variable set with export.
func (t *Tab) Var(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vars[name]
	return v, ok
}

// SetVar sets a symbol-table variable.
func (t *Tab) SetVar(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vars[name] = value
}

// UnsetVar removes a symbol-table variable.
func (t *Tab) UnsetVar(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.vars, name)
}

// Vars returns a copy of the symbol table.
func (t *Tab) Vars() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.vars)
}

// Closed reports whether the tab has been closed.
func (t *Tab) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close aborts every job and marks the tab closed.
func (t *Tab) Close() {
	t.AbortAllJobs()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}
