package cmd

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/config"
	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/display"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/history"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/plugins/core"
	"github.com/quocvuong92/kshell/internal/plugins/math"
	"github.com/quocvuong92/kshell/internal/plugins/shell"
	"github.com/quocvuong92/kshell/internal/plugins/snapshot"
	"github.com/quocvuong92/kshell/internal/policy"
	"github.com/quocvuong92/kshell/internal/repl"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/tree"
)

// ShellOptions configures NewShell.
type ShellOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Interactive sessions may run NeedsUI commands and confirm risky lines
	Interactive bool
	// Environment defaults to the process environment
	Environment tab.Environment
}

// Shell is a fully wired command shell: tree, bus, tabs, executor and
// output.
type Shell struct {
	cfg      *config.Config
	tree     *tree.Tree
	bus      *event.Bus
	tabs     *tab.Manager
	exec     *repl.Executor
	printer  *display.Printer
	activity *display.Activity
	store    *history.BoltStore
	quit     atomic.Bool
	log      *logging.FieldLogger
}

// NewShell builds the command tree from the built-in plugins and wires an
// executor over it.
func NewShell(cfg *config.Config, opts ShellOptions) (*Shell, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	s := &Shell{cfg: cfg, tree: tree.New(), bus: event.NewBus(), log: logging.Named("cmd")}

	printer, err := display.NewPrinter(display.Options{Out: opts.Out, Err: opts.Err, Markdown: cfg.Render})
	if err != nil {
		return nil, err
	}
	s.printer = printer
	printer.Attach(s.bus)

	if cfg.PersistHistory && cfg.HistoryFile != "" {
		store, err := history.OpenBoltStore(cfg.HistoryFile)
		if err != nil {
			// Another instance may hold the lock; run without persistence
			s.log.Warn("history not persisted", logging.Fields{"path": cfg.HistoryFile, "error": err.Error()})
		} else {
			s.store = store
		}
	}

	tabOpts := tab.Options{
		MaxJobs:     cfg.MaxJobsPerTab,
		HistorySize: cfg.HistoryMaxEntries,
		Environment: opts.Environment,
	}
	if s.store != nil {
		tabOpts.HistoryStore = s.store
	}
	s.tabs = tab.NewManager(tabOpts)

	// Headless runs cannot ask, so lines needing confirmation are refused
	confirm := func(string, policy.RiskLevel, string) policy.Approval { return policy.Denied }
	if opts.Interactive {
		confirm = display.Confirmer(opts.In, opts.Err)
	}

	err = plugins.Load(s.tree,
		core.New(core.Options{Tabs: s.tabs, Bus: s.bus, Store: s.store, Quit: s.Quit}),
		math.New(),
		shell.New(shell.Options{
			Policy:      policy.New(cfg.Policy()),
			Confirm:     confirm,
			PassThrough: cfg.PassThrough,
		}),
		snapshot.New(snapshot.Options{Bus: s.bus, Max: cfg.HistoryMaxEntries}),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.tree.Seal()

	if opts.Interactive && cfg.Spinner && display.IsTerminal(opts.Err) {
		s.activity = display.NewActivity(opts.Err, constants.SpinnerDelay)
		s.activity.Attach(s.bus)
	}

	s.exec = repl.New(repl.Options{
		Tree:        s.tree,
		Bus:         s.bus,
		Tabs:        s.tabs,
		LocalAccess: cfg.LocalAccess,
		Headless:    !opts.Interactive,
	})
	return s, nil
}

// Run executes one top-level line and prints its response. The returned
// error is the command's failure, if any, for exit status purposes.
func (s *Shell) Run(ctx context.Context, line string) error {
	resp, err := s.exec.Exec(ctx, line, &command.ExecOptions{Type: command.TopLevel})
	if err != nil {
		// Top-level execution reports failures as values
		s.printer.Error(err)
		return err
	}
	s.printer.Response(resp)
	if rerr, ok := resp.(error); ok {
		return rerr
	}
	return nil
}

// Quit asks the interactive loop to stop after the current line.
func (s *Shell) Quit() { s.quit.Store(true) }

// Quitting reports whether Quit was called.
func (s *Shell) Quitting() bool { return s.quit.Load() }

// Tree returns the command tree.
func (s *Shell) Tree() *tree.Tree { return s.tree }

// Tabs returns the tab manager.
func (s *Shell) Tabs() *tab.Manager { return s.tabs }

// Close aborts background jobs and closes the history store.
func (s *Shell) Close() error {
	if s.activity != nil {
		s.activity.Detach(s.bus)
	}
	if s.tabs != nil {
		for _, t := range s.tabs.List() {
			t.AbortAllJobs()
		}
	}
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}
