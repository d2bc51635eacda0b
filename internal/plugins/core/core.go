// Package core provides the built-in commands: help, quit, echo, the
// symbol table commands, history, tab management and version.
package core

import (
	"context"
	"strings"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/history"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/split"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/usage"
)

// Options wires the core commands to the running shell.
type Options struct {
	Tabs *tab.Manager
	Bus  *event.Bus
	// Store is the persistent history, if any
	Store *history.BoltStore
	// Quit is called by quit/exit and when the last tab closes
	Quit func()
}

// Plugin registers the core commands.
type Plugin struct {
	opts Options
}

// New creates the core plugin.
func New(opts Options) *Plugin {
	if opts.Quit == nil {
		opts.Quit = func() {}
	}
	return &Plugin{opts: opts}
}

// Name implements plugins.Plugin.
func (*Plugin) Name() string { return "core" }

// Register implements plugins.Plugin.
func (p *Plugin) Register(r plugins.Registrar) error {
	help, err := r.Listen("/help", p.help(r), &command.Options{
		Docs:  "Show available commands, or the usage of one command",
		Usage: &usage.Model{Command: "help", Example: "help math add", NoHelp: true},
	})
	if err != nil {
		return err
	}
	if _, err := r.Synonym("/?", help); err != nil {
		return err
	}

	quit, err := r.Listen("/quit", p.quit, &command.Options{Docs: "Exit the shell", NeedsUI: true})
	if err != nil {
		return err
	}
	if _, err := r.Synonym("/exit", quit); err != nil {
		return err
	}

	if _, err := r.Listen("/echo", echo, &command.Options{Docs: "Print the arguments"}); err != nil {
		return err
	}
	if _, err := r.Listen("/version", version, &command.Options{
		Docs:  "Print the shell version",
		Usage: &usage.Model{Command: "version", Strict: true},
	}); err != nil {
		return err
	}

	for _, register := range []func(plugins.Registrar) error{p.registerVars, p.registerHistory, p.registerTabs} {
		if err := register(r); err != nil {
			return err
		}
	}
	return nil
}

// help lists the top-level commands, or reverses "help foo bar" into
// "foo bar --help".
func (p *Plugin) help(r plugins.Registrar) command.Handler {
	return func(ctx context.Context, args *command.Arguments) (any, error) {
		rest := args.Rest()
		if len(rest) == 0 {
			return nil, &usage.Error{Model: plugins.Listing(r, "/", "", constants.AppName+" commands")}
		}
		return args.REPL.Qexec(ctx, split.Join(rest)+" --help", nil)
	}
}

func (p *Plugin) quit(ctx context.Context, args *command.Arguments) (any, error) {
	p.opts.Quit()
	return "Bye!", nil
}

func echo(ctx context.Context, args *command.Arguments) (any, error) {
	return strings.Join(args.Rest(), " "), nil
}

func version(ctx context.Context, args *command.Arguments) (any, error) {
	return constants.AppName + " " + constants.AppVersion, nil
}
