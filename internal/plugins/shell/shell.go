// Package shell provides commands that touch the local machine: cd, pwd,
// sh, a pass-through for executables on PATH, and watch jobs.
package shell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/policy"
	"github.com/quocvuong92/kshell/internal/usage"
)

// Options configures the shell plugin.
type Options struct {
	// Policy gates every command line run through the system shell
	Policy *policy.Policy
	// Confirm asks before lines that need confirmation; nil approves them
	Confirm policy.Confirmer
	// Shell is the interpreter lines are passed to with -c; defaults to
	// $SHELL, then /bin/sh
	Shell string
	// PassThrough registers the catch-all for executables on PATH
	PassThrough bool
	// LookPath finds executables; defaults to exec.LookPath
	LookPath func(name string) (string, error)
}

// Plugin registers the shell commands.
type Plugin struct {
	opts Options
	log  *logging.FieldLogger
}

// New creates the shell plugin.
func New(opts Options) *Plugin {
	if opts.Policy == nil {
		opts.Policy = policy.New(policy.Config{AutoAllowSafe: true})
	}
	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
	}
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	if opts.LookPath == nil {
		opts.LookPath = lookPath
	}
	return &Plugin{opts: opts, log: logging.Named("shell")}
}

// Name implements plugins.Plugin.
func (*Plugin) Name() string { return "shell" }

// Register implements plugins.Plugin.
func (p *Plugin) Register(r plugins.Registrar) error {
	if _, err := r.Listen("/cd", p.cd, &command.Options{
		Docs:          "Change the working directory of the current tab",
		RequiresLocal: true,
		Usage: &usage.Model{
			Command:  "cd",
			Strict:   true,
			Optional: []usage.Row{{Name: "dir", Docs: "directory, home when omitted"}},
		},
	}); err != nil {
		return err
	}
	if _, err := r.Listen("/pwd", p.pwd, &command.Options{
		Docs:          "Print the working directory of the current tab",
		RequiresLocal: true,
		Usage:         &usage.Model{Command: "pwd", Strict: true},
	}); err != nil {
		return err
	}
	if _, err := r.Listen("/sh", p.sh, &command.Options{
		Docs:          "Run a command line with the system shell",
		RequiresLocal: true,
		Usage: &usage.Model{
			Command:  "sh",
			Example:  "sh ls -la | head",
			NoHelp:   true,
			Required: []usage.Row{{Name: "command", Docs: "the command line to run"}},
		},
	}); err != nil {
		return err
	}
	if p.opts.PassThrough {
		err := r.Catchall("/", p.offer, p.passThrough, 0, &command.Options{
			Docs:          "Run an executable found on PATH",
			RequiresLocal: true,
			Hidden:        true,
		})
		if err != nil {
			return err
		}
	}
	if err := p.registerPolicy(r); err != nil {
		return err
	}
	return p.registerJobs(r)
}

func (p *Plugin) cd(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, fmt.Errorf("cd requires a tab")
	}

	home := args.Tab.Env()["HOME"]
	dir := home
	if rest := args.Rest(); len(rest) > 0 {
		dir = rest[0]
	}
	if dir == "" {
		return nil, fmt.Errorf("cd: HOME not set")
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		dir = home + dir[1:]
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(args.Tab.Cwd(), dir)
	}
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cd: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cd: not a directory: %s", dir)
	}
	if err := args.Tab.Chdir(dir); err != nil {
		return nil, fmt.Errorf("cd: %w", err)
	}
	p.log.Debug("changed directory", logging.Fields{"tab": args.Tab.UUID(), "dir": dir})
	return dir, nil
}

func (p *Plugin) pwd(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, fmt.Errorf("pwd requires a tab")
	}
	return args.Tab.Cwd(), nil
}
