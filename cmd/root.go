package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/kshell/internal/config"
	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/split"
)

// errCommandFailed is returned by run when a one-shot command failed; the
// failure itself has already been printed.
var errCommandFailed = errors.New("command failed")

// App holds the application state
type App struct {
	cfg        *config.Config
	commands   []string
	initConfig bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewApp creates a new App instance with default configuration
func NewApp() *App {
	return &App{
		cfg:    config.NewConfig(),
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// Execute runs the root command
func Execute() {
	app := NewApp()
	if err := app.NewRootCmd().Execute(); err != nil {
		if err != errCommandFailed {
			fmt.Fprintln(app.errOut, "Error:", err)
		}
		os.Exit(1)
	}
}

// NewRootCmd builds the cobra command for the app.
func (app *App) NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName + " [command...]",
		Short: "A command shell with tabs, nested commands and background jobs",
		Long: `kshell runs commands registered in a command tree. Commands can call one
another, lines can be joined with semicolons, and each tab keeps its own
working directory, variables, history and watch jobs.

Examples:
  kshell                              # Interactive mode
  kshell math add 1 2                 # Run one command and exit
  kshell -c "export N=1" -c "env"     # Run several commands in order
  kshell -i -c "cd /tmp"              # Run, then stay interactive
  kshell --init-config                # Write a commented config file`,
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd.Context(), args)
		},
	}
	rootCmd.SetIn(app.in)
	rootCmd.SetOut(app.out)
	rootCmd.SetErr(app.errOut)

	flags := rootCmd.Flags()
	// Flags after the first word belong to the shell command, not to kshell
	flags.SetInterspersed(false)
	flags.StringArrayVarP(&app.commands, "command", "c", nil, "Run a command line (repeatable)")
	flags.BoolVarP(&app.cfg.Interactive, "interactive", "i", false, "Stay interactive after running commands")
	flags.BoolVarP(&app.cfg.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&app.cfg.ConfigPath, "config", "", "Config file (default: search ./.kshell, ~/.config/kshell)")
	flags.StringVar(&app.cfg.LogFormat, "log-format", "", "Log format: text or json")
	flags.BoolVar(&app.cfg.NoRender, "no-render", false, "Disable markdown rendering")
	flags.BoolVar(&app.initConfig, "init-config", false, "Create a default config file and exit")

	return rootCmd
}

func (app *App) run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if app.initConfig {
		path, err := config.CreateDefaultConfigFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(app.out, "Created config file at %s\n", path)
		return nil
	}

	if err := app.cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Configure(app.cfg.LogLevel, app.cfg.LogFormat); err != nil {
		return err
	}

	lines := append([]string(nil), app.commands...)
	if len(args) > 0 {
		lines = append(lines, split.Join(args))
	}
	interactive := app.cfg.Interactive || len(lines) == 0

	sh, err := NewShell(app.cfg, ShellOptions{In: app.in, Out: app.out, Err: app.errOut, Interactive: interactive})
	if err != nil {
		return err
	}
	defer sh.Close()

	failed := false
	for _, line := range lines {
		if err := sh.Run(ctx, line); err != nil {
			failed = true
		}
		if sh.Quitting() {
			return nil
		}
	}

	if interactive {
		return app.runInteractive(ctx, sh)
	}
	if failed {
		return errCommandFailed
	}
	return nil
}
