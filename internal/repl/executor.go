package repl

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/options"
	"github.com/quocvuong92/kshell/internal/split"
	"github.com/quocvuong92/kshell/internal/tree"
	"github.com/quocvuong92/kshell/internal/usage"
)

// Options configures an Executor.
type Options struct {
	Tree *tree.Tree
	Bus  *event.Bus
	Tabs TabProvider
	// Evaluator defaults to DirectEvaluator
	Evaluator Evaluator
	// LocalAccess is false when commands cannot touch the local machine
	LocalAccess bool
	// Headless is true when no interactive session is attached
	Headless bool
}

// Executor runs command lines against a command tree.
type Executor struct {
	tree        *tree.Tree
	bus         *event.Bus
	tabs        TabProvider
	evaluator   Evaluator
	localAccess bool
	headless    bool
	log         *logging.FieldLogger
}

// New creates an Executor.
func New(opts Options) *Executor {
	if opts.Evaluator == nil {
		opts.Evaluator = DirectEvaluator{}
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	return &Executor{
		tree:        opts.Tree,
		bus:         opts.Bus,
		tabs:        opts.Tabs,
		evaluator:   opts.Evaluator,
		localAccess: opts.LocalAccess,
		headless:    opts.Headless,
		log:         logging.Named("repl"),
	}
}

// Bus returns the bus lifecycle events are published on.
func (e *Executor) Bus() *event.Bus { return e.bus }

// Tree returns the command tree.
func (e *Executor) Tree() *tree.Tree { return e.tree }

// Exec runs one command line.
//
// Top-level and click invocations never return a non-nil error: failures
// come back as the response value, carrying a code (see errors.CodeOf).
// Nested invocations return failures as errors so the calling handler sees
// them. Every invocation publishes exactly one start and one complete event
// on the bus; a semicolon-separated line additionally publishes a pair per
// segment.
func (e *Executor) Exec(ctx context.Context, line string, opts *command.ExecOptions) (resp any, err error) {
	opts = opts.Clone()
	if opts.Tab == nil && e.tabs != nil {
		opts.Tab = e.tabs.Current()
	}
	if opts.ExecUUID == "" {
		opts.ExecUUID = uuid.NewString()
	}
	opts.HistoryIdx = -1

	cmdline := split.StripComments(line)
	exec := event.Exec{
		Command:    cmdline,
		Type:       opts.Type,
		ExecUUID:   opts.ExecUUID,
		ParentUUID: opts.ParentUUID,
		Echo:       opts.Echo,
	}
	if opts.Tab != nil {
		exec.TabUUID = opts.Tab.UUID()
	}

	started := false
	defer func() {
		if r := recover(); r != nil {
			perr := errors.Internal(fmt.Errorf("panic: %v", r))
			e.log.Error("recovered from panic", perr, logging.Fields{"exec": exec.ExecUUID, "command": cmdline})
			if !started {
				e.bus.Publish(event.NewCommandStartEvent(exec))
			}
			resp, err = e.finish(exec, opts, nil, perr)
		}
	}()

	if cmdline == "" {
		e.bus.Publish(event.NewCommandStartEvent(exec))
		e.bus.Publish(event.NewCommandCompleteEvent(exec, nil, true, -1))
		return nil, nil
	}

	if split.HasSemicolon(cmdline) {
		started = true
		return e.semicolonInvoke(ctx, cmdline, opts, exec)
	}

	argv := split.Split(cmdline)
	res, tier, rerr := e.tree.Resolve(argv)
	if rerr != nil {
		started = true
		e.bus.Publish(event.NewCommandStartEvent(exec))
		return e.finish(exec, opts, nil, rerr)
	}
	exec.Route = res.Route
	e.log.Debug("resolved", logging.Fields{"exec": exec.ExecUUID, "route": res.Route, "tier": int(tier)})

	if aerr := e.checkAccess(res.Options); aerr != nil {
		started = true
		e.bus.Publish(event.NewCommandStartEvent(exec))
		return e.finish(exec, opts, nil, aerr)
	}

	parsed := options.Parse(argv, options.Merge(builtinSchema(res.Options.Usage), res.Options.Schema()))
	exec.Options = parsed.Options
	if parsed.Bool("quiet") {
		opts.Quiet = true
	}

	started = true
	e.bus.Publish(event.NewCommandStartEvent(exec))

	if !opts.NoHistory && !opts.Quiet && opts.Type != command.Nested && opts.Tab != nil {
		opts.HistoryIdx = opts.Tab.History().Add(cmdline)
	}

	args := &command.Arguments{
		Tab:           opts.Tab,
		Route:         res.Route,
		Argv:          argv,
		Command:       cmdline,
		ArgvNoOptions: parsed.Positionals,
		Parsed:        parsed,
		ExecOptions:   opts,
		Depth:         res.Depth,
	}
	args.REPL = &boundREPL{e: e, parent: opts}
	args.CreateOutputStream = e.streamFactory(opts)

	cwd := ""
	if opts.Tab != nil {
		cwd = opts.Tab.Cwd()
	}
	if uerr := usage.Enforce(res.Options.Usage, usage.Input{Args: args.Rest(), Options: parsed, Cwd: cwd}); uerr != nil {
		return e.finish(exec, opts, nil, uerr)
	}

	e.loadSymbolTable(opts)

	resp, herr := e.invoke(ctx, res.Handler, args)

	cb := command.Event{Tab: opts.Tab, Type: opts.Type, Command: cmdline, Parsed: parsed, Err: herr}
	if herr != nil {
		if res.Options.OnError != nil {
			res.Options.OnError(cb)
		}
		return e.finish(exec, opts, nil, herr)
	}
	if res.Options.OnSuccess != nil {
		res.Options.OnSuccess(cb)
	}

	if vt := res.Options.ViewTransformer; vt != nil && opts.Type != command.Nested && !opts.Raw {
		resp = e.transform(ctx, vt, args, resp)
	}

	if resp == nil {
		resp = true
	}
	return e.finish(exec, opts, resp, nil)
}

// finish publishes the completion event and applies the error policy:
// nested invocations return failures as errors, all others as values.
func (e *Executor) finish(exec event.Exec, opts *command.ExecOptions, resp any, err error) (any, error) {
	if err != nil {
		fields := logging.Fields{"exec": exec.ExecUUID, "route": exec.Route, "code": errors.CodeOf(err)}
		if errors.IsResolution(err) || errors.CodeOf(err) == errors.CodeUsage {
			e.log.Debug(err.Error(), fields)
		} else {
			e.log.Error("command failed", err, fields)
		}
		e.bus.Publish(event.NewCommandCompleteEvent(exec, err, false, opts.HistoryIdx))
		if opts.Type == command.Nested {
			return nil, err
		}
		return err, nil
	}
	e.bus.Publish(event.NewCommandCompleteEvent(exec, resp, false, opts.HistoryIdx))
	return resp, nil
}

// invoke runs the handler through the evaluator, turning a panic into an
// internal error.
func (e *Executor) invoke(ctx context.Context, h command.Handler, args *command.Arguments) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return e.evaluator.Apply(ctx, h, args)
}

// transform applies a view transformer. A failing transformer's error
// becomes the response.
func (e *Executor) transform(ctx context.Context, vt command.ViewTransformer, args *command.Arguments, resp any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = errors.Internal(fmt.Errorf("view transformer panic: %v", r))
		}
	}()
	v, err := vt(ctx, args, resp)
	if err != nil {
		e.log.Warn("view transformer failed", logging.Fields{"exec": args.ExecOptions.ExecUUID, "error": err.Error()})
		return err
	}
	return v
}

func (e *Executor) checkAccess(opts *command.Options) error {
	if opts.RequiresLocal && !e.localAccess {
		return errors.NotAcceptable()
	}
	if opts.NeedsUI && e.headless {
		return errors.NewCoded(errors.CodeNotAcceptable, errors.KindCommandResolution, "Command requires an interactive session", nil)
	}
	return nil
}

// loadSymbolTable overlays the tab's exported variables on the invocation's
// environment.
func (e *Executor) loadSymbolTable(opts *command.ExecOptions) {
	if opts.Tab == nil {
		return
	}
	vars := opts.Tab.Vars()
	if len(vars) == 0 {
		return
	}
	if opts.Env == nil {
		opts.Env = map[string]string{}
	}
	maps.Copy(opts.Env, vars)
}

// builtinSchema returns the flags every command accepts: --help/-h unless
// suppressed by the usage model, and --quiet/-q.
func builtinSchema(m *usage.Model) options.Schema {
	s := options.Schema{
		Boolean: []string{"quiet"},
		Alias:   map[string]string{"q": "quiet"},
	}
	if m != nil && m.NoHelp {
		return s
	}
	s.Boolean = append(s.Boolean, "help")
	if m == nil || !m.NoHelpAlias {
		s.Alias["h"] = "help"
	}
	return s
}
