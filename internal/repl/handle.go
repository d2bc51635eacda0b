package repl

import (
	"context"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/response"
)

// Qexec runs line as a nested command with history suppressed. Failures are
// returned as errors.
func (e *Executor) Qexec(ctx context.Context, line string, opts *command.ExecOptions) (any, error) {
	opts = opts.Clone()
	opts.Type = command.Nested
	opts.NoHistory = true
	return e.Exec(ctx, line, opts)
}

// Pexec runs line as if the user had clicked it: echoed, recorded in
// history, and with failures returned as values.
func (e *Executor) Pexec(ctx context.Context, line string, opts *command.ExecOptions) (any, error) {
	opts = opts.Clone()
	opts.Type = command.ClickHandler
	opts.Echo = true
	return e.Exec(ctx, line, opts)
}

// Rexec runs line as a nested command and wraps the response as raw
// content.
func (e *Executor) Rexec(ctx context.Context, line string, opts *command.ExecOptions) (any, error) {
	opts = opts.Clone()
	opts.Type = command.Nested
	opts.NoHistory = true
	opts.Raw = true
	resp, err := e.Exec(ctx, line, opts)
	if err != nil {
		return nil, err
	}
	if raw, ok := resp.(*response.Raw); ok {
		return raw, nil
	}
	return &response.Raw{Mode: "raw", Content: resp}, nil
}

// boundREPL is the handle given to a handler. Nested calls default to the
// handler's own tab and stream factory and record the handler's invocation
// as their parent.
type boundREPL struct {
	e      *Executor
	parent *command.ExecOptions
}

func (b *boundREPL) derive(opts *command.ExecOptions) *command.ExecOptions {
	opts = opts.Clone()
	if opts.Tab == nil {
		opts.Tab = b.parent.Tab
	}
	if opts.ParentUUID == "" {
		opts.ParentUUID = b.parent.ExecUUID
	}
	if opts.CreateOutputStream == nil {
		opts.CreateOutputStream = b.parent.CreateOutputStream
	}
	return opts
}

func (b *boundREPL) Qexec(ctx context.Context, line string, opts *command.ExecOptions) (any, error) {
	return b.e.Qexec(ctx, line, b.derive(opts))
}

func (b *boundREPL) Pexec(ctx context.Context, line string, opts *command.ExecOptions) (any, error) {
	return b.e.Pexec(ctx, line, b.derive(opts))
}

func (b *boundREPL) Rexec(ctx context.Context, line string, opts *command.ExecOptions) (any, error) {
	return b.e.Rexec(ctx, line, b.derive(opts))
}
