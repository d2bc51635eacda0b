package repl

import (
	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/event"
)

// streamFactory returns the caller's factory if one was supplied, otherwise
// one whose streams publish each chunk as a StdoutEvent for the invocation.
func (e *Executor) streamFactory(opts *command.ExecOptions) command.StreamFactory {
	if opts.CreateOutputStream != nil {
		return opts.CreateOutputStream
	}
	tabUUID := ""
	if opts.Tab != nil {
		tabUUID = opts.Tab.UUID()
	}
	execUUID := opts.ExecUUID
	return func() command.Stream {
		return func(chunk any) error {
			e.bus.Publish(event.NewStdoutEvent(tabUUID, execUUID, chunk))
			return nil
		}
	}
}
