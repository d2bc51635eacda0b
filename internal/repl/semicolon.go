package repl

import (
	"context"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/split"
)

// semicolonInvoke runs each segment of a composite line as a nested
// invocation, strictly left to right. A failing segment contributes its
// error message to the result and does not stop later segments, which may
// depend on side effects of earlier ones.
//
// The composite line itself is recorded in history once and gets its own
// start/complete pair, with no route.
func (e *Executor) semicolonInvoke(ctx context.Context, cmdline string, opts *command.ExecOptions, exec event.Exec) (any, error) {
	e.bus.Publish(event.NewCommandStartEvent(exec))
	if !opts.NoHistory && !opts.Quiet && opts.Type != command.Nested && opts.Tab != nil {
		opts.HistoryIdx = opts.Tab.History().Add(cmdline)
	}

	segments := split.SemiSplit(cmdline)
	e.log.Debug("semicolon fan-out", logging.Fields{"exec": exec.ExecUUID, "segments": len(segments)})

	results := make(response.Mixed, 0, len(segments))
	for _, seg := range segments {
		child := opts.Clone()
		child.Type = command.Nested
		child.NoHistory = true
		child.ExecUUID = ""
		child.ParentUUID = opts.ExecUUID

		resp, err := e.Exec(ctx, seg, child)
		if err != nil {
			results = append(results, err.Error())
			continue
		}
		results = append(results, resp)
	}

	return e.finish(exec, opts, results, nil)
}
