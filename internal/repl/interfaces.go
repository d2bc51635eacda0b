// Package repl turns command lines into executed, observable results.
//
// An Executor owns no per-invocation state: everything an invocation needs
// travels in its ExecOptions and local variables, so handlers may call back
// into the executor (nested execution) and independent tabs may execute
// concurrently.
package repl

import (
	"context"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/tab"
)

// Evaluator invokes a resolved handler. It is the strategy that differs
// between execution backends; the executor around it handles resolution,
// events, history and error policy.
type Evaluator interface {
	Apply(ctx context.Context, h command.Handler, args *command.Arguments) (any, error)
}

// TabProvider supplies the tab used when ExecOptions names none.
type TabProvider interface {
	Current() *tab.Tab
}

// DirectEvaluator calls the handler on the caller's goroutine.
type DirectEvaluator struct{}

// Apply calls h.
func (DirectEvaluator) Apply(ctx context.Context, h command.Handler, args *command.Arguments) (any, error) {
	return h(ctx, args)
}

// Ensure concrete types implement the interfaces
var _ Evaluator = DirectEvaluator{}
var _ command.REPL = (*Executor)(nil)
var _ command.REPL = (*boundREPL)(nil)
var _ TabProvider = (*tab.Manager)(nil)
