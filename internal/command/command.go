// Package command defines the contract between the REPL executor and the
// commands it runs: handler signatures, per-invocation options, the argument
// bundle handed to each handler, and registration metadata.
package command

import (
	"context"
	"maps"

	"github.com/quocvuong92/kshell/internal/options"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/usage"
)

// ExecType distinguishes how an invocation was triggered.
type ExecType int

const (
	// TopLevel invocations come from the user and never propagate errors
	TopLevel ExecType = iota
	// Nested invocations are issued by another command's handler
	Nested
	// ClickHandler invocations are programmatic but user-visible
	ClickHandler
)

// String returns the string representation of the exec type
func (t ExecType) String() string {
	switch t {
	case TopLevel:
		return "TopLevel"
	case Nested:
		return "Nested"
	case ClickHandler:
		return "ClickHandler"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the exec type by name.
func (t ExecType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (t *ExecType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Nested":
		*t = Nested
	case "ClickHandler":
		*t = ClickHandler
	default:
		*t = TopLevel
	}
	return nil
}

// Handler implements a command. The returned value is the response; a nil
// response with a nil error is reported as true.
type Handler func(ctx context.Context, args *Arguments) (any, error)

// Stream writes one chunk of incremental output.
type Stream func(chunk any) error

// StreamFactory creates the output stream for one invocation.
type StreamFactory func() Stream

// REPL is the handle a handler uses to issue further commands.
type REPL interface {
	// Qexec runs a nested command without recording history
	Qexec(ctx context.Context, line string, opts *ExecOptions) (any, error)
	// Pexec runs a command as if clicked: echoed and recorded
	Pexec(ctx context.Context, line string, opts *ExecOptions) (any, error)
	// Rexec runs a nested command and wraps its response as raw content
	Rexec(ctx context.Context, line string, opts *ExecOptions) (any, error)
}

// ExecOptions carries the intent of one invocation.
type ExecOptions struct {
	Type ExecType
	// Tab defaults to the executor's current tab
	Tab       *tab.Tab
	NoHistory bool
	Quiet     bool
	Echo      bool
	// Raw asks for the response without view transformation
	Raw bool
	// ExecUUID is generated when empty; replay propagates recorded ids
	ExecUUID string
	// Env overlays the tab's symbol table for this invocation
	Env map[string]string
	// HistoryIdx is set by the executor when the command was recorded, else -1
	HistoryIdx int
	// CreateOutputStream overrides the executor's default stream factory
	CreateOutputStream StreamFactory
	// ParentUUID is the exec id of the invocation that issued this one
	ParentUUID string
}

// Clone returns a copy that can be mutated independently. A nil receiver
// yields zero options.
func (o *ExecOptions) Clone() *ExecOptions {
	if o == nil {
		return &ExecOptions{HistoryIdx: -1}
	}
	c := *o
	c.Env = maps.Clone(o.Env)
	return &c
}

// Arguments is what a handler receives.
type Arguments struct {
	Tab  *tab.Tab
	REPL REPL
	// Route is the resolved route, the synonym's own route for synonyms
	Route string
	// Argv is the full tokenized command line
	Argv    []string
	Command string
	// ArgvNoOptions holds positionals only, starting with the command words
	ArgvNoOptions []string
	Parsed        options.Parsed
	ExecOptions   *ExecOptions
	// Depth is the number of leading ArgvNoOptions words that name the command
	Depth              int
	CreateOutputStream StreamFactory
}

// Rest returns the positionals following the command words.
func (a *Arguments) Rest() []string {
	if a.Depth >= len(a.ArgvNoOptions) {
		return nil
	}
	return a.ArgvNoOptions[a.Depth:]
}

// Event is passed to success and error callbacks.
type Event struct {
	Tab     *tab.Tab
	Type    ExecType
	Command string
	Parsed  options.Parsed
	Err     error
}

// ViewTransformer post-processes a top-level response.
type ViewTransformer func(ctx context.Context, args *Arguments, response any) (any, error)

// Options is the registration metadata of a command.
type Options struct {
	// Docs is a one-line description used by listings and the completer
	Docs  string
	Usage *usage.Model
	// Flags declares parser behaviour beyond what Usage implies
	Flags options.Schema

	NeedsUI       bool
	RequiresLocal bool
	NoAuthOk      bool
	// Hidden commands are executable but omitted from listings
	Hidden bool

	ViewTransformer ViewTransformer
	OnSuccess       func(Event)
	OnError         func(Event)
}

// Schema returns the command's own flag schema: flags implied by the usage
// model overlaid with Flags.
func (o *Options) Schema() options.Schema {
	if o == nil {
		return options.Schema{}
	}
	return options.Merge(o.Usage.Schema(), o.Flags)
}

// Description returns Docs, falling back to the usage title or header.
func (o *Options) Description() string {
	switch {
	case o == nil:
		return ""
	case o.Docs != "":
		return o.Docs
	case o.Usage != nil && o.Usage.Title != "":
		return o.Usage.Title
	case o.Usage != nil:
		return o.Usage.Header
	default:
		return ""
	}
}
