package event

import (
	"maps"
	"time"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/response"
)

// Event types
const (
	TypeCommandStart    = "/command/start"
	TypeCommandComplete = "/command/complete"
	TypeEnvUpdate       = "/env/update"
	// TypeStdoutPrefix is followed by "<tab>/<exec>"
	TypeStdoutPrefix = "/command/stdout/"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns the topic the event is published on
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// Exec identifies one invocation in lifecycle events.
type Exec struct {
	TabUUID    string
	Route      string
	Command    string
	Type       command.ExecType
	ExecUUID   string
	ParentUUID string
	Echo       bool
	// Options is a copy of the parsed flags; nil before parsing
	Options map[string]any
}

// CommandStartEvent is emitted before a command's handler runs.
type CommandStartEvent struct {
	baseEvent
	Exec
}

// NewCommandStartEvent creates a CommandStartEvent.
func NewCommandStartEvent(exec Exec) CommandStartEvent {
	exec.Options = maps.Clone(exec.Options)
	return CommandStartEvent{baseEvent: newBaseEvent(TypeCommandStart), Exec: exec}
}

// CommandCompleteEvent is emitted once per invocation, whatever its outcome.
type CommandCompleteEvent struct {
	baseEvent
	Exec
	Response     any
	ResponseType response.Kind
	Cancelled    bool
	// HistoryIdx is the history index recorded for the command, or -1
	HistoryIdx int
}

// Err returns the response as an error if it is one.
func (e CommandCompleteEvent) Err() error {
	err, _ := e.Response.(error)
	return err
}

// NewCommandCompleteEvent creates a CommandCompleteEvent. The response kind
// is derived from resp; cancelled invocations are Incomplete.
func NewCommandCompleteEvent(exec Exec, resp any, cancelled bool, historyIdx int) CommandCompleteEvent {
	exec.Options = maps.Clone(exec.Options)
	kind := response.KindOf(resp)
	if cancelled {
		kind = response.Incomplete
	}
	return CommandCompleteEvent{
		baseEvent:    newBaseEvent(TypeCommandComplete),
		Exec:         exec,
		Response:     resp,
		ResponseType: kind,
		Cancelled:    cancelled,
		HistoryIdx:   historyIdx,
	}
}

// EnvUpdateEvent is emitted when a tab's symbol table changes.
type EnvUpdateEvent struct {
	baseEvent
	TabUUID string
	Name    string
	Value   string
	Unset   bool
}

// NewEnvUpdateEvent creates an EnvUpdateEvent.
func NewEnvUpdateEvent(tabUUID, name, value string, unset bool) EnvUpdateEvent {
	return EnvUpdateEvent{
		baseEvent: newBaseEvent(TypeEnvUpdate),
		TabUUID:   tabUUID,
		Name:      name,
		Value:     value,
		Unset:     unset,
	}
}

// StdoutEvent carries one chunk of streamed output.
type StdoutEvent struct {
	baseEvent
	TabUUID  string
	ExecUUID string
	Chunk    any
}

// StdoutType returns the event type streamed output of one invocation is
// published on.
func StdoutType(tabUUID, execUUID string) string {
	return TypeStdoutPrefix + tabUUID + "/" + execUUID
}

// NewStdoutEvent creates a StdoutEvent.
func NewStdoutEvent(tabUUID, execUUID string, chunk any) StdoutEvent {
	return StdoutEvent{
		baseEvent: newBaseEvent(StdoutType(tabUUID, execUUID)),
		TabUUID:   tabUUID,
		ExecUUID:  execUUID,
		Chunk:     chunk,
	}
}
