package snapshot

import (
	"sync"
	"time"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/response"
)

// Entry is one recorded invocation: its start and completion.
type Entry struct {
	ExecUUID     string           `json:"execUUID" yaml:"execUUID"`
	Route        string           `json:"route,omitempty" yaml:"route,omitempty"`
	Command      string           `json:"command" yaml:"command"`
	Type         command.ExecType `json:"type" yaml:"type"`
	Options      map[string]any   `json:"options,omitempty" yaml:"options,omitempty"`
	Started      time.Time        `json:"started" yaml:"started"`
	Completed    time.Time        `json:"completed" yaml:"completed"`
	Response     any              `json:"response,omitempty" yaml:"response,omitempty"`
	ResponseType response.Kind    `json:"responseType" yaml:"responseType"`
	Error        string           `json:"error,omitempty" yaml:"error,omitempty"`
	Code         int              `json:"code,omitempty" yaml:"code,omitempty"`
	Cancelled    bool             `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	HistoryIdx   int              `json:"historyIdx" yaml:"historyIdx"`
}

// Recorder keeps the top-level invocations of each tab, in completion
// order.
type Recorder struct {
	mu      sync.Mutex
	max     int
	pending map[string]event.CommandStartEvent
	byTab   map[string][]Entry
	subs    []string
}

// NewRecorder creates a Recorder keeping up to max entries per tab.
func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = constants.DefaultHistorySize
	}
	return &Recorder{
		max:     max,
		pending: map[string]event.CommandStartEvent{},
		byTab:   map[string][]Entry{},
	}
}

// Attach subscribes the recorder to bus.
func (r *Recorder) Attach(bus *event.Bus) {
	r.subs = append(r.subs,
		bus.Subscribe(event.TypeCommandStart, r.onStart),
		bus.Subscribe(event.TypeCommandComplete, r.onComplete),
	)
}

// Detach removes the subscriptions made by Attach.
func (r *Recorder) Detach(bus *event.Bus) {
	for _, id := range r.subs {
		bus.Unsubscribe(id)
	}
	r.subs = nil
}

func (r *Recorder) onStart(e event.Event) {
	start, ok := e.(event.CommandStartEvent)
	if !ok || start.Type == command.Nested {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[start.ExecUUID] = start
}

func (r *Recorder) onComplete(e event.Event) {
	complete, ok := e.(event.CommandCompleteEvent)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	start, ok := r.pending[complete.ExecUUID]
	if !ok {
		return
	}
	delete(r.pending, complete.ExecUUID)
	if complete.Cancelled {
		return
	}

	entry := Entry{
		ExecUUID:     complete.ExecUUID,
		Route:        complete.Route,
		Command:      complete.Command,
		Type:         complete.Type,
		Options:      complete.Options,
		Started:      start.Timestamp(),
		Completed:    complete.Timestamp(),
		ResponseType: complete.ResponseType,
		Cancelled:    complete.Cancelled,
		HistoryIdx:   complete.HistoryIdx,
	}
	if err := complete.Err(); err != nil {
		entry.Error = err.Error()
		entry.Code = errors.CodeOf(err)
	} else {
		entry.Response = complete.Response
	}

	entries := append(r.byTab[complete.TabUUID], entry)
	if over := len(entries) - r.max; over > 0 {
		entries = append([]Entry(nil), entries[over:]...)
	}
	r.byTab[complete.TabUUID] = entries
}

// Entries returns the recorded entries of a tab.
func (r *Recorder) Entries(tabUUID string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.byTab[tabUUID]...)
}

// Forget drops everything recorded for a tab.
func (r *Recorder) Forget(tabUUID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byTab, tabUUID)
}
