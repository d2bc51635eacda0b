package display

import (
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/event"
)

// Spinner is a busy indicator.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a spinner writing to w with the given message.
func NewSpinner(w io.Writer, message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	return &Spinner{s: s}
}

// Start starts the spinner.
func (sp *Spinner) Start() { sp.s.Start() }

// Stop stops the spinner and clears its line.
func (sp *Spinner) Stop() { sp.s.Stop() }

// Activity shows a spinner while a top-level command runs longer than a
// delay. The spinner is hidden as soon as the command streams output or
// completes.
type Activity struct {
	mu      sync.Mutex
	w       io.Writer
	delay   time.Duration
	timer   *time.Timer
	spinner *Spinner
	exec    string
	subs    []string
}

// NewActivity creates an Activity writing to w.
func NewActivity(w io.Writer, delay time.Duration) *Activity {
	return &Activity{w: w, delay: delay}
}

// Attach subscribes the activity indicator to bus.
func (a *Activity) Attach(bus *event.Bus) {
	a.subs = append(a.subs,
		bus.Subscribe(event.TypeCommandStart, a.onStart),
		bus.Subscribe(event.TypeCommandComplete, a.onComplete),
		bus.Subscribe(event.TypeStdoutPrefix+"*", func(event.Event) { a.stop() }),
	)
}

// Detach removes the subscriptions made by Attach.
func (a *Activity) Detach(bus *event.Bus) {
	for _, id := range a.subs {
		bus.Unsubscribe(id)
	}
	a.subs = nil
	a.stop()
}

func (a *Activity) onStart(e event.Event) {
	start, ok := e.(event.CommandStartEvent)
	if !ok || start.Type == command.Nested || start.Route == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.exec != "" {
		return
	}
	a.exec = start.ExecUUID
	a.timer = time.AfterFunc(a.delay, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.exec == start.ExecUUID && a.spinner == nil {
			a.spinner = NewSpinner(a.w, start.Command)
			a.spinner.Start()
		}
	})
}

func (a *Activity) onComplete(e event.Event) {
	complete, ok := e.(event.CommandCompleteEvent)
	if !ok {
		return
	}
	a.mu.Lock()
	mine := complete.ExecUUID == a.exec
	a.mu.Unlock()
	if mine {
		a.stop()
	}
}

func (a *Activity) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.spinner != nil {
		a.spinner.Stop()
		a.spinner = nil
	}
	a.exec = ""
}

// Active reports whether a command is being tracked.
func (a *Activity) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exec != ""
}
