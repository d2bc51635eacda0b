package display

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/policy"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/usage"
)

func newTestPrinter(t *testing.T) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	p, err := NewPrinter(Options{Out: &out, Err: &errOut, Markdown: true})
	if err != nil {
		t.Fatalf("NewPrinter() error = %v", err)
	}
	return p, &out, &errOut
}

func TestPrinter_Response(t *testing.T) {
	tests := []struct {
		name    string
		resp    any
		wantOut []string
		wantErr []string
	}{
		{name: "string", resp: "hello\n", wantOut: []string{"hello"}},
		{name: "true", resp: true, wantOut: []string{"ok"}},
		{name: "number", resp: int64(5), wantOut: []string{"5"}},
		{name: "error", resp: errors.New("boom"), wantErr: []string{"Error: ", "boom"}},
		{name: "not found", resp: errors.NotFound(), wantErr: []string{"Command not found"}},
		{
			name:    "table",
			resp:    &response.Table{Title: "Tabs", Header: []string{"INDEX", "CWD"}, Rows: [][]string{{"1", "/tmp"}}},
			wantOut: []string{"Tabs", "INDEX", "CWD", "/tmp"},
		},
		{name: "mixed", resp: response.Mixed{"first", "second"}, wantOut: []string{"first", "second"}},
		{name: "raw", resp: &response.Raw{Mode: "raw", Content: "inner"}, wantOut: []string{"inner"}},
		{name: "map", resp: map[string]string{"PATH": "/bin"}, wantOut: []string{"PATH: /bin"}},
		{
			name: "multi modal",
			resp: &response.MultiModalResponse{Name: "pod", DefaultMode: "yaml", Modes: []response.Mode{
				{Mode: "summary", Content: "short"},
				{Mode: "yaml", Content: "long"},
			}},
			wantOut: []string{"pod", "long"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out, errOut := newTestPrinter(t)
			p.Response(tt.resp)
			for _, want := range tt.wantOut {
				if !strings.Contains(out.String(), want) {
					t.Errorf("stdout %q missing %q", out.String(), want)
				}
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(errOut.String(), want) {
					t.Errorf("stderr %q missing %q", errOut.String(), want)
				}
			}
		})
	}
}

func TestPrinter_UsageError(t *testing.T) {
	p, out, errOut := newTestPrinter(t)
	model := &usage.Model{
		Command:  "math add",
		Title:    "Add numbers",
		Required: []usage.Row{{Name: "a", Docs: "first number"}},
	}

	p.Response(&usage.Error{Model: model, Message: "Required parameter not provided: a"})

	if !strings.Contains(errOut.String(), "Required parameter not provided: a") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if !strings.Contains(out.String(), "Add numbers") || !strings.Contains(out.String(), "first number") {
		t.Errorf("stdout should carry the help text, got %q", out.String())
	}
}

func TestPrinter_Attach(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	bus := event.NewBus()
	p.Attach(bus)

	bus.Publish(event.NewStdoutEvent("tab", "exec", "line one"))
	bus.Publish(event.NewStdoutEvent("tab", "exec", []byte("line two")))

	if got := out.String(); got != "line one\nline two\n" {
		t.Errorf("streamed output = %q", got)
	}
}

func TestActivity_TracksTopLevelCommands(t *testing.T) {
	bus := event.NewBus()
	a := NewActivity(io.Discard, time.Hour)
	a.Attach(bus)
	defer a.Detach(bus)

	nested := event.Exec{Route: "/x", ExecUUID: "n", Type: command.Nested}
	bus.Publish(event.NewCommandStartEvent(nested))
	if a.Active() {
		t.Error("nested commands should not start the indicator")
	}

	top := event.Exec{Route: "/x", ExecUUID: "t", Type: command.TopLevel}
	bus.Publish(event.NewCommandStartEvent(top))
	if !a.Active() {
		t.Fatal("top-level command should be tracked")
	}

	bus.Publish(event.NewCommandCompleteEvent(nested, nil, false, -1))
	if !a.Active() {
		t.Error("another command's completion should not stop tracking")
	}

	bus.Publish(event.NewCommandCompleteEvent(top, true, false, -1))
	if a.Active() {
		t.Error("completion should stop tracking")
	}
}

func TestConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  policy.Approval
	}{
		{"y\n", policy.Once},
		{"yes\n", policy.Once},
		{"s\n", policy.Session},
		{"n\n", policy.Denied},
		{"\n", policy.Denied},
		{"", policy.Denied},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			confirm := Confirmer(strings.NewReader(tt.input), &out)
			if got := confirm("touch x", policy.NeedsConfirm, "Command may modify system state"); got != tt.want {
				t.Errorf("answer %q = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "touch x") {
				t.Errorf("prompt %q should show the command", out.String())
			}
		})
	}
}
