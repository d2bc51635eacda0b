package repl

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/tree"
	"github.com/quocvuong92/kshell/internal/usage"
)

// recorder collects lifecycle events.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) starts() []event.CommandStartEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.CommandStartEvent
	for _, e := range r.events {
		if s, ok := e.(event.CommandStartEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *recorder) completes() []event.CommandCompleteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.CommandCompleteEvent
	for _, e := range r.events {
		if c, ok := e.(event.CommandCompleteEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	exec  *Executor
	tabs  *tab.Manager
	rec   *recorder
	calls map[string]int
	mu    sync.Mutex
	order []string
}

func (f *fixture) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	f.order = append(f.order, name)
}

func (f *fixture) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func newFixture(t *testing.T, local bool) *fixture {
	t.Helper()
	f := &fixture{rec: &recorder{}, calls: map[string]int{}}
	tr := tree.New()

	listen := func(route string, h command.Handler, opts *command.Options) tree.NodeID {
		id, err := tr.Listen(route, h, opts)
		if err != nil {
			t.Fatalf("Listen(%s) error = %v", route, err)
		}
		return id
	}

	add := listen("/math/add", func(ctx context.Context, args *command.Arguments) (any, error) {
		f.called("add")
		var sum int64
		for _, s := range args.Rest() {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, err
			}
			sum += n
		}
		return sum, nil
	}, &command.Options{Usage: &usage.Model{
		Command: "math add",
		Strict:  true,
		Required: []usage.Row{
			{Name: "a", Numeric: true},
			{Name: "b", Numeric: true},
		},
	}})
	if _, err := tr.Synonym("/math/plus", add); err != nil {
		t.Fatal(err)
	}

	listen("/echo", func(ctx context.Context, args *command.Arguments) (any, error) {
		f.called("echo")
		return strings.Join(args.Rest(), " "), nil
	}, nil)

	listen("/fail", func(ctx context.Context, args *command.Arguments) (any, error) {
		f.called("fail")
		return nil, errors.New("boom")
	}, nil)

	listen("/outer", func(ctx context.Context, args *command.Arguments) (any, error) {
		f.called("outer")
		_, err := args.REPL.Qexec(ctx, "fail", nil)
		if err == nil {
			return "nested error was swallowed", nil
		}
		return nil, err
	}, nil)

	listen("/recover", func(ctx context.Context, args *command.Arguments) (any, error) {
		_, err := args.REPL.Qexec(ctx, "nope", nil)
		if errors.IsNotFound(err) {
			return "recovered", nil
		}
		return nil, err
	}, nil)

	listen("/panic", func(ctx context.Context, args *command.Arguments) (any, error) {
		panic("kaboom")
	}, nil)

	listen("/local", func(ctx context.Context, args *command.Arguments) (any, error) {
		f.called("local")
		return "ok", nil
	}, &command.Options{RequiresLocal: true})

	listen("/env", func(ctx context.Context, args *command.Arguments) (any, error) {
		return args.ExecOptions.Env["NS"], nil
	}, nil)

	listen("/nothing", func(ctx context.Context, args *command.Arguments) (any, error) {
		return nil, nil
	}, nil)

	listen("/stream", func(ctx context.Context, args *command.Arguments) (any, error) {
		out := args.CreateOutputStream()
		for _, line := range []string{"one", "two"} {
			if err := out(line); err != nil {
				return nil, err
			}
		}
		return "done", nil
	}, nil)

	listen("/upper", func(ctx context.Context, args *command.Arguments) (any, error) {
		return strings.Join(args.Rest(), " "), nil
	}, &command.Options{ViewTransformer: func(ctx context.Context, args *command.Arguments, resp any) (any, error) {
		return strings.ToUpper(resp.(string)), nil
	}})

	listen("/badview", func(ctx context.Context, args *command.Arguments) (any, error) {
		return "raw", nil
	}, &command.Options{ViewTransformer: func(ctx context.Context, args *command.Arguments, resp any) (any, error) {
		return nil, errors.New("cannot render")
	}})

	listen("/wrap", func(ctx context.Context, args *command.Arguments) (any, error) {
		return args.REPL.Qexec(ctx, "upper "+args.Rest()[0], nil)
	}, nil)

	tr.Seal()

	f.tabs = tab.NewManager(tab.Options{})
	f.exec = New(Options{Tree: tr, Tabs: f.tabs, LocalAccess: local})
	f.exec.Bus().SubscribeAll(f.rec.handle)
	return f
}

func run(t *testing.T, f *fixture, line string) any {
	t.Helper()
	resp, err := f.exec.Exec(context.Background(), line, nil)
	if err != nil {
		t.Fatalf("top-level Exec(%q) returned error %v", line, err)
	}
	return resp
}

func TestExec_EndToEnd(t *testing.T) {
	f := newFixture(t, true)

	resp := run(t, f, "math add 2 3")
	if resp != int64(5) {
		t.Fatalf("response = %#v, want 5", resp)
	}

	starts, completes := f.rec.starts(), f.rec.completes()
	if len(starts) != 1 || len(completes) != 1 {
		t.Fatalf("got %d starts and %d completes, want 1 each", len(starts), len(completes))
	}
	if starts[0].Route != "/math/add" || completes[0].Route != "/math/add" {
		t.Errorf("routes = %q / %q", starts[0].Route, completes[0].Route)
	}
	if starts[0].ExecUUID == "" || starts[0].ExecUUID != completes[0].ExecUUID {
		t.Error("start and complete should share a fresh exec id")
	}
	if completes[0].ResponseType != response.Scalar || completes[0].Cancelled {
		t.Errorf("complete = %+v", completes[0])
	}
}

func TestExec_EmptyIsCancelled(t *testing.T) {
	for _, line := range []string{"", "   ", "# just a comment", "#comment", "\t# x"} {
		t.Run(line, func(t *testing.T) {
			f := newFixture(t, true)
			if resp := run(t, f, line); resp != nil {
				t.Errorf("response = %v, want nil", resp)
			}
			completes := f.rec.completes()
			if len(f.rec.starts()) != 1 || len(completes) != 1 || !completes[0].Cancelled {
				t.Errorf("want one start and one cancelled complete, got %d/%v", len(f.rec.starts()), completes)
			}
			if f.tabs.Current().History().Len() != 0 {
				t.Error("empty command should not be recorded")
			}
		})
	}
}

func TestExec_QuotePreservation(t *testing.T) {
	f := newFixture(t, true)
	if got := run(t, f, `echo "hi  hi"`); got != "hi  hi" {
		t.Errorf("quoted = %q", got)
	}
	if got := run(t, f, "echo hi  hi"); got != "hi hi" {
		t.Errorf("unquoted = %q", got)
	}
}

func TestExec_SynonymTransparency(t *testing.T) {
	f := newFixture(t, true)

	viaSynonym := run(t, f, "math plus 2 3")
	viaCanonical := run(t, f, "math add 2 3")
	if viaSynonym != viaCanonical {
		t.Errorf("synonym = %v, canonical = %v", viaSynonym, viaCanonical)
	}
	if route := f.rec.completes()[0].Route; route != "/math/plus" {
		t.Errorf("synonym complete route = %q, want /math/plus", route)
	}
}

func TestExec_NestedErrorPropagation(t *testing.T) {
	f := newFixture(t, true)

	resp, err := f.exec.Exec(context.Background(), "outer", nil)
	if err != nil {
		t.Fatalf("top-level returned error %v", err)
	}
	rerr, ok := resp.(error)
	if !ok || rerr.Error() != "boom" {
		t.Fatalf("response = %#v, want the nested error as a value", resp)
	}
	if f.count("fail") != 1 {
		t.Error("nested command should have run once")
	}

	if got := run(t, f, "recover"); got != "recovered" {
		t.Errorf("handler recovering from nested 404 returned %v", got)
	}
}

func TestExec_NestedFailuresAreErrors(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.exec.Qexec(ctx, "fail", nil); err == nil || err.Error() != "boom" {
		t.Errorf("Qexec(fail) error = %v", err)
	}
	if _, err := f.exec.Qexec(ctx, "nope", nil); !errors.IsNotFound(err) {
		t.Errorf("Qexec(nope) error = %v, want 404", err)
	}
	if _, err := f.exec.Qexec(ctx, "math add 2", nil); errors.CodeOf(err) != errors.CodeUsage {
		t.Errorf("Qexec usage failure code = %d", errors.CodeOf(err))
	}
}

func TestExec_SemicolonFanOut(t *testing.T) {
	f := newFixture(t, true)

	resp := run(t, f, "fail ; echo second")
	want := response.Mixed{"boom", "second"}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("fan-out mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"fail", "echo"}, f.order); diff != "" {
		t.Errorf("segment order mismatch (-want +got):\n%s", diff)
	}

	completes := f.rec.completes()
	if len(completes) != 3 {
		t.Fatalf("got %d completes, want 2 segments plus the composite", len(completes))
	}
	composite := completes[2]
	for _, c := range completes[:2] {
		if c.ParentUUID != composite.ExecUUID || c.Type != command.Nested {
			t.Errorf("segment %q should be nested under the composite", c.Command)
		}
	}

	entries := f.tabs.Current().History().Entries()
	if len(entries) != 1 || entries[0].Line != "fail ; echo second" {
		t.Errorf("history = %+v, want the composite line once", entries)
	}
}

func TestExec_QuotedSemicolonIsNotSplit(t *testing.T) {
	f := newFixture(t, true)
	if got := run(t, f, `echo "a;b"`); got != "a;b" {
		t.Errorf("response = %v", got)
	}
}

func TestExec_NotFound(t *testing.T) {
	f := newFixture(t, true)
	resp := run(t, f, "no such command")
	if !errors.IsNotFound(resp.(error)) {
		t.Fatalf("response = %v, want 404", resp)
	}
	if len(f.rec.starts()) != 1 || len(f.rec.completes()) != 1 {
		t.Error("not-found should still publish a start/complete pair")
	}
}

func TestExec_RequiresLocal(t *testing.T) {
	f := newFixture(t, false)
	resp := run(t, f, "local")
	if errors.CodeOf(resp.(error)) != errors.CodeNotAcceptable {
		t.Fatalf("response = %v, want 406", resp)
	}
	if f.count("local") != 0 {
		t.Error("handler must not run without local access")
	}
}

func TestExec_UsageError(t *testing.T) {
	f := newFixture(t, true)

	resp := run(t, f, "math add 2 x")
	var uerr *usage.Error
	if !errors.As(resp.(error), &uerr) || uerr.Model.Command != "math add" {
		t.Fatalf("response = %v, want usage error with model", resp)
	}
	if f.count("add") != 0 {
		t.Error("handler must not run when usage fails")
	}

	help := run(t, f, "math add --help")
	if !errors.As(help.(error), &uerr) || !uerr.Requested() {
		t.Errorf("--help response = %v", help)
	}
}

func TestExec_History(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	run(t, f, "echo one")
	run(t, f, "echo two -q")
	f.exec.Exec(ctx, "echo three", &command.ExecOptions{NoHistory: true})
	f.exec.Qexec(ctx, "echo four", nil)
	f.exec.Pexec(ctx, "echo five", nil)
	run(t, f, "outer")

	var lines []string
	for _, e := range f.tabs.Current().History().Entries() {
		lines = append(lines, e.Line)
	}
	if diff := cmp.Diff([]string{"echo one", "echo five", "outer"}, lines); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	completes := f.rec.completes()
	if completes[0].HistoryIdx != 0 {
		t.Errorf("first complete HistoryIdx = %d", completes[0].HistoryIdx)
	}
}

func TestExec_PanicIsContained(t *testing.T) {
	f := newFixture(t, true)
	resp := run(t, f, "panic")
	if errors.CodeOf(resp.(error)) != errors.CodeInternal {
		t.Errorf("response = %v, want 500", resp)
	}
	if _, err := f.exec.Qexec(context.Background(), "panic", nil); err == nil {
		t.Error("nested panic should surface as an error")
	}
}

func TestExec_NilResponseIsTrue(t *testing.T) {
	f := newFixture(t, true)
	if got := run(t, f, "nothing"); got != true {
		t.Errorf("response = %v, want true", got)
	}
}

func TestExec_ViewTransformer(t *testing.T) {
	f := newFixture(t, true)

	if got := run(t, f, "upper abc"); got != "ABC" {
		t.Errorf("top-level = %v, want ABC", got)
	}
	if got := run(t, f, "wrap abc"); got != "abc" {
		t.Errorf("nested call should skip the transformer, got %v", got)
	}
	got := run(t, f, "badview")
	if err, ok := got.(error); !ok || err.Error() != "cannot render" {
		t.Errorf("failing transformer response = %v", got)
	}
}

func TestExec_SymbolTable(t *testing.T) {
	f := newFixture(t, true)
	f.tabs.Current().SetVar("NS", "kube-system")
	if got := run(t, f, "env"); got != "kube-system" {
		t.Errorf("env = %v", got)
	}
}

func TestExec_Stream(t *testing.T) {
	f := newFixture(t, true)

	var chunks []any
	f.exec.Bus().Subscribe(event.TypeStdoutPrefix+"*", func(e event.Event) {
		chunks = append(chunks, e.(event.StdoutEvent).Chunk)
	})
	run(t, f, "stream")

	if diff := cmp.Diff([]any{"one", "two"}, chunks); diff != "" {
		t.Errorf("streamed chunks mismatch (-want +got):\n%s", diff)
	}

	var custom []any
	opts := &command.ExecOptions{CreateOutputStream: func() command.Stream {
		return func(chunk any) error {
			custom = append(custom, chunk)
			return nil
		}
	}}
	f.exec.Exec(context.Background(), "stream", opts)
	if len(custom) != 2 {
		t.Errorf("custom stream got %v", custom)
	}
}

func TestExec_Rexec(t *testing.T) {
	f := newFixture(t, true)
	resp, err := f.exec.Rexec(context.Background(), "upper abc", nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, ok := resp.(*response.Raw)
	if !ok || raw.Mode != "raw" || raw.Content != "abc" {
		t.Errorf("Rexec = %#v", resp)
	}
}

func TestExec_ReplayKeepsExecUUID(t *testing.T) {
	f := newFixture(t, true)
	f.exec.Exec(context.Background(), "echo x", &command.ExecOptions{ExecUUID: "fixed"})
	if id := f.rec.completes()[0].ExecUUID; id != "fixed" {
		t.Errorf("ExecUUID = %q", id)
	}
}

func TestExec_ConcurrentTabs(t *testing.T) {
	f := newFixture(t, true)
	tabs := []*tab.Tab{f.tabs.Current(), f.tabs.Open()}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tb := tabs[i%2]
			resp, err := f.exec.Exec(context.Background(), "math add 1 "+strconv.Itoa(i), &command.ExecOptions{Tab: tb})
			if err != nil || resp != int64(1+i) {
				t.Errorf("exec %d = %v, %v", i, resp, err)
			}
		}(i)
	}
	wg.Wait()

	if n := tabs[0].History().Len() + tabs[1].History().Len(); n != 20 {
		t.Errorf("history entries = %d, want 20", n)
	}
	if len(f.rec.starts()) != 20 || len(f.rec.completes()) != 20 {
		t.Error("every invocation should publish one start and one complete")
	}
}
