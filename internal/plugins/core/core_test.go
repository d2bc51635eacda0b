package core

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/history"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/plugins/math"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/testutil"
	"github.com/quocvuong92/kshell/internal/usage"
)

type harness struct {
	*testutil.Shell
	quits int
}

func newHarness(t *testing.T, store *history.BoltStore) *harness {
	t.Helper()
	h := &harness{}
	h.Shell = testutil.NewShell(t, testutil.Options{LocalAccess: true}, func(bus *event.Bus, tabs *tab.Manager) []plugins.Plugin {
		return []plugins.Plugin{
			New(Options{Tabs: tabs, Bus: bus, Store: store, Quit: func() { h.quits++ }}),
			math.New(),
		}
	})
	return h
}

func commandNames(m *usage.Model) []string {
	var names []string
	for _, e := range m.Available {
		names = append(names, e.Command)
	}
	return names
}

func TestHelp(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.Run(t, "help")
	uerr, ok := resp.(*usage.Error)
	if !ok {
		t.Fatalf("help = %#v, want usage listing", resp)
	}
	names := commandNames(uerr.Model)
	for _, want := range []string{"echo", "help", "math", "tab", "version", "?"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("listing %v missing %q", names, want)
		}
	}

	resp = h.Run(t, "help math add")
	if uerr, ok := resp.(*usage.Error); !ok || uerr.Model.Command != "math add" || !uerr.Requested() {
		t.Errorf("help math add = %#v", resp)
	}

	resp = h.Run(t, "? math add")
	if uerr, ok := resp.(*usage.Error); !ok || uerr.Model.Command != "math add" {
		t.Errorf("? math add = %#v", resp)
	}

	resp = h.Run(t, "help nope")
	if err, ok := resp.(error); !ok || !errors.IsNotFound(err) {
		t.Errorf("help nope = %#v, want 404", resp)
	}
}

func TestQuit(t *testing.T) {
	h := newHarness(t, nil)
	h.Run(t, "quit")
	h.Run(t, "exit")
	if h.quits != 2 {
		t.Errorf("quit hook called %d times, want 2", h.quits)
	}
}

func TestEchoAndVersion(t *testing.T) {
	h := newHarness(t, nil)
	if got := h.Run(t, `echo hello "big world"`); got != "hello big world" {
		t.Errorf("echo = %v", got)
	}
	if got := h.Run(t, "version"); got != constants.AppName+" "+constants.AppVersion {
		t.Errorf("version = %v", got)
	}
	if _, ok := h.Run(t, "version extra").(*usage.Error); !ok {
		t.Error("version should reject arguments")
	}
}

func TestExportUnsetEnv(t *testing.T) {
	h := newHarness(t, nil)

	var updates []event.EnvUpdateEvent
	h.Bus.Subscribe(event.TypeEnvUpdate, func(e event.Event) {
		updates = append(updates, e.(event.EnvUpdateEvent))
	})

	if got := h.Run(t, "export NS=kube-system REGION=eu"); got != true {
		t.Fatalf("export = %v", got)
	}
	cur := h.Tabs.Current()
	if v, _ := cur.Var("NS"); v != "kube-system" {
		t.Errorf("NS = %q", v)
	}
	if len(updates) != 2 || updates[0].Name != "NS" || updates[0].TabUUID != cur.UUID() {
		t.Errorf("updates = %+v", updates)
	}

	table := h.Run(t, "env").(*response.Table)
	want := [][]string{{"NS", "kube-system"}, {"REGION", "eu"}}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Errorf("env rows mismatch (-want +got):\n%s", diff)
	}

	all := h.Run(t, "env -a").(*response.Table)
	if len(all.Rows) != 3 {
		t.Errorf("env -a rows = %v, want HOME plus the two exports", all.Rows)
	}

	h.Run(t, "unset REGION")
	if _, ok := cur.Var("REGION"); ok {
		t.Error("REGION should be unset")
	}
	if last := updates[len(updates)-1]; !last.Unset || last.Name != "REGION" {
		t.Errorf("last update = %+v", last)
	}

	if _, ok := h.Run(t, "export NOEQUALS").(*usage.Error); !ok {
		t.Error("export without = should be a usage error")
	}
}

func TestHistory(t *testing.T) {
	store, err := history.OpenBoltStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	h := newHarness(t, store)
	h.Tabs.Current().History().Persist(store)

	h.Run(t, "echo one")
	h.Run(t, "echo two")

	table := h.Run(t, "history").(*response.Table)
	want := [][]string{{"0", "echo one"}, {"1", "echo two"}, {"2", "history"}}
	if diff := cmp.Diff(want, table.Rows); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	last := h.Run(t, "history 1").(*response.Table)
	if len(last.Rows) != 1 || last.Rows[0][1] != "history 1" {
		t.Errorf("history 1 = %v", last.Rows)
	}

	saved := h.Run(t, "history --saved").(*response.Table)
	if len(saved.Rows) != 5 || saved.Rows[0][1] != "echo one" {
		t.Errorf("saved history = %v", saved.Rows)
	}

	h.Run(t, "history -c")
	if n := h.Tabs.Current().History().Len(); n != 0 {
		t.Errorf("history length after clear = %d", n)
	}
	if lines, _ := store.Recent(10); len(lines) != 0 {
		t.Errorf("store after clear = %v", lines)
	}
}

func TestHistory_NotPersisted(t *testing.T) {
	h := newHarness(t, nil)
	if _, ok := h.Run(t, "history -s").(error); !ok {
		t.Error("--saved without a store should fail")
	}
}

func TestTabs(t *testing.T) {
	h := newHarness(t, nil)
	first := h.Tabs.Current()

	if got := h.Run(t, "tab new"); got != "Opened tab 2" {
		t.Fatalf("tab new = %v", got)
	}
	second := h.Tabs.Current()
	if second == first {
		t.Fatal("tab new should switch to the new tab")
	}

	h.Run(t, "export ONLY=second")
	if _, ok := first.Var("ONLY"); ok {
		t.Error("exports should be per tab")
	}

	list := h.Run(t, "tab list").(*response.Table)
	if len(list.Rows) != 2 || list.Rows[1][1] != "*" {
		t.Errorf("tab list = %v", list.Rows)
	}

	if got := h.Run(t, "tab switch 1"); got != "Switched to tab 1" || h.Tabs.Current() != first {
		t.Errorf("tab switch 1 = %v", got)
	}
	if _, ok := h.Run(t, "tab switch 9").(error); !ok {
		t.Error("switching to a missing tab should fail")
	}
	if _, ok := h.Run(t, "tab switch x").(*usage.Error); !ok {
		t.Error("non-numeric index should be a usage error")
	}

	if got := h.Run(t, "tab close 2"); got != "Closed tab 2" || !second.Closed() {
		t.Errorf("tab close 2 = %v", got)
	}
	if got := h.Run(t, "tab close"); got != "Closed the last tab" || h.quits != 1 {
		t.Errorf("closing the last tab = %v, quits = %d", got, h.quits)
	}
}

func TestTabListing(t *testing.T) {
	h := newHarness(t, nil)
	uerr, ok := h.Run(t, "tab").(*usage.Error)
	if !ok {
		t.Fatal("tab should list its subcommands")
	}
	want := []string{"tab close", "tab list", "tab new", "tab switch"}
	if diff := cmp.Diff(want, commandNames(uerr.Model)); diff != "" {
		t.Errorf("tab listing mismatch (-want +got):\n%s", diff)
	}
}
