package history

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lines(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Line
	}
	return out
}

func TestLog_AddAndBound(t *testing.T) {
	l := NewLog(3)
	for i, line := range []string{"a", "b", "c", "d"} {
		if idx := l.Add(line); idx != i {
			t.Errorf("Add(%q) = %d, want %d", line, idx, i)
		}
	}

	if diff := cmp.Diff([]string{"b", "c", "d"}, lines(l.Entries())); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "d"}, lines(l.Last(2))); diff != "" {
		t.Errorf("Last(2) mismatch (-want +got):\n%s", diff)
	}
	if _, ok := l.Get(0); ok {
		t.Error("evicted entry should not be found")
	}
	if e, ok := l.Get(3); !ok || e.Line != "d" {
		t.Errorf("Get(3) = %+v, %v", e, ok)
	}
}

func TestLog_ClearKeepsIndexing(t *testing.T) {
	l := NewLog(0)
	l.Add("x")
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("Len() = %d after Clear", l.Len())
	}
	if idx := l.Add("y"); idx != 1 {
		t.Errorf("index after Clear = %d, want 1", idx)
	}
}

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "sub", "history.db"))
	if err != nil {
		t.Fatalf("OpenBoltStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore(t *testing.T) {
	s := openTestStore(t)

	if seq, err := s.NextSeq(); err != nil || seq != 1 {
		t.Fatalf("NextSeq() = %d, %v", seq, err)
	}
	for _, line := range []string{"echo a", "math add 2 3", "history"} {
		if _, err := s.AddCmd(line); err != nil {
			t.Fatalf("AddCmd(%q) error = %v", line, err)
		}
	}

	cmds, err := s.Cmds(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"math add 2 3", "history"}, lines(cmds)); diff != "" {
		t.Errorf("Cmds(2, 4) mismatch (-want +got):\n%s", diff)
	}

	recent, err := s.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"math add 2 3", "history"}, recent); diff != "" {
		t.Errorf("Recent(2) mismatch (-want +got):\n%s", diff)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if recent, _ := s.Recent(10); len(recent) != 0 {
		t.Errorf("Recent after Clear = %v", recent)
	}
}

func TestLog_Persist(t *testing.T) {
	s := openTestStore(t)
	l := NewLog(10)
	l.Persist(s)
	l.Add("echo persisted")

	recent, err := s.Recent(1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"echo persisted"}, recent); diff != "" {
		t.Errorf("persisted mismatch (-want +got):\n%s", diff)
	}
}
