package history

import (
	"sync"
	"time"

	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/logging"
)

// Entry is one recorded command line.
type Entry struct {
	Index int       `json:"index"`
	Line  string    `json:"line"`
	Time  time.Time `json:"time"`
}

// Log is a bounded, in-memory history. Indexes increase monotonically and
// survive eviction of older entries, so an index captured when a command
// started still identifies it later.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	max     int
	store   Store
	now     func() time.Time
}

// NewLog creates a Log retaining at most max entries. A non-positive max uses
// constants.DefaultHistorySize.
func NewLog(max int) *Log {
	if max <= 0 {
		max = constants.DefaultHistorySize
	}
	return &Log{max: max, now: time.Now}
}

// Persist mirrors future additions into store. Persistence failures are
// logged and never fail Add.
func (l *Log) Persist(store Store) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store = store
}

// Add appends line and returns its index.
func (l *Log) Add(line string) int {
	l.mu.Lock()
	idx := l.next
	l.next++
	l.entries = append(l.entries, Entry{Index: idx, Line: line, Time: l.now()})
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append([]Entry(nil), l.entries[over:]...)
	}
	store := l.store
	l.mu.Unlock()

	if store != nil {
		if _, err := store.AddCmd(line); err != nil {
			logging.Named("history").Warn("failed to persist command", logging.Fields{"error": err.Error()})
		}
	}
	return idx
}

// Entries returns a copy of all retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Last returns the most recent n entries, oldest first.
func (l *Log) Last(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return append([]Entry(nil), l.entries[len(l.entries)-n:]...)
}

// Get returns the entry with the given index, if still retained.
func (l *Log) Get(idx int) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Index == idx {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear removes all entries. Indexes keep increasing afterwards.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
