// Package history records the command lines executed in each tab and
// optionally persists them across sessions.
package history

// Recorder defines the interface for a tab's command history.
// This interface enables dependency injection and easier testing.
type Recorder interface {
	// Add appends a command line and returns its index
	Add(line string) int

	// Entries returns a copy of all retained entries, oldest first
	Entries() []Entry

	// Last returns the most recent n entries, oldest first
	Last(n int) []Entry

	// Len returns the number of retained entries
	Len() int

	// Clear removes all entries
	Clear()
}

// Store defines the interface for persistent history backends.
type Store interface {
	// AddCmd persists a command line and returns its sequence number
	AddCmd(line string) (int, error)

	// Cmds returns persisted commands with sequence numbers in [from, upto)
	Cmds(from, upto int) ([]Entry, error)

	// NextSeq returns the sequence number the next AddCmd will use
	NextSeq() (int, error)

	// Clear removes every persisted command
	Clear() error

	// Close releases the backend
	Close() error
}

// Ensure concrete types implement the interfaces
var _ Recorder = (*Log)(nil)
var _ Store = (*BoltStore)(nil)
