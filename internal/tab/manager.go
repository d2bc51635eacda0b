package tab

import (
	"fmt"
	"sync"

	"github.com/quocvuong92/kshell/internal/logging"
)

// Manager owns the open tabs and tracks which one is current.
type Manager struct {
	mu      sync.Mutex
	tabs    []*Tab
	current int
	opts    Options
	log     *logging.FieldLogger
}

// NewManager creates a Manager with one open tab.
func NewManager(opts Options) *Manager {
	m := &Manager{opts: opts, log: logging.Named("tab")}
	m.tabs = []*Tab{New(opts)}
	return m
}

// Current returns the current tab, or nil once every tab is closed.
func (m *Manager) Current() *Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tabs) == 0 {
		return nil
	}
	return m.tabs[m.current]
}

// CurrentIndex returns the 1-based index of the current tab, or 0 once
// every tab is closed.
func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tabs) == 0 {
		return 0
	}
	return m.current + 1
}

// List returns the open tabs in order.
func (m *Manager) List() []*Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Tab(nil), m.tabs...)
}

// Open creates a tab, makes it current and returns it. The outgoing tab is
// captured first so the new tab starts from the same environment.
func (m *Manager) Open() *Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tabs) > 0 {
		m.tabs[m.current].Capture()
	}
	t := New(m.opts)
	m.tabs = append(m.tabs, t)
	m.current = len(m.tabs) - 1
	m.log.Debug("opened tab", logging.Fields{"tab": t.UUID(), "index": m.current + 1})
	return t
}

// Switch captures the current tab and restores the tab at the 1-based index.
func (m *Manager) Switch(index int) (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 1 || index > len(m.tabs) {
		return nil, fmt.Errorf("no tab at index %d", index)
	}
	m.tabs[m.current].Capture()
	m.current = index - 1
	t := m.tabs[m.current]
	if err := t.Restore(); err != nil {
		return t, err
	}
	return t, nil
}

// Close closes the tab at the 1-based index, aborting its jobs. It returns
// the number of tabs still open; when that is zero the caller should exit.
func (m *Manager) Close(index int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 1 || index > len(m.tabs) {
		return len(m.tabs), fmt.Errorf("no tab at index %d", index)
	}
	i := index - 1
	m.tabs[i].Close()
	m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
	if len(m.tabs) == 0 {
		m.current = 0
		return 0, nil
	}

	wasCurrent := i == m.current
	if m.current >= i && m.current > 0 {
		m.current--
	}
	if wasCurrent {
		if err := m.tabs[m.current].Restore(); err != nil {
			return len(m.tabs), err
		}
	}
	return len(m.tabs), nil
}

// Index returns the 1-based index of t, or 0 if t is not open.
func (m *Manager) Index(t *Tab) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, open := range m.tabs {
		if open == t {
			return i + 1
		}
	}
	return 0
}
