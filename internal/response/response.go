// Package response defines the values commands return and classifies them
// for event reporting. Presentation is left to the display package.
package response

import "fmt"

// Kind discriminates responses in completion events.
type Kind int

const (
	// Scalar covers strings, numbers, booleans, tables, errors and raw content
	Scalar Kind = iota
	// MultiModal responses offer several views of one resource
	MultiModal
	// Navigational responses carry menus of views
	Navigational
	// Incomplete marks a cancelled invocation with no response
	Incomplete
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Scalar:
		return "ScalarResponse"
	case MultiModal:
		return "MultiModalResponse"
	case Navigational:
		return "NavResponse"
	case Incomplete:
		return "Incomplete"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ScalarResponse":
		*k = Scalar
	case "MultiModalResponse":
		*k = MultiModal
	case "NavResponse":
		*k = Navigational
	case "Incomplete":
		*k = Incomplete
	default:
		return fmt.Errorf("unknown response kind %q", string(b))
	}
	return nil
}

// Table is a titled grid of cells.
type Table struct {
	Title  string     `json:"title,omitempty"`
	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows"`
}

// Mode is one view of a multi-modal response.
type Mode struct {
	Mode    string `json:"mode"`
	Label   string `json:"label,omitempty"`
	Content any    `json:"content"`
}

// MultiModalResponse presents one resource through several modes.
type MultiModalResponse struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Modes       []Mode `json:"modes"`
	DefaultMode string `json:"defaultMode,omitempty"`
}

// Default returns the mode to show first.
func (m *MultiModalResponse) Default() (Mode, bool) {
	for _, mode := range m.Modes {
		if mode.Mode == m.DefaultMode {
			return mode, true
		}
	}
	if len(m.Modes) > 0 {
		return m.Modes[0], true
	}
	return Mode{}, false
}

// Menu groups modes under a label.
type Menu struct {
	Label string `json:"label"`
	Items []Mode `json:"items"`
}

// NavResponse is a set of menus.
type NavResponse struct {
	Menus []Menu `json:"menus"`
}

// Raw wraps a response for callers that want content without presentation.
type Raw struct {
	Mode    string `json:"mode"`
	Content any    `json:"content"`
}

// Mixed is the ordered result of a semicolon-separated command line.
type Mixed []any

// KindOf classifies a response value.
func KindOf(v any) Kind {
	switch v.(type) {
	case *MultiModalResponse, MultiModalResponse:
		return MultiModal
	case *NavResponse, NavResponse:
		return Navigational
	default:
		return Scalar
	}
}
