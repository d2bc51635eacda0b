// Package display renders command responses, errors and progress on a
// terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/usage"
)

// Options configures a Printer.
type Options struct {
	Out io.Writer
	Err io.Writer
	// Markdown renders usage and help through glamour
	Markdown bool
	// Width is the word wrap width for markdown, 0 for the default
	Width int
}

// Printer writes responses to a terminal. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
	md  *glamour.TermRenderer
}

// NewPrinter creates a Printer. Markdown rendering is only enabled when
// requested and the output is a terminal.
func NewPrinter(opts Options) (*Printer, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Width <= 0 {
		opts.Width = 100
	}

	p := &Printer{out: opts.Out, err: opts.Err}
	if opts.Markdown && IsTerminal(opts.Out) {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(opts.Width))
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		p.md = r
	}
	return p, nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Response writes a command response.
func (p *Printer) Response(resp any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response(resp)
}

func (p *Printer) response(resp any) {
	switch v := resp.(type) {
	case nil:
	case bool:
		if v {
			fmt.Fprintln(p.out, okStyle.Render("ok"))
		}
	case *usage.Error:
		p.usage(v)
	case error:
		p.error(v)
	case string:
		if v != "" {
			fmt.Fprintln(p.out, strings.TrimRight(v, "\n"))
		}
	case *response.Table:
		fmt.Fprintln(p.out, RenderTable(v))
	case *response.MultiModalResponse:
		fmt.Fprintln(p.out, titleStyle.Render(v.Name))
		if mode, ok := v.Default(); ok {
			p.response(mode.Content)
		}
	case *response.NavResponse:
		for _, menu := range v.Menus {
			fmt.Fprintln(p.out, titleStyle.Render(menu.Label))
			for _, item := range menu.Items {
				p.response(item.Content)
			}
		}
	case *response.Raw:
		p.response(v.Content)
	case response.Mixed:
		for _, r := range v {
			p.response(r)
		}
	case fmt.Stringer:
		fmt.Fprintln(p.out, v.String())
	case int, int64, float64, uint, uint64:
		fmt.Fprintln(p.out, v)
	default:
		b, err := yaml.Marshal(v)
		if err != nil {
			fmt.Fprintf(p.out, "%v\n", v)
			return
		}
		fmt.Fprint(p.out, string(b))
	}
}

// Error writes an error in the error style.
func (p *Printer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.error(err)
}

func (p *Printer) error(err error) {
	var uerr *usage.Error
	if errors.As(err, &uerr) {
		p.usage(uerr)
		return
	}
	fmt.Fprintln(p.err, errorStyle.Render("Error: ")+err.Error())
}

// Warning writes a warning line.
func (p *Printer) Warning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.err, warningStyle.Render("Warning: ")+msg)
}

// usage writes a usage error: the message, if any, followed by the help
// text of the command.
func (p *Printer) usage(uerr *usage.Error) {
	if uerr.Message != "" {
		fmt.Fprintln(p.err, errorStyle.Render(uerr.Message))
	}
	if uerr.Model == nil {
		return
	}
	p.markdown(uerr.Model.Markdown())
}

// Markdown writes markdown, rendered when a renderer is configured.
func (p *Printer) Markdown(md string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markdown(md)
}

func (p *Printer) markdown(md string) {
	if p.md != nil {
		if out, err := p.md.Render(md); err == nil {
			fmt.Fprint(p.out, out)
			return
		}
	}
	fmt.Fprintln(p.out, strings.TrimRight(md, "\n"))
}

// Chunk writes one piece of streamed output.
func (p *Printer) Chunk(chunk any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch v := chunk.(type) {
	case string:
		fmt.Fprintln(p.out, v)
	case []byte:
		fmt.Fprintln(p.out, string(v))
	default:
		p.response(v)
	}
}

// Attach prints every chunk streamed on the bus and returns the
// subscription id.
func (p *Printer) Attach(bus *event.Bus) string {
	return bus.Subscribe(event.TypeStdoutPrefix+"*", func(e event.Event) {
		if s, ok := e.(event.StdoutEvent); ok {
			p.Chunk(s.Chunk)
		}
	})
}

// RenderTable lays out a table with a rounded border.
func RenderTable(t *response.Table) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(t.Header...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if t.Title == "" {
		return tbl.String()
	}
	return titleStyle.Render(t.Title) + "\n" + tbl.String()
}

// Muted renders s in the muted style.
func Muted(s string) string {
	return mutedStyle.Render(s)
}
