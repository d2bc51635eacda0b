package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/tab"
	"github.com/quocvuong92/kshell/internal/usage"
)

func (p *Plugin) registerTabs(r plugins.Registrar) error {
	if _, err := plugins.Subtree(r, "/tab", "Manage tabs"); err != nil {
		return err
	}

	commands := []struct {
		route string
		h     command.Handler
		opts  *command.Options
	}{
		{"/tab/new", p.tabNew, &command.Options{Docs: "Open a new tab and switch to it"}},
		{"/tab/list", p.tabList, &command.Options{Docs: "List open tabs"}},
		{"/tab/switch", p.tabSwitch, &command.Options{
			Docs: "Switch to the tab at an index",
			Usage: &usage.Model{
				Command:  "tab switch",
				Example:  "tab switch 2",
				Strict:   true,
				Required: []usage.Row{{Name: "index", Numeric: true, Docs: "1-based tab index"}},
			},
		}},
		{"/tab/close", p.tabClose, &command.Options{
			Docs: "Close a tab, the current one by default",
			Usage: &usage.Model{
				Command:  "tab close",
				Strict:   true,
				Optional: []usage.Row{{Name: "index", Numeric: true, Docs: "1-based tab index"}},
			},
		}},
	}
	for _, c := range commands {
		if _, err := r.Listen(c.route, c.h, c.opts); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) manager() (*tab.Manager, error) {
	if p.opts.Tabs == nil {
		return nil, fmt.Errorf("tabs are not available")
	}
	return p.opts.Tabs, nil
}

func (p *Plugin) tabNew(ctx context.Context, args *command.Arguments) (any, error) {
	m, err := p.manager()
	if err != nil {
		return nil, err
	}
	t := m.Open()
	return fmt.Sprintf("Opened tab %d", m.Index(t)), nil
}

func (p *Plugin) tabSwitch(ctx context.Context, args *command.Arguments) (any, error) {
	m, err := p.manager()
	if err != nil {
		return nil, err
	}
	index, err := tabIndex(args.Rest()[0])
	if err != nil {
		return nil, err
	}
	if _, err := m.Switch(index); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Switched to tab %d", index), nil
}

func (p *Plugin) tabClose(ctx context.Context, args *command.Arguments) (any, error) {
	m, err := p.manager()
	if err != nil {
		return nil, err
	}

	index := m.Index(args.Tab)
	if rest := args.Rest(); len(rest) > 0 {
		if index, err = tabIndex(rest[0]); err != nil {
			return nil, err
		}
	}
	left, err := m.Close(index)
	if err != nil {
		return nil, err
	}
	if left == 0 {
		logging.Named("core").Debug("last tab closed")
		p.opts.Quit()
		return "Closed the last tab", nil
	}
	return fmt.Sprintf("Closed tab %d", index), nil
}

func (p *Plugin) tabList(ctx context.Context, args *command.Arguments) (any, error) {
	m, err := p.manager()
	if err != nil {
		return nil, err
	}

	current := m.CurrentIndex()
	t := &response.Table{Header: []string{"INDEX", "CURRENT", "CWD", "JOBS", "ID"}}
	for i, tb := range m.List() {
		mark := ""
		if i+1 == current {
			mark = "*"
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), mark, tb.Cwd(), strconv.Itoa(tb.JobCount()), tb.UUID()})
	}
	return t, nil
}

func tabIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("tab index must be an integer, got %q", s)
	}
	return n, nil
}
