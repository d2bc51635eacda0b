package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/usage"
)

func (p *Plugin) registerHistory(r plugins.Registrar) error {
	_, err := r.Listen("/history", p.history, &command.Options{
		Docs: "List or clear command history",
		Usage: &usage.Model{
			Command: "history",
			Example: "history 10",
			Strict:  true,
			Optional: []usage.Row{
				{Name: "count", Numeric: true, Docs: "show only the last N entries"},
				{Name: "--clear", Alias: "-c", Boolean: true, Docs: "clear the history"},
				{Name: "--saved", Alias: "-s", Boolean: true, Docs: "read the persisted history of all sessions"},
			},
		},
	})
	return err
}

func (p *Plugin) history(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, fmt.Errorf("history requires a tab")
	}

	if args.Parsed.Bool("clear") {
		args.Tab.History().Clear()
		if p.opts.Store != nil {
			if err := p.opts.Store.Clear(); err != nil {
				return nil, fmt.Errorf("failed to clear saved history: %w", err)
			}
		}
		return true, nil
	}

	count := 0
	if rest := args.Rest(); len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid count %q", rest[0])
		}
		count = n
	}

	t := &response.Table{Header: []string{"INDEX", "COMMAND"}}
	if args.Parsed.Bool("saved") {
		if p.opts.Store == nil {
			return nil, fmt.Errorf("history is not persisted")
		}
		n := count
		if n == 0 {
			n = constants.DefaultHistorySize
		}
		lines, err := p.opts.Store.Recent(n)
		if err != nil {
			return nil, fmt.Errorf("failed to read saved history: %w", err)
		}
		for i, line := range lines {
			t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), line})
		}
		return t, nil
	}

	entries := args.Tab.History().Entries()
	if count > 0 {
		entries = args.Tab.History().Last(count)
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{strconv.Itoa(e.Index), e.Line})
	}
	return t, nil
}
