package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/usage"
)

var exportUsage = &usage.Model{
	Command:  "export",
	Example:  "export NAMESPACE=default",
	Required: []usage.Row{{Name: "assignment", Docs: "NAME=VALUE"}},
}

func (p *Plugin) registerVars(r plugins.Registrar) error {
	if _, err := r.Listen("/export", p.export, &command.Options{
		Docs: "Set variables for commands run in this tab",
		Usage: exportUsage,
	}); err != nil {
		return err
	}
	if _, err := r.Listen("/unset", p.unset, &command.Options{
		Docs: "Remove variables set with export",
		Usage: &usage.Model{
			Command:  "unset",
			Required: []usage.Row{{Name: "name"}},
		},
	}); err != nil {
		return err
	}
	_, err := r.Listen("/env", env, &command.Options{
		Docs: "List exported variables",
		Usage: &usage.Model{
			Command:  "env",
			Strict:   true,
			Optional: []usage.Row{{Name: "--all", Alias: "-a", Boolean: true, Docs: "include the process environment"}},
		},
	})
	return err
}

func (p *Plugin) export(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, fmt.Errorf("export requires a tab")
	}
	for _, assignment := range args.Rest() {
		name, value, ok := strings.Cut(assignment, "=")
		if !ok || name == "" {
			return nil, &usage.Error{
				Model:   exportUsage,
				Message: fmt.Sprintf("Invalid assignment %q, expected NAME=VALUE", assignment),
			}
		}
		args.Tab.SetVar(name, value)
		p.publish(event.NewEnvUpdateEvent(args.Tab.UUID(), name, value, false))
	}
	return true, nil
}

func (p *Plugin) unset(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, fmt.Errorf("unset requires a tab")
	}
	for _, name := range args.Rest() {
		args.Tab.UnsetVar(name)
		p.publish(event.NewEnvUpdateEvent(args.Tab.UUID(), name, "", true))
	}
	return true, nil
}

func (p *Plugin) publish(e event.Event) {
	if p.opts.Bus != nil {
		p.opts.Bus.Publish(e)
	}
}

func env(ctx context.Context, args *command.Arguments) (any, error) {
	vars := map[string]string{}
	if args.Tab != nil {
		if args.Parsed.Bool("all") {
			maps.Copy(vars, args.Tab.Env())
		}
		maps.Copy(vars, args.Tab.Vars())
	}

	t := &response.Table{Header: []string{"NAME", "VALUE"}}
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		t.Rows = append(t.Rows, []string{name, vars[name]})
	}
	return t, nil
}
