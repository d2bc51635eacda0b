package shell

import (
	"context"
	"strings"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/response"
	"github.com/quocvuong92/kshell/internal/usage"
)

// registerPolicy adds the commands that inspect and adjust the policy
// gating sh and the pass-through. Rules added here last for the session.
func (p *Plugin) registerPolicy(r plugins.Registrar) error {
	if _, err := plugins.Subtree(r, "/policy", "Inspect and adjust the shell command policy"); err != nil {
		return err
	}

	pattern := []usage.Row{{Name: "pattern", Docs: "exact line, prefix, glob or tool:args pattern such as git:*"}}
	commands := []struct {
		route string
		h     command.Handler
		opts  *command.Options
	}{
		{"/policy/show", p.policyShow, &command.Options{
			Docs:  "Show allow and deny rules",
			Usage: &usage.Model{Command: "policy show", Strict: true},
		}},
		{"/policy/allow", p.policyRule(false), &command.Options{
			Docs:  "Allow lines matching a pattern without confirmation",
			Usage: &usage.Model{Command: "policy allow", Example: "policy allow git:*", Required: pattern},
		}},
		{"/policy/deny", p.policyRule(true), &command.Options{
			Docs:  "Block lines matching a pattern; deny rules win over allow rules",
			Usage: &usage.Model{Command: "policy deny", Example: `policy deny "rm -rf*"`, Required: pattern},
		}},
		{"/policy/dangerous", p.policyDangerous, &command.Options{
			Docs: "Let dangerous lines through to confirmation",
			Usage: &usage.Model{
				Command:  "policy dangerous",
				Strict:   true,
				Required: []usage.Row{{Name: "state", AllowedValues: []string{"on", "off"}}},
			},
		}},
		{"/policy/clear-session", p.policyClearSession, &command.Options{
			Docs:  "Forget lines approved for this session",
			Usage: &usage.Model{Command: "policy clear-session", Strict: true},
		}},
	}
	for _, c := range commands {
		if _, err := r.Listen(c.route, c.h, c.opts); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) policyShow(ctx context.Context, args *command.Arguments) (any, error) {
	allow, deny := p.opts.Policy.Rules()
	state := "disabled"
	if p.opts.Policy.DangerousEnabled() {
		state = "enabled"
	}

	t := &response.Table{Title: "Dangerous commands: " + state, Header: []string{"RULE", "PATTERN"}}
	for _, pat := range deny {
		t.Rows = append(t.Rows, []string{"deny", pat})
	}
	for _, pat := range allow {
		t.Rows = append(t.Rows, []string{"allow", pat})
	}
	return t, nil
}

func (p *Plugin) policyRule(deny bool) command.Handler {
	return func(ctx context.Context, args *command.Arguments) (any, error) {
		pat := strings.Join(args.Rest(), " ")
		p.opts.Policy.AddRule(pat, deny)
		if deny {
			return "Deny rule added: " + pat, nil
		}
		return "Allow rule added: " + pat, nil
	}
}

func (p *Plugin) policyDangerous(ctx context.Context, args *command.Arguments) (any, error) {
	enabled := args.Rest()[0] == "on"
	p.opts.Policy.SetDangerousEnabled(enabled)
	if enabled {
		return "Dangerous commands enabled (with confirmation)", nil
	}
	return "Dangerous commands disabled", nil
}

func (p *Plugin) policyClearSession(ctx context.Context, args *command.Arguments) (any, error) {
	p.opts.Policy.ClearSession()
	return "Session allowlist cleared", nil
}
