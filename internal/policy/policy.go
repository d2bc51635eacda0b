// Package policy decides whether a shell command line may run on the local
// machine. A line is first checked against deny and allow patterns, then
// classified by risk.
package policy

import (
	"sync"

	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/logging"
)

// Approval is the answer to a confirmation request.
type Approval int

const (
	// Denied refuses the command
	Denied Approval = iota
	// Once allows this execution only
	Once
	// Session allows the exact line until the policy is discarded
	Session
)

// Confirmer asks the user whether a command may run. A nil Confirmer
// approves everything that is not blocked outright.
type Confirmer func(line string, risk RiskLevel, reason string) Approval

// Config holds the rules a Policy starts from.
type Config struct {
	Allow []string
	Deny  []string
	// DangerousEnabled lets Dangerous lines through to confirmation
	DangerousEnabled bool
	// AutoAllowSafe skips confirmation for Safe lines
	AutoAllowSafe bool
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed      bool
	NeedsConfirm bool
	Risk         RiskLevel
	Reason       string
}

// Policy checks command lines against rules. It is safe for concurrent use.
type Policy struct {
	mu      sync.RWMutex
	cfg     Config
	session map[string]bool
	log     *logging.FieldLogger
}

// New creates a Policy.
func New(cfg Config) *Policy {
	return &Policy{
		cfg:     cfg,
		session: make(map[string]bool),
		log:     logging.Named("policy"),
	}
}

// Check evaluates line without asking anyone.
func (p *Policy) Check(line string) Decision {
	p.mu.RLock()
	defer p.mu.RUnlock()

	risk := Classify(line)
	switch {
	case MatchAny(line, p.cfg.Deny):
		return Decision{Risk: risk, Reason: "Command blocked by deny rule"}
	case p.session[line]:
		return Decision{Allowed: true, Risk: risk, Reason: "Allowed for this session"}
	case MatchAny(line, p.cfg.Allow):
		return Decision{Allowed: true, Risk: risk, Reason: "Allowed by rule"}
	}

	switch risk {
	case Safe:
		if p.cfg.AutoAllowSafe {
			return Decision{Allowed: true, Risk: risk, Reason: risk.Description()}
		}
		return Decision{NeedsConfirm: true, Risk: risk, Reason: "Confirmation required"}
	case Dangerous:
		if p.cfg.DangerousEnabled {
			return Decision{NeedsConfirm: true, Risk: risk, Reason: "Dangerous command (requires explicit confirmation)"}
		}
		return Decision{Risk: risk, Reason: "Dangerous command blocked"}
	default:
		return Decision{NeedsConfirm: true, Risk: risk, Reason: risk.Description()}
	}
}

// Authorize returns nil if line may run, asking confirm when the decision
// needs it, and a 403 error otherwise.
func (p *Policy) Authorize(line string, confirm Confirmer) error {
	d := p.Check(line)
	if d.Allowed {
		return nil
	}
	if !d.NeedsConfirm {
		p.log.Info("command blocked", logging.Fields{"line": line, "risk": d.Risk.String()})
		return errors.Forbidden(d.Reason)
	}
	if confirm == nil {
		return nil
	}

	switch confirm(line, d.Risk, d.Reason) {
	case Once:
		return nil
	case Session:
		p.AllowForSession(line)
		return nil
	default:
		return errors.Forbidden("Command denied by user")
	}
}

// AllowForSession allows the exact line from now on.
func (p *Policy) AllowForSession(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session[line] = true
}

// SetDangerousEnabled toggles whether Dangerous lines may be confirmed.
func (p *Policy) SetDangerousEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.DangerousEnabled = enabled
}

// AddRule appends an allow or deny pattern.
func (p *Policy) AddRule(pattern string, deny bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if deny {
		p.cfg.Deny = append(p.cfg.Deny, pattern)
	} else {
		p.cfg.Allow = append(p.cfg.Allow, pattern)
	}
}

// Rules returns copies of the allow and deny patterns.
func (p *Policy) Rules() (allow, deny []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.cfg.Allow...), append([]string(nil), p.cfg.Deny...)
}

// ClearSession forgets every line allowed for the session.
func (p *Policy) ClearSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.session)
}

// DangerousEnabled reports whether Dangerous lines may be confirmed.
func (p *Policy) DangerousEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.DangerousEnabled
}
