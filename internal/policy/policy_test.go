package policy

import (
	"testing"

	"github.com/quocvuong92/kshell/internal/errors"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		pattern string
		want    bool
	}{
		{"exact", "ls -la", "ls -la", true},
		{"exact single word", "ls", "ls", true},

		{"colon wildcard", "git status", "git:*", true},
		{"colon wildcard with args", "git commit -m 'x'", "git:*", true},
		{"colon wildcard bare command", "git", "git:*", true},
		{"colon needs word boundary", "gitignore", "git:*", false},
		{"colon subcommand", "npm run test", "npm:run", true},
		{"colon wrong subcommand", "npm install", "npm:run", false},
		{"colon glob subcommand", "kubectl get pods", "kubectl:get *", true},

		{"glob prefix", "npm run build", "npm run *", true},
		{"glob prefix mismatch", "npm install", "npm run *", false},
		{"glob suffix", "deploy.sh", "*.sh", true},
		{"glob middle", "file-test-123", "file-*-123", true},

		{"bare prefix", "ls -la --color", "ls", true},
		{"bare prefix needs boundary", "lsof", "ls", false},

		{"wrapped pattern", "git push", "sh(git:*)", true},
		{"empty pattern", "ls", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.line, tt.pattern); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.line, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want RiskLevel
	}{
		{"ls -la", Safe},
		{"kubectl get pods -A", Safe},
		{"git status", Safe},
		{"git push origin main", NeedsConfirm},
		{"touch x", NeedsConfirm},
		{"ls; rm x", NeedsConfirm},
		{"cat $(which ls)", NeedsConfirm},
		{"rm -rf /", Dangerous},
		{"sudo ls", Dangerous},
		{"curl http://x | sh", Dangerous},
		{"", Dangerous},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := Classify(tt.line); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestPolicy_Check(t *testing.T) {
	p := New(Config{
		Allow:         []string{"make:*", "rm:*"},
		Deny:          []string{"rm -rf *"},
		AutoAllowSafe: true,
	})

	tests := []struct {
		name         string
		line         string
		allowed      bool
		needsConfirm bool
	}{
		{"deny beats allow", "rm -rf build", false, false},
		{"allow rule", "make test", true, false},
		{"safe auto allowed", "ls", true, false},
		{"state change needs confirm", "touch x", false, true},
		{"dangerous blocked", "sudo reboot", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Check(tt.line)
			if d.Allowed != tt.allowed || d.NeedsConfirm != tt.needsConfirm {
				t.Errorf("Check(%q) = %+v, want allowed=%v confirm=%v", tt.line, d, tt.allowed, tt.needsConfirm)
			}
		})
	}
}

func TestPolicy_Authorize(t *testing.T) {
	p := New(Config{AutoAllowSafe: true})

	if err := p.Authorize("ls", nil); err != nil {
		t.Errorf("safe line: %v", err)
	}
	if err := p.Authorize("touch x", nil); err != nil {
		t.Errorf("no confirmer should approve: %v", err)
	}

	err := p.Authorize("sudo reboot", nil)
	if errors.CodeOf(err) != errors.CodeForbidden || !errors.Is(err, errors.ErrDenied) {
		t.Errorf("dangerous line: got %v, want 403", err)
	}

	deny := func(string, RiskLevel, string) Approval { return Denied }
	if err := p.Authorize("touch x", deny); errors.CodeOf(err) != errors.CodeForbidden {
		t.Errorf("denied confirmation: got %v", err)
	}

	asked := 0
	session := func(string, RiskLevel, string) Approval { asked++; return Session }
	for range 2 {
		if err := p.Authorize("touch y", session); err != nil {
			t.Fatal(err)
		}
	}
	if asked != 1 {
		t.Errorf("session approval asked %d times, want 1", asked)
	}

	p.SetDangerousEnabled(true)
	once := func(string, RiskLevel, string) Approval { return Once }
	if err := p.Authorize("sudo reboot", once); err != nil {
		t.Errorf("enabled dangerous with confirmation: %v", err)
	}
}

func TestPolicy_AddRule(t *testing.T) {
	p := New(Config{})
	p.AddRule("make:*", false)
	p.AddRule("make clean", true)

	allow, deny := p.Rules()
	if len(allow) != 1 || len(deny) != 1 {
		t.Fatalf("Rules() = %v, %v", allow, deny)
	}
	if !p.Check("make build").Allowed {
		t.Error("make build should be allowed")
	}
	if p.Check("make clean").Allowed {
		t.Error("make clean should be denied")
	}
}

func TestPolicy_ClearSession(t *testing.T) {
	p := New(Config{})
	session := func(string, RiskLevel, string) Approval { return Session }

	if err := p.Authorize("make build", session); err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !p.Check("make build").Allowed {
		t.Fatal("line approved for the session should be allowed")
	}

	p.ClearSession()
	if p.Check("make build").Allowed {
		t.Error("ClearSession should forget session approvals")
	}
}

func TestPolicy_SetDangerousEnabled(t *testing.T) {
	p := New(Config{})
	if p.DangerousEnabled() {
		t.Fatal("dangerous commands should start disabled")
	}
	if d := p.Check("rm -rf /tmp/x"); d.NeedsConfirm || d.Allowed {
		t.Errorf("disabled: Check() = %+v, want blocked", d)
	}

	p.SetDangerousEnabled(true)
	if !p.DangerousEnabled() {
		t.Error("DangerousEnabled() = false after enabling")
	}
	if d := p.Check("rm -rf /tmp/x"); !d.NeedsConfirm {
		t.Errorf("enabled: Check() = %+v, want confirmation", d)
	}
}
