package policy

import (
	"regexp"
	"slices"
	"strings"
)

// RiskLevel is how much damage a shell command line could do.
type RiskLevel int

const (
	// Safe commands only read state
	Safe RiskLevel = iota
	// NeedsConfirm commands may modify state
	NeedsConfirm
	// Dangerous commands are blocked unless explicitly enabled
	Dangerous
)

// String returns the level's name.
func (r RiskLevel) String() string {
	switch r {
	case Safe:
		return "safe"
	case NeedsConfirm:
		return "confirm"
	case Dangerous:
		return "dangerous"
	default:
		return "unknown"
	}
}

// Description returns a one-line explanation of the level.
func (r RiskLevel) Description() string {
	switch r {
	case Safe:
		return "Safe read-only command"
	case NeedsConfirm:
		return "Command may modify system state"
	case Dangerous:
		return "Potentially dangerous command"
	default:
		return "Unknown risk level"
	}
}

// readOnly commands never change state. curl and wget are left out since
// they can pull in or send out arbitrary content.
var readOnly = []string{
	"basename", "cat", "date", "df", "diff", "dig", "dirname", "du",
	"echo", "env", "file", "find", "grep", "head", "hostname", "id",
	"ls", "nslookup", "ping", "printenv", "ps", "pwd", "realpath",
	"sort", "stat", "tail", "traceroute", "tree", "uname", "uniq",
	"wc", "which", "whoami",
}

var readOnlySubcommands = []*regexp.Regexp{
	regexp.MustCompile(`^git\s+(status|log|diff|branch|show|remote)\b`),
	regexp.MustCompile(`^go\s+(list|version|env|doc)\b`),
	regexp.MustCompile(`^docker\s+(ps|images|inspect|logs)\b`),
	regexp.MustCompile(`^kubectl\s+(get|describe|logs|explain|api-resources)\b`),
	regexp.MustCompile(`^helm\s+(list|status|get|show)\b`),
	regexp.MustCompile(`^npm\s+(list|ls|view|info|outdated)\b`),
}

var destructive = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+(-[rf]*\s+)?/`),
	regexp.MustCompile(`rm\s+-rf\s+[~$]`),
	regexp.MustCompile(`\bsudo\b`),
	regexp.MustCompile(`\bsu\b`),
	regexp.MustCompile(`dd\s+if=`),
	regexp.MustCompile(`mkfs`),
	regexp.MustCompile(`:\(\)\s*\{`),
	regexp.MustCompile(`(curl|wget).*\|\s*(sh|bash|zsh)`),
	regexp.MustCompile(`>\s*/dev/sd`),
	regexp.MustCompile(`>\s*/etc/`),
	regexp.MustCompile(`chmod.*777`),
	regexp.MustCompile(`chown.*-R\s+`),
	regexp.MustCompile(`\b(eval|exec|source)\b`),
	regexp.MustCompile(`\|.*base64.*-d`),
	regexp.MustCompile(`(python\d?.*-c.*exec|perl.*-e|ruby.*-e)`),
}

// chaining matches operators that join several commands into one line
var chaining = regexp.MustCompile(`[;&|]{1,2}|\$\(|` + "`")

// Classify returns the risk level of a shell command line. Destructive
// patterns win over everything; any chaining makes a line at least
// NeedsConfirm since the parts are not classified separately.
func Classify(line string) RiskLevel {
	line = strings.TrimSpace(line)
	if line == "" {
		return Dangerous
	}

	for _, re := range destructive {
		if re.MatchString(line) {
			return Dangerous
		}
	}
	if chaining.MatchString(line) {
		return NeedsConfirm
	}

	name := strings.Fields(line)[0]
	if slices.Contains(readOnly, name) {
		return Safe
	}
	for _, re := range readOnlySubcommands {
		if re.MatchString(line) {
			return Safe
		}
	}
	return NeedsConfirm
}
