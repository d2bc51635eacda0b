package display

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/quocvuong92/kshell/internal/policy"
)

// Confirmer returns a policy.Confirmer that asks on out and reads the
// answer from in: y for once, s for the session, anything else denies.
func Confirmer(in io.Reader, out io.Writer) policy.Confirmer {
	reader := bufio.NewReader(in)
	return func(line string, risk policy.RiskLevel, reason string) policy.Approval {
		fmt.Fprintf(out, "%s %s\n", warningStyle.Render(reason+":"), line)
		fmt.Fprint(out, Muted("Run it? [y]es / [s]ession / [N]o: "))

		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return policy.Denied
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return policy.Once
		case "s", "session":
			return policy.Session
		default:
			return policy.Denied
		}
	}
}
