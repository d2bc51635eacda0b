package shell

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"os/exec"
	"sort"
	"strings"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/options"
)

// ExitError reports a command line that exited with a non-zero status. Its
// code is the exit status.
type ExitError struct {
	Line   string
	Status int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Line, e.Status)
	if e.Stderr != "" {
		msg += "\n" + strings.TrimRight(e.Stderr, "\n")
	}
	return msg
}

// Code returns the exit status.
func (e *ExitError) Code() int { return e.Status }

var _ errors.Coder = (*ExitError)(nil)

func lookPath(name string) (string, error) { return exec.LookPath(name) }

// offer accepts command lines whose first word is an executable on PATH.
func (p *Plugin) offer(argv []string) bool {
	if len(argv) == 0 || options.IsFlag(argv[0]) {
		return false
	}
	_, err := p.opts.LookPath(argv[0])
	return err == nil
}

// sh runs the text after "sh" as typed. A single argument is taken as the
// whole script, so sh "a; b" runs both commands.
func (p *Plugin) sh(ctx context.Context, args *command.Arguments) (any, error) {
	if script := args.Argv[args.Depth:]; len(script) == 1 {
		return p.run(ctx, args, script[0])
	}
	return p.run(ctx, args, afterFirstWord(args.Command))
}

func (p *Plugin) passThrough(ctx context.Context, args *command.Arguments) (any, error) {
	return p.run(ctx, args, args.Command)
}

// afterFirstWord returns line without its first whitespace-separated word.
func afterFirstWord(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return strings.TrimSpace(line[i:])
	}
	return ""
}

// run passes line to the system shell in the tab's directory and
// environment. Standard output is streamed line by line; nested callers
// get the collected output as the response instead.
func (p *Plugin) run(ctx context.Context, args *command.Arguments, line string) (any, error) {
	if line == "" {
		return nil, fmt.Errorf("no command given")
	}
	if err := p.opts.Policy.Authorize(line, p.opts.Confirm); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, p.opts.Shell, "-c", line)
	env := map[string]string{}
	if args.Tab != nil {
		cmd.Dir = args.Tab.Cwd()
		env = args.Tab.Env()
	}
	if args.ExecOptions != nil {
		maps.Copy(env, args.ExecOptions.Env)
	}
	cmd.Env = environ(env)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to capture output: %w", err)
	}

	p.log.Debug("running", logging.Fields{"line": line, "dir": cmd.Dir})
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", line, err)
	}

	nested := args.ExecOptions != nil && args.ExecOptions.Type == command.Nested
	var collected strings.Builder
	var out command.Stream
	if !nested && args.CreateOutputStream != nil {
		out = args.CreateOutputStream()
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if out == nil {
			collected.WriteString(text)
			collected.WriteByte('\n')
			continue
		}
		if err := out(text); err != nil {
			p.log.Warn("output stream failed", logging.Fields{"error": err.Error()})
			out = nil
		}
	}

	if err := scanner.Err(); err != nil {
		p.log.Warn("stopped reading output", logging.Fields{"error": err.Error()})
		_, _ = io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Line: line, Status: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("failed to run %q: %w", line, err)
	}
	if stderr.Len() > 0 {
		p.log.Debug("stderr", logging.Fields{"line": line, "stderr": stderr.String()})
	}

	if nested || args.CreateOutputStream == nil {
		return strings.TrimRight(collected.String(), "\n"), nil
	}
	return true, nil
}

func environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
