package tree

import (
	"strings"

	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/options"
)

// Tier identifies which fallback resolved a command line.
type Tier int

const (
	// TierBinary strips each flag together with the token after it
	TierBinary Tier = iota + 1
	// TierUnary strips only the flag tokens
	TierUnary
	// TierCatchall repeats TierBinary with catch-alls allowed
	TierCatchall
)

// Resolve maps a tokenized command line to a command.
//
// The resolver does not know a command's flag schema until it has found the
// command, so it cannot tell whether the word after "-x" is the flag's value
// or the next command word. It therefore tries, in order:
//
//  1. flags as binary: drop every flag and the token following it
//  2. flags as unary: drop only the flags
//  3. the tier 1 vector again, now allowing catch-alls
//
// Narg counts play no part here; they are applied by the option parser once
// the command is known. A failure at every tier returns a 404 coded error.
func (t *Tree) Resolve(argv []string) (*Resolution, Tier, error) {
	binary := StripBinary(argv)
	if r, ok := t.Read(binary, false); ok {
		return r, TierBinary, nil
	}
	if r, ok := t.Read(StripUnary(argv), false); ok {
		return r, TierUnary, nil
	}
	if r, ok := t.Read(binary, true); ok {
		return r, TierCatchall, nil
	}
	t.log.Debug("no command matched", logging.Fields{"argv": argv})
	return nil, 0, errors.NotFound()
}

// StripBinary removes flag tokens and the token following each flag. An
// inline value ("--x=v") consumes nothing further, and everything after "--"
// is kept.
func StripBinary(argv []string) []string {
	out := make([]string, 0, len(argv))
	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if tok == "--" {
			return append(out, argv[i+1:]...)
		}
		if !options.IsFlag(tok) {
			out = append(out, tok)
			continue
		}
		if !strings.Contains(tok, "=") && i+1 < len(argv) && !options.IsFlag(argv[i+1]) && argv[i+1] != "--" {
			i++
		}
	}
	return out
}

// StripUnary removes flag tokens only.
func StripUnary(argv []string) []string {
	out := make([]string, 0, len(argv))
	for i, tok := range argv {
		if tok == "--" {
			return append(out, argv[i+1:]...)
		}
		if !options.IsFlag(tok) {
			out = append(out, tok)
		}
	}
	return out
}
