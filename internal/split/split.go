// Package split turns command lines into argument vectors.
//
// Quoting follows the usual shell conventions: single and double quotes group
// whitespace into one token and are removed from the result, and a backslash
// escapes a following quote, backslash, semicolon, hash or whitespace. Any other
// backslash is kept literally so paths such as C:\tmp survive. An unbalanced
// quote never fails: the remainder of the line becomes part of the open token.
package split

import (
	"strings"
	"unicode"
)

// Split tokenizes a command line. Runs of unquoted whitespace separate
// tokens; a quoted empty string yields an empty token.
func Split(line string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		quoted  bool
		escaped bool
	)

	flush := func() {
		if cur.Len() > 0 || quoted {
			out = append(out, cur.String())
		}
		cur.Reset()
		quoted = false
	}

	runes := []rune(line)
	for i, r := range runes {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}

		if r == '\\' && quote != '\'' && i+1 < len(runes) && isEscapable(runes[i+1]) {
			escaped = true
			continue
		}

		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			quoted = true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return out
}

func isEscapable(r rune) bool {
	switch r {
	case '"', '\'', '\\', ';', '#':
		return true
	}
	return unicode.IsSpace(r)
}

// SemiSplit splits a command line on top-level (unquoted) semicolons. Each
// segment is trimmed and empty segments are dropped.
func SemiSplit(line string) []string {
	var out []string
	start := 0
	walkUnquoted(line, func(i int, r rune, quoted bool) bool {
		if r == ';' && !quoted {
			out = appendSegment(out, line[start:i])
			start = i + 1
		}
		return true
	})
	return appendSegment(out, line[start:])
}

func appendSegment(out []string, seg string) []string {
	if seg = strings.TrimSpace(seg); seg != "" {
		out = append(out, seg)
	}
	return out
}

// HasSemicolon reports whether line contains a top-level semicolon.
func HasSemicolon(line string) bool {
	found := false
	walkUnquoted(line, func(_ int, r rune, quoted bool) bool {
		if r == ';' && !quoted {
			found = true
			return false
		}
		return true
	})
	return found
}

// StripComments trims the line, normalizes a whitespace-free prefix comment
// ("#foo" becomes "# foo") and removes everything from the first unquoted
// '#' that starts the line or follows whitespace. A line holding only a
// comment strips to "".
func StripComments(line string) string {
	line = NormalizeComments(line)

	cut := -1
	prevSpace := true
	walkUnquoted(line, func(i int, r rune, quoted bool) bool {
		if r == '#' && prevSpace && !quoted {
			cut = i
			return false
		}
		prevSpace = !quoted && unicode.IsSpace(r)
		return true
	})
	if cut >= 0 {
		line = line[:cut]
	}
	return strings.TrimSpace(line)
}

// NormalizeComments trims the line and inserts a space after a leading '#'
// that is immediately followed by text.
func NormalizeComments(line string) string {
	line = strings.TrimSpace(line)
	if len(line) > 1 && line[0] == '#' && line[1] != ' ' && line[1] != '#' {
		return "# " + line[1:]
	}
	return line
}

// walkUnquoted calls fn for every rune with its byte offset. quoted is true
// for quote characters, escaped characters, and anything inside quotes. fn
// returns false to stop the walk.
func walkUnquoted(line string, fn func(i int, r rune, quoted bool) bool) {
	var quote rune
	escaped := false
	for i, r := range line {
		quoted := true
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'' && i+1 < len(line) && isEscapable(rune(line[i+1])):
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		default:
			quoted = false
		}
		if !fn(i, r, quoted) {
			return
		}
	}
}

// EncodeComponent quotes s so that Split yields it back as a single token.
func EncodeComponent(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\n\"'\\;#") {
		return s
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}

// Join encodes each component and joins them with single spaces.
func Join(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = EncodeComponent(a)
	}
	return strings.Join(parts, " ")
}
