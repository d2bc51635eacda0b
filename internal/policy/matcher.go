package policy

import (
	"regexp"
	"strings"
)

// Match reports whether a command line matches a rule pattern. Patterns
// come in four shapes:
//   - exact: "ls -la"
//   - colon: "git:*" matches git with any arguments, "git:status" matches
//     git status with any further arguments
//   - glob: "npm run *", "*.sh"
//   - bare prefix: "ls" matches "ls" and "ls -la" but not "lsof"
//
// A pattern written as "sh(git:*)" is unwrapped to its inner pattern.
func Match(line, pattern string) bool {
	line = strings.TrimSpace(line)
	pattern = strings.TrimSpace(unwrap(pattern))
	if pattern == "" {
		return false
	}
	if pattern == line {
		return true
	}

	switch {
	case strings.Contains(pattern, ":"):
		return matchColon(line, pattern)
	case strings.Contains(pattern, "*"):
		return matchGlob(line, pattern)
	default:
		return strings.HasPrefix(line, pattern+" ")
	}
}

// MatchAny reports whether line matches any of the patterns.
func MatchAny(line string, patterns []string) bool {
	for _, p := range patterns {
		if Match(line, p) {
			return true
		}
	}
	return false
}

func unwrap(pattern string) string {
	open := strings.Index(pattern, "(")
	closing := strings.LastIndex(pattern, ")")
	if open > 0 && closing > open {
		return pattern[open+1 : closing]
	}
	return pattern
}

func matchColon(line, pattern string) bool {
	prefix, suffix, _ := strings.Cut(pattern, ":")
	if line != prefix && !strings.HasPrefix(line, prefix+" ") {
		return false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, prefix))

	if suffix == "*" {
		return true
	}
	if strings.Contains(suffix, "*") {
		return matchGlob(rest, suffix)
	}
	if fields := strings.Fields(rest); len(fields) > 0 && fields[0] == suffix {
		return true
	}
	return rest == suffix
}

func matchGlob(line, pattern string) bool {
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`) + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(line)
}
