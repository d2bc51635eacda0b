// Package options separates positional arguments from named flags.
//
// Parsing is driven by a Schema that names boolean flags, flags taking a
// fixed number of following values (narg), and aliases. Flag names are used
// literally: there is no camel-case expansion, so --dry-run is stored under
// "dry-run". Unknown flags are not rejected here; they are kept as string
// values (or true when no value follows) and left to usage enforcement.
package options

import (
	"strconv"
	"strings"
)

// Schema declares how flags consume arguments. Names are unflagged: "verbose",
// not "--verbose".
type Schema struct {
	// Boolean flags never consume a following token
	Boolean []string
	// Alias maps an alternate name (usually a short form) to its canonical name
	Alias map[string]string
	// Narg maps a flag to the number of tokens it consumes
	Narg map[string]int
}

// Merge overlays the given schemas, later ones winning on conflicts.
func Merge(schemas ...Schema) Schema {
	out := Schema{Alias: map[string]string{}, Narg: map[string]int{}}
	seen := map[string]bool{}
	for _, s := range schemas {
		for _, b := range s.Boolean {
			if !seen[b] {
				seen[b] = true
				out.Boolean = append(out.Boolean, b)
			}
		}
		for k, v := range s.Alias {
			out.Alias[k] = v
		}
		for k, v := range s.Narg {
			out.Narg[k] = v
		}
	}
	return out
}

// Canonical resolves an alias to its canonical flag name.
func (s Schema) Canonical(name string) string {
	if c, ok := s.Alias[name]; ok && c != "" {
		return c
	}
	return name
}

// IsBoolean reports whether name (or the flag it aliases) is boolean.
func (s Schema) IsBoolean(name string) bool {
	c := s.Canonical(name)
	for _, b := range s.Boolean {
		if b == c || b == name || s.Canonical(b) == c {
			return true
		}
	}
	return false
}

// NargOf returns the declared value count of name, or 0 if undeclared.
func (s Schema) NargOf(name string) int {
	if n, ok := s.Narg[name]; ok {
		return n
	}
	return s.Narg[s.Canonical(name)]
}

// aliasesOf returns every alternate name that maps to canonical.
func (s Schema) aliasesOf(canonical string) []string {
	var out []string
	for alias, c := range s.Alias {
		if c == canonical && alias != canonical {
			out = append(out, alias)
		}
	}
	return out
}

// Parsed is the result of option parsing.
type Parsed struct {
	// Positionals holds every non-flag token in original order. Index 0 is
	// conventionally the command name.
	Positionals []string
	// Options maps flag names to bool, string, or []string values. A value is
	// stored under its canonical name and mirrored under each alias.
	Options map[string]any
}

// Has reports whether the flag was given.
func (p Parsed) Has(name string) bool {
	_, ok := p.Options[name]
	return ok
}

// Bool returns the flag as a boolean. String values "false" and "0" are false.
func (p Parsed) Bool(name string) bool {
	switch v := p.Options[name].(type) {
	case bool:
		return v
	case string:
		return v != "false" && v != "0"
	case []string:
		return len(v) > 0
	default:
		return false
	}
}

// String returns the flag as a string, using the last value for repeated flags.
func (p Parsed) String(name string) (string, bool) {
	switch v := p.Options[name].(type) {
	case string:
		return v, true
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return v[len(v)-1], true
	default:
		return "", false
	}
}

// Strings returns the flag as a slice of values.
func (p Parsed) Strings(name string) []string {
	switch v := p.Options[name].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	default:
		return nil
	}
}

// Parse separates argv into positionals and options according to schema.
//
// A token of the form --name or -n names a flag. "--name=value" assigns
// inline. A boolean flag takes no value and --no-name negates it. A narg
// flag consumes the next N tokens (a single string when N is 1, a slice
// otherwise). Any other flag takes the next token as its value unless that
// token is itself a flag, in which case it is true. Grouped short flags
// (-abc) set each letter, with the last letter taking a value when it is not
// boolean. A bare "--" ends flag processing. Negative numbers are positionals.
func Parse(argv []string, schema Schema) Parsed {
	p := Parsed{Positionals: []string{}, Options: map[string]any{}}

	for i := 0; i < len(argv); i++ {
		tok := argv[i]

		if tok == "--" {
			p.Positionals = append(p.Positionals, argv[i+1:]...)
			break
		}
		if !IsFlag(tok) {
			p.Positionals = append(p.Positionals, tok)
			continue
		}

		if strings.HasPrefix(tok, "--") {
			name := tok[2:]
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				p.set(schema, name[:eq], name[eq+1:])
				continue
			}
			if strings.HasPrefix(name, "no-") && schema.IsBoolean(name[3:]) {
				p.set(schema, name[3:], false)
				continue
			}
			i = p.consume(schema, name, argv, i)
			continue
		}

		// single dash
		name := tok[1:]
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			p.set(schema, name[:eq], name[eq+1:])
			continue
		}
		if len(name) > 1 && !schema.declared(name) {
			letters := []rune(name)
			for _, l := range letters[:len(letters)-1] {
				p.set(schema, string(l), true)
			}
			i = p.consume(schema, string(letters[len(letters)-1]), argv, i)
			continue
		}
		i = p.consume(schema, name, argv, i)
	}

	return p
}

// declared reports whether the schema mentions name at all.
func (s Schema) declared(name string) bool {
	if _, ok := s.Alias[name]; ok {
		return true
	}
	if _, ok := s.Narg[name]; ok {
		return true
	}
	for _, b := range s.Boolean {
		if b == name {
			return true
		}
	}
	for _, c := range s.Alias {
		if c == name {
			return true
		}
	}
	return false
}

// consume assigns a value to flag name found at argv[i] and returns the
// index of the last token used.
func (p *Parsed) consume(schema Schema, name string, argv []string, i int) int {
	if schema.IsBoolean(name) {
		p.set(schema, name, true)
		return i
	}

	if n := schema.NargOf(name); n > 0 {
		end := i + n
		if end >= len(argv) {
			end = len(argv) - 1
		}
		values := append([]string(nil), argv[i+1:end+1]...)
		switch {
		case len(values) == 0:
			p.set(schema, name, true)
		case n == 1:
			p.set(schema, name, values[0])
		default:
			p.set(schema, name, values)
		}
		return end
	}

	if i+1 < len(argv) && !IsFlag(argv[i+1]) && argv[i+1] != "--" {
		p.set(schema, name, argv[i+1])
		return i + 1
	}
	p.set(schema, name, true)
	return i
}

// set stores value under the canonical name and its aliases. Repeating a
// string-valued flag accumulates a slice.
func (p *Parsed) set(schema Schema, name string, value any) {
	canonical := schema.Canonical(name)
	if prev, ok := p.Options[canonical]; ok {
		value = accumulate(prev, value)
	}
	p.Options[canonical] = value
	for _, alias := range schema.aliasesOf(canonical) {
		p.Options[alias] = value
	}
}

func accumulate(prev, next any) any {
	ns, ok := next.(string)
	if !ok {
		return next
	}
	switch pv := prev.(type) {
	case string:
		return []string{pv, ns}
	case []string:
		return append(append([]string(nil), pv...), ns)
	default:
		return next
	}
}

// IsFlag reports whether tok names a flag. "-" alone and negative numbers
// are positionals.
func IsFlag(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if tok == "--" {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}

// Unflag turns "--foo" into "foo" and "-f" into "f". A trailing
// placeholder such as "--last [name]" is dropped.
func Unflag(opt string) string {
	opt = strings.TrimLeft(opt, "-")
	if i := strings.IndexFunc(opt, func(r rune) bool { return r == ' ' || r == '\t' }); i >= 0 {
		opt = opt[:i]
	}
	return opt
}
