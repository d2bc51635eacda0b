// Package usage describes the expected syntax of a command and checks parsed
// command lines against it.
//
// A Model lists required, optional and one-of parameters. Rows whose name
// begins with a dash are flags; any other row is a positional parameter,
// matched in declaration order. Enforcement failures are returned as *Error,
// which carries the Model so callers can render help alongside the message.
package usage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/options"
)

// Row describes one parameter of a command.
type Row struct {
	// Name is "--flag" for flags, a bare word for positionals
	Name  string
	Alias string
	Docs  string
	// Example is a value placeholder shown in help, e.g. "<file>"
	Example string
	Boolean bool
	Numeric bool
	// File requires the value to name an existing path, relative to the tab cwd
	File bool
	Narg int
	// Hidden rows are enforced but left out of help output
	Hidden        bool
	AllowedValues []string
}

// IsFlag reports whether the row names a flag rather than a positional.
func (r Row) IsFlag() bool {
	return strings.HasPrefix(r.Name, "-")
}

// Key returns the option key the parser stores the row's value under.
func (r Row) Key() string {
	return options.Unflag(r.Name)
}

// Entry is one line of a command listing.
type Entry struct {
	Command string
	Docs    string
}

// Model is the usage contract of a command.
type Model struct {
	Command string
	Title   string
	Header  string
	Example string
	// Strict enables the too-many-arguments and unknown-flag checks
	Strict   bool
	Required []Row
	Optional []Row
	OneOf    []Row
	// Available lists subcommands, used by help listings
	Available []Entry
	Related   []string
	// NoHelp suppresses the built-in --help flag; NoHelpAlias only -h
	NoHelp      bool
	NoHelpAlias bool
}

// Rows returns every row of the model.
func (m *Model) Rows() []Row {
	rows := make([]Row, 0, len(m.Required)+len(m.Optional)+len(m.OneOf))
	rows = append(rows, m.Required...)
	rows = append(rows, m.Optional...)
	return append(rows, m.OneOf...)
}

// Schema derives an option schema from the model's flag rows.
func (m *Model) Schema() options.Schema {
	s := options.Schema{Alias: map[string]string{}, Narg: map[string]int{}}
	if m == nil {
		return s
	}
	for _, r := range m.Rows() {
		if !r.IsFlag() {
			continue
		}
		key := r.Key()
		if r.Boolean {
			s.Boolean = append(s.Boolean, key)
		}
		if r.Narg > 0 {
			s.Narg[key] = r.Narg
		}
		if r.Alias != "" {
			s.Alias[options.Unflag(r.Alias)] = key
		}
	}
	return s
}

// Error is a usage enforcement failure. It reports code 400.
type Error struct {
	Model *Model
	// Message is empty when help was requested explicitly
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Model != nil && e.Model.Command != "" {
		return "Usage: " + e.Model.Command
	}
	return "Usage"
}

// Code returns errors.CodeUsage.
func (e *Error) Code() int { return errors.CodeUsage }

// Requested reports whether the error was raised by --help rather than by a
// violated contract.
func (e *Error) Requested() bool { return e.Message == "" }

var _ errors.Coder = (*Error)(nil)

// Input is what enforcement checks: the positionals following the command
// route and the parsed options.
type Input struct {
	Args    []string
	Options options.Parsed
	// Cwd resolves relative paths for File rows
	Cwd string
}

// builtins are flags every command accepts.
var builtins = []string{"help", "h", "quiet", "q"}

// Enforce validates in against m. It returns nil when m is nil.
//
// Checks run in order: explicit --help, required parameters, numeric and
// allowed values, file existence, one-of groups, and in strict mode excess
// positionals and unknown flags.
func Enforce(m *Model, in Input) error {
	if m == nil {
		return nil
	}
	if !m.NoHelp && in.Options.Bool("help") {
		return &Error{Model: m}
	}

	fail := func(format string, a ...any) error {
		return &Error{Model: m, Message: fmt.Sprintf(format, a...)}
	}

	positionals := in.Args
	next := 0
	take := func() (string, bool) {
		if next < len(positionals) {
			next++
			return positionals[next-1], true
		}
		return "", false
	}

	for _, r := range m.Required {
		if r.IsFlag() {
			if !in.Options.Has(r.Key()) {
				return fail("Required parameter not provided: %s", r.Name)
			}
			if err := checkValue(r, in, fail); err != nil {
				return err
			}
			continue
		}
		v, ok := take()
		if !ok {
			return fail("Required parameter not provided: %s", r.Name)
		}
		if err := checkPositional(r, v, in.Cwd, fail); err != nil {
			return err
		}
	}

	for _, r := range m.Optional {
		if r.IsFlag() {
			if in.Options.Has(r.Key()) {
				if err := checkValue(r, in, fail); err != nil {
					return err
				}
			}
			continue
		}
		if v, ok := take(); ok {
			if err := checkPositional(r, v, in.Cwd, fail); err != nil {
				return err
			}
		}
	}

	if len(m.OneOf) > 0 {
		matched := 0
		for _, r := range m.OneOf {
			if r.IsFlag() && in.Options.Has(r.Key()) {
				matched++
			}
		}
		if v, ok := take(); ok {
			matched++
			if r, found := firstPositional(m.OneOf); found {
				if err := checkPositional(r, v, in.Cwd, fail); err != nil {
					return err
				}
			}
		}
		if matched == 0 {
			return fail("Please provide one of: %s", oneOfNames(m.OneOf))
		}
		if matched > 1 {
			return fail("Please provide only one of: %s", oneOfNames(m.OneOf))
		}
	}

	if !m.Strict {
		return nil
	}
	if next < len(positionals) {
		return fail("Too many arguments: %s", strings.Join(positionals[next:], " "))
	}
	known := knownFlags(m)
	for key := range in.Options.Options {
		if !known[key] {
			return fail("Unsupported optional parameter: %s", key)
		}
	}
	return nil
}

func checkValue(r Row, in Input, fail func(string, ...any) error) error {
	if r.Boolean {
		return nil
	}
	for _, v := range in.Options.Strings(r.Key()) {
		if err := checkPositional(r, v, in.Cwd, fail); err != nil {
			return err
		}
	}
	return nil
}

func checkPositional(r Row, v string, cwd string, fail func(string, ...any) error) error {
	if r.Numeric {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fail("Parameter %s must be a number, got %q", r.Name, v)
		}
	}
	if len(r.AllowedValues) > 0 && !slices.Contains(r.AllowedValues, v) {
		return fail("Parameter %s must be one of %s, got %q", r.Name, strings.Join(r.AllowedValues, ", "), v)
	}
	if r.File {
		path := v
		if !filepath.IsAbs(path) && cwd != "" {
			path = filepath.Join(cwd, path)
		}
		if _, err := os.Stat(path); err != nil {
			return fail("The specified file does not exist: %s", v)
		}
	}
	return nil
}

func firstPositional(rows []Row) (Row, bool) {
	for _, r := range rows {
		if !r.IsFlag() {
			return r, true
		}
	}
	return Row{}, false
}

func oneOfNames(rows []Row) string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}

func knownFlags(m *Model) map[string]bool {
	known := map[string]bool{}
	for _, b := range builtins {
		known[b] = true
	}
	for _, r := range m.Rows() {
		if !r.IsFlag() {
			continue
		}
		known[r.Key()] = true
		if r.Alias != "" {
			known[options.Unflag(r.Alias)] = true
		}
	}
	return known
}
