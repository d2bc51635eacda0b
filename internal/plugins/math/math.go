// Package math provides a small arithmetic command set.
package math

import (
	"context"
	"fmt"
	"strconv"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/usage"
)

// Plugin registers /math.
type Plugin struct{}

// New creates the math plugin.
func New() *Plugin { return &Plugin{} }

// Name implements plugins.Plugin.
func (*Plugin) Name() string { return "math" }

func binaryUsage(cmd, title string) *usage.Model {
	return &usage.Model{
		Command: "math " + cmd,
		Title:   title,
		Example: "math " + cmd + " 4 2",
		Strict:  true,
		Required: []usage.Row{
			{Name: "a", Docs: "first operand", Numeric: true},
			{Name: "b", Docs: "second operand", Numeric: true},
		},
	}
}

// operation is an arithmetic operator over integers, with a float variant
// used when either operand is not an integer.
type operation struct {
	ints   func(a, b int64) (int64, error)
	floats func(a, b float64) (float64, error)
}

var errDivideByZero = errors.New("division by zero")

var (
	add = operation{
		ints:   func(a, b int64) (int64, error) { return a + b, nil },
		floats: func(a, b float64) (float64, error) { return a + b, nil },
	}
	subtract = operation{
		ints:   func(a, b int64) (int64, error) { return a - b, nil },
		floats: func(a, b float64) (float64, error) { return a - b, nil },
	}
	multiply = operation{
		ints:   func(a, b int64) (int64, error) { return a * b, nil },
		floats: func(a, b float64) (float64, error) { return a * b, nil },
	}
	divide = operation{
		ints: func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivideByZero
			}
			return a / b, nil
		},
		floats: func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivideByZero
			}
			return a / b, nil
		},
	}
)

// Register implements plugins.Plugin.
func (p *Plugin) Register(r plugins.Registrar) error {
	if _, err := plugins.Subtree(r, "/math", "Arithmetic commands"); err != nil {
		return err
	}

	addID, err := r.Listen("/math/add", add.handler(), &command.Options{Docs: "Add two numbers", Usage: binaryUsage("add", "Add two numbers")})
	if err != nil {
		return err
	}
	if _, err := r.Synonym("/math/plus", addID); err != nil {
		return err
	}

	commands := []struct {
		name, docs string
		op         operation
	}{
		{"subtract", "Subtract the second number from the first", subtract},
		{"multiply", "Multiply two numbers", multiply},
		{"divide", "Divide the first number by the second", divide},
	}
	for _, c := range commands {
		if _, err := r.Listen("/math/"+c.name, c.op.handler(), &command.Options{Docs: c.docs, Usage: binaryUsage(c.name, c.docs)}); err != nil {
			return err
		}
	}
	return nil
}

// handler applies the operation to the first two positionals after the
// route. Integer operands give an int64, anything else a float64.
func (op operation) handler() command.Handler {
	return func(ctx context.Context, args *command.Arguments) (any, error) {
		rest := args.Rest()
		if len(rest) < 2 {
			return nil, fmt.Errorf("expected two operands, got %d", len(rest))
		}

		a, aerr := strconv.ParseInt(rest[0], 10, 64)
		b, berr := strconv.ParseInt(rest[1], 10, 64)
		if aerr == nil && berr == nil {
			return op.ints(a, b)
		}

		x, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid operand %q: %w", rest[0], err)
		}
		y, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid operand %q: %w", rest[1], err)
		}
		return op.floats(x, y)
	}
}
