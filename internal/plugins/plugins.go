// Package plugins defines how command sets are registered into the command
// tree. Each subpackage provides one Plugin.
package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/tree"
	"github.com/quocvuong92/kshell/internal/usage"
)

// Registrar is the part of the command tree plugins register into.
type Registrar interface {
	Listen(route string, h command.Handler, opts *command.Options) (tree.NodeID, error)
	Synonym(route string, target tree.NodeID) (tree.NodeID, error)
	Catchall(route string, offer tree.Offer, h command.Handler, prio int, opts *command.Options) error
	Children(route string) []tree.Child
}

// Plugin contributes commands.
type Plugin interface {
	Name() string
	Register(r Registrar) error
}

var _ Registrar = (*tree.Tree)(nil)

// Load registers each plugin in order, stopping at the first failure.
func Load(r Registrar, plugins ...Plugin) error {
	log := logging.Named("plugins")
	for _, p := range plugins {
		if err := p.Register(r); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		log.Debug("loaded plugin", logging.Fields{"plugin": p.Name()})
	}
	return nil
}

// Subtree registers a handler at route that answers with a listing of the
// commands below it.
func Subtree(r Registrar, route, title string) (tree.NodeID, error) {
	cmd := strings.Join(tree.Segments(route), " ")
	h := func(ctx context.Context, args *command.Arguments) (any, error) {
		return nil, &usage.Error{Model: Listing(r, route, cmd, title)}
	}
	return r.Listen(route, h, &command.Options{Docs: title, Usage: &usage.Model{Command: cmd, Title: title, NoHelp: true}})
}

// Listing builds a usage model listing the visible children of route.
func Listing(r Registrar, route, cmd, title string) *usage.Model {
	m := &usage.Model{Command: cmd, Title: title}
	for _, c := range r.Children(route) {
		name := strings.TrimSpace(cmd + " " + c.Name)
		docs := c.Docs
		if c.Synonym != "" {
			docs = strings.TrimSpace(docs + " (alias of " + strings.Join(tree.Segments(c.Synonym), " ") + ")")
		}
		m.Available = append(m.Available, usage.Entry{Command: name, Docs: docs})
	}
	return m
}
