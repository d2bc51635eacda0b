// Package tree maps command lines to registered command handlers.
//
// Commands live in an arena: a flat slice of nodes addressed by NodeID, plus
// an index from route ("/math/add") to NodeID. A node is Interior (a path
// segment with no handler), Leaf (has a handler), or Synonym (delegates to
// another node by id). Synonyms never own their target, so there are no
// pointer cycles and lookup stays O(depth).
//
// Registration happens at startup. After Seal the tree rejects further
// registrations and is only read.
package tree

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/logging"
)

// Kind is the variant of a node.
type Kind int

const (
	Interior Kind = iota
	Leaf
	Synonym
)

// NodeID addresses a node in the arena.
type NodeID int

const root NodeID = 0

// Sentinel errors
var (
	ErrDuplicateRoute = errors.New("route already registered")
	ErrSealed         = errors.New("command tree is sealed")
	ErrNoTarget       = errors.New("synonym target has no handler")
)

type node struct {
	kind     Kind
	route    string
	children map[string]NodeID
	handler  command.Handler
	opts     *command.Options
	target   NodeID
}

// Offer decides whether a catch-all accepts an argument vector.
type Offer func(argv []string) bool

type catchall struct {
	segments []string
	offer    Offer
	prio     int
	node     NodeID
}

// Tree is the command tree.
type Tree struct {
	mu        sync.RWMutex
	nodes     []node
	byRoute   map[string]NodeID
	catchalls []catchall
	sealed    bool
	log       *logging.FieldLogger
}

// New creates an empty tree holding only the root.
func New() *Tree {
	return &Tree{
		nodes:   []node{{kind: Interior, route: "/", children: map[string]NodeID{}}},
		byRoute: map[string]NodeID{"/": root},
		log:     logging.Named("tree"),
	}
}

// Segments splits a route into its path segments.
func Segments(route string) []string {
	var out []string
	for _, s := range strings.Split(route, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Route joins segments into a route.
func Route(segments ...string) string {
	return "/" + strings.Join(segments, "/")
}

// Listen registers h at route, creating intermediate nodes as needed.
func (t *Tree) Listen(route string, h command.Handler, opts *command.Options) (NodeID, error) {
	if h == nil {
		return 0, fmt.Errorf("listen %s: nil handler", route)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return 0, ErrSealed
	}

	id := t.ensure(Segments(route))
	n := &t.nodes[id]
	if n.kind != Interior {
		return 0, fmt.Errorf("listen %s: %w", n.route, ErrDuplicateRoute)
	}
	n.kind = Leaf
	n.handler = h
	n.opts = ensureOpts(opts)
	t.log.Debug("registered", logging.Fields{"route": n.route})
	return id, nil
}

// Synonym registers route as an alternate name for the command at target.
// The synonym reports its own route but runs the target's handler with the
// target's options.
func (t *Tree) Synonym(route string, target NodeID) (NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return 0, ErrSealed
	}
	if int(target) >= len(t.nodes) || t.nodes[target].kind == Interior {
		return 0, fmt.Errorf("synonym %s: %w", route, ErrNoTarget)
	}
	target = t.canonical(target)

	id := t.ensure(Segments(route))
	n := &t.nodes[id]
	if n.kind != Interior || id == target {
		return 0, fmt.Errorf("synonym %s: %w", n.route, ErrDuplicateRoute)
	}
	n.kind = Synonym
	n.target = target
	t.log.Debug("registered synonym", logging.Fields{"route": n.route, "target": t.nodes[target].route})
	return id, nil
}

// Catchall registers h to handle any command line under route that offer
// accepts. A nil offer accepts everything. When several catch-alls match,
// the highest prio wins, then the deepest route.
func (t *Tree) Catchall(route string, offer Offer, h command.Handler, prio int, opts *command.Options) error {
	if h == nil {
		return fmt.Errorf("catchall %s: nil handler", route)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return ErrSealed
	}

	segs := Segments(route)
	t.nodes = append(t.nodes, node{kind: Leaf, route: Route(segs...), handler: h, opts: ensureOpts(opts)})
	t.catchalls = append(t.catchalls, catchall{
		segments: segs,
		offer:    offer,
		prio:     prio,
		node:     NodeID(len(t.nodes) - 1),
	})
	t.log.Debug("registered catchall", logging.Fields{"route": Route(segs...), "prio": prio})
	return nil
}

// Seal ends registration.
func (t *Tree) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
}

func ensureOpts(opts *command.Options) *command.Options {
	if opts == nil {
		return &command.Options{}
	}
	return opts
}

// ensure returns the node for segs, creating interior nodes along the way.
// Callers hold the write lock.
func (t *Tree) ensure(segs []string) NodeID {
	cur := root
	for i, seg := range segs {
		next, ok := t.nodes[cur].children[seg]
		if !ok {
			route := Route(segs[:i+1]...)
			t.nodes = append(t.nodes, node{kind: Interior, route: route, children: map[string]NodeID{}})
			next = NodeID(len(t.nodes) - 1)
			t.nodes[cur].children[seg] = next
			t.byRoute[route] = next
		}
		cur = next
	}
	return cur
}

func (t *Tree) canonical(id NodeID) NodeID {
	for t.nodes[id].kind == Synonym {
		id = t.nodes[id].target
	}
	return id
}

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	ID NodeID
	// Route is the matched node's own route, the synonym's for synonyms
	Route string
	// CanonicalRoute is the route of the node whose handler runs
	CanonicalRoute string
	Handler        command.Handler
	Options        *command.Options
	// Depth is the number of argv words consumed by the route
	Depth    int
	Catchall bool
}

// Read finds the deepest node with a handler whose route is a prefix of
// argv. With allowCatchalls, a failed exact lookup falls back to catch-alls.
func (t *Tree) Read(argv []string, allowCatchalls bool) (*Resolution, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	best, depth := NodeID(-1), 0
	cur := root
	for i, tok := range argv {
		next, ok := t.nodes[cur].children[tok]
		if !ok {
			break
		}
		cur = next
		if t.nodes[cur].kind != Interior {
			best, depth = cur, i+1
		}
	}
	if best >= 0 {
		return t.resolution(best, depth, false), true
	}
	if !allowCatchalls {
		return nil, false
	}

	var match *catchall
	for i := range t.catchalls {
		c := &t.catchalls[i]
		if !hasPrefix(argv, c.segments) || (c.offer != nil && !c.offer(argv)) {
			continue
		}
		if match == nil || c.prio > match.prio || (c.prio == match.prio && len(c.segments) > len(match.segments)) {
			match = c
		}
	}
	if match == nil {
		return nil, false
	}
	return t.resolution(match.node, len(match.segments), true), true
}

func (t *Tree) resolution(id NodeID, depth int, catchall bool) *Resolution {
	target := t.canonical(id)
	return &Resolution{
		ID:             id,
		Route:          t.nodes[id].route,
		CanonicalRoute: t.nodes[target].route,
		Handler:        t.nodes[target].handler,
		Options:        t.nodes[target].opts,
		Depth:          depth,
		Catchall:       catchall,
	}
}

func hasPrefix(argv, prefix []string) bool {
	if len(prefix) > len(argv) {
		return false
	}
	for i, p := range prefix {
		if argv[i] != p {
			return false
		}
	}
	return true
}

// Find returns the node registered at exactly route.
func (t *Tree) Find(route string) (*Resolution, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byRoute[Route(Segments(route)...)]
	if !ok || t.nodes[id].kind == Interior {
		return nil, false
	}
	return t.resolution(id, len(Segments(route)), false), true
}

// Child describes one entry below a route.
type Child struct {
	Name  string
	Route string
	Docs  string
	// Leaf is true when the child itself can be executed
	Leaf bool
	// Synonym is the canonical route for synonym children
	Synonym string
}

// Children lists the visible children of route in name order.
func (t *Tree) Children(route string) []Child {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byRoute[Route(Segments(route)...)]
	if !ok {
		return nil
	}

	var out []Child
	for name, cid := range t.nodes[id].children {
		n := t.nodes[cid]
		target := t.canonical(cid)
		opts := t.nodes[target].opts
		if opts != nil && opts.Hidden {
			continue
		}
		c := Child{Name: name, Route: n.route, Leaf: n.kind != Interior, Docs: opts.Description()}
		if n.kind == Synonym {
			c.Synonym = t.nodes[target].route
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
