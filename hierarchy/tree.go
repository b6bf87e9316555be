package hierarchy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrUnknownNode = errors.New("hierarchy: unknown node")
	ErrSelfParent  = errors.New("hierarchy: node cannot be its own parent")
	ErrCycle       = errors.New("hierarchy: parent is a descendant of the node")
)

// Edge is one parent/child link in a Tree.
type Edge struct {
	Parent   string
	Child    string
	Inferred bool
}

// Tree owns every node added to it.
type Tree[T any] struct {
	nodes    map[string]*Node[T]
	order    []string
	makeNode func(T) *Node[T]
	relink   func(t *Tree[T], added []*Node[T])
}

// New creates an empty tree. makeNode converts raw payloads passed to Add.
func New[T any](makeNode func(T) *Node[T]) *Tree[T] {
	return &Tree[T]{
		nodes:    make(map[string]*Node[T]),
		makeNode: makeNode,
	}
}

// OnAdd registers a hook run after every Add call with the nodes it created,
// letting callers recompute relationships incrementally.
func (t *Tree[T]) OnAdd(fn func(t *Tree[T], added []*Node[T])) {
	t.relink = fn
}

// Add converts each payload with makeNode and stores it. Payloads whose node
// id is already present resolve to the existing node.
func (t *Tree[T]) Add(payloads ...T) []*Node[T] {
	out := make([]*Node[T], 0, len(payloads))
	var added []*Node[T]
	for _, p := range payloads {
		n := t.makeNode(p)
		if existing, ok := t.nodes[n.ID]; ok {
			out = append(out, existing)
			continue
		}
		t.insert(n)
		out = append(out, n)
		added = append(added, n)
	}
	if t.relink != nil && len(added) > 0 {
		t.relink(t, added)
	}
	return out
}

// AddNode stores a prebuilt node, returning the existing one on id collision.
func (t *Tree[T]) AddNode(n *Node[T]) *Node[T] {
	if existing, ok := t.nodes[n.ID]; ok {
		return existing
	}
	n.parent = ""
	n.children = nil
	t.insert(n)
	return n
}

func (t *Tree[T]) insert(n *Node[T]) {
	t.nodes[n.ID] = n
	t.order = append(t.order, n.ID)
}

func (t *Tree[T]) Node(id string) (*Node[T], bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree[T]) Len() int { return len(t.nodes) }

// Nodes returns every node in insertion order.
func (t *Tree[T]) Nodes() []*Node[T] {
	out := make([]*Node[T], 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.nodes[id])
	}
	return out
}

// SetParent moves child under parent, detaching it from any previous parent.
// An empty parent id detaches the node. Nothing is mutated when validation fails.
func (t *Tree[T]) SetParent(childID, parentID string) error {
	child, ok := t.nodes[childID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, childID)
	}
	if parentID == "" {
		t.detach(child)
		return nil
	}
	parent, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, parentID)
	}
	if childID == parentID {
		return fmt.Errorf("%w: %s", ErrSelfParent, childID)
	}
	for _, a := range t.Ancestors(parentID) {
		if a.ID == childID {
			return fmt.Errorf("%w: %s under %s", ErrCycle, childID, parentID)
		}
	}
	if child.parent == parentID {
		return nil
	}
	t.detach(child)
	child.parent = parentID
	parent.children = append(parent.children, childID)
	return nil
}

func (t *Tree[T]) detach(child *Node[T]) {
	if child.parent == "" {
		return
	}
	if old, ok := t.nodes[child.parent]; ok {
		if i := slices.Index(old.children, child.ID); i >= 0 {
			old.children = slices.Delete(old.children, i, i+1)
		}
	}
	child.parent = ""
}

// AddChild is SetParent seen from the parent side. It is a no-op when the
// child is already attached.
func (t *Tree[T]) AddChild(parentID, childID string) error {
	if parent, ok := t.nodes[parentID]; ok && parent.HasChild(childID) {
		return nil
	}
	return t.SetParent(childID, parentID)
}

// RemoveChild detaches childID if parentID currently owns it.
func (t *Tree[T]) RemoveChild(parentID, childID string) bool {
	child, ok := t.nodes[childID]
	if !ok || child.parent != parentID || parentID == "" {
		return false
	}
	t.detach(child)
	return true
}

// Remove deletes a node. Its children become parentless rather than being
// removed with it.
func (t *Tree[T]) Remove(id string) (*Node[T], bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	t.detach(n)
	for _, childID := range n.children {
		if c, ok := t.nodes[childID]; ok {
			c.parent = ""
		}
	}
	n.children = nil
	delete(t.nodes, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	return n, true
}

// Ancestors walks root-ward starting with the direct parent.
func (t *Tree[T]) Ancestors(id string) []*Node[T] {
	var out []*Node[T]
	n, ok := t.nodes[id]
	for ok && n.parent != "" {
		n, ok = t.nodes[n.parent]
		if ok {
			out = append(out, n)
		}
	}
	return out
}

// Descendants flattens the subtree below id in pre-order, excluding id.
func (t *Tree[T]) Descendants(id string) []*Node[T] {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var out []*Node[T]
	var walk func(*Node[T])
	walk = func(n *Node[T]) {
		for _, childID := range n.children {
			c := t.nodes[childID]
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

func (t *Tree[T]) Children(id string) []*Node[T] {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	out := make([]*Node[T], 0, len(n.children))
	for _, childID := range n.children {
		out = append(out, t.nodes[childID])
	}
	return out
}

// Siblings returns the other children of id's parent.
func (t *Tree[T]) Siblings(id string) []*Node[T] {
	n, ok := t.nodes[id]
	if !ok || n.parent == "" {
		return nil
	}
	var out []*Node[T]
	for _, c := range t.Children(n.parent) {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// FindRoot returns the first root in insertion order.
func (t *Tree[T]) FindRoot() (*Node[T], bool) {
	for _, id := range t.order {
		if n := t.nodes[id]; n.IsRoot() {
			return n, true
		}
	}
	return nil, false
}

func (t *Tree[T]) FindRoots() []*Node[T] {
	var out []*Node[T]
	for _, id := range t.order {
		if n := t.nodes[id]; n.IsRoot() {
			out = append(out, n)
		}
	}
	return out
}

// Edges lists every parent/child link, walking nodes in insertion order. An
// edge is inferred when either end was synthesized.
func (t *Tree[T]) Edges() []Edge {
	var out []Edge
	for _, id := range t.order {
		n := t.nodes[id]
		if n.parent == "" {
			continue
		}
		p := t.nodes[n.parent]
		out = append(out, Edge{Parent: p.ID, Child: n.ID, Inferred: n.Inferred || p.Inferred})
	}
	return out
}

// TreeString renders the subtree under id with two-space indentation. A nil
// label prints node ids.
func (t *Tree[T]) TreeString(id string, label func(*Node[T]) string) string {
	if label == nil {
		label = func(n *Node[T]) string { return n.ID }
	}
	var b strings.Builder
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		n, ok := t.nodes[id]
		if !ok {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(label(n))
		if n.Inferred {
			b.WriteString(" *")
		}
		b.WriteByte('\n')
		for _, childID := range n.children {
			walk(childID, depth+1)
		}
	}
	walk(id, 0)
	return b.String()
}
