// Package hierarchy is a generic ownership tree. Nodes live in a single Tree
// and refer to their parent and children by id, so re-parenting never leaves
// dangling object references behind.
package hierarchy

import (
	"slices"

	"github.com/google/uuid"
)

// Node carries an opaque payload plus its links inside a Tree.
type Node[T any] struct {
	ID       string
	Data     T
	Inferred bool

	parent   string
	children []string
}

// NewNode builds a detached node. An empty id is replaced with a random one.
func NewNode[T any](id string, data T) *Node[T] {
	if id == "" {
		id = uuid.NewString()
	}
	return &Node[T]{ID: id, Data: data}
}

// NewInferred builds a node synthesized by an algorithm rather than supplied
// by the caller.
func NewInferred[T any](id string, data T) *Node[T] {
	n := NewNode(id, data)
	n.Inferred = true
	return n
}

// Parent returns the parent id, or "" for a parentless node.
func (n *Node[T]) Parent() string { return n.parent }

func (n *Node[T]) Children() []string { return slices.Clone(n.children) }

func (n *Node[T]) HasChild(id string) bool { return slices.Contains(n.children, id) }

// IsRoot: no parent, at least one child.
func (n *Node[T]) IsRoot() bool { return n.parent == "" && len(n.children) > 0 }

// IsOrphan: no parent and no children.
func (n *Node[T]) IsOrphan() bool { return n.parent == "" && len(n.children) == 0 }

// IsLeaf: has a parent, no children.
func (n *Node[T]) IsLeaf() bool { return n.parent != "" && len(n.children) == 0 }
