package dom

import (
	"fmt"
	"sync"
)

// Key is a reconciliation key. Passed to El it sets the node key.
type Key string

// Node is an immutable virtual tree node.
type Node struct {
	kind     Kind
	key      string
	attrs    Attrs
	children []*Node

	fpOnce sync.Once
	fp     Fingerprint
}

// New creates a node. Nil children are skipped and the children slice is
// copied, so later changes to the caller's slice do not affect the node.
func New(kind Kind, key string, attrs Attrs, children ...*Node) *Node {
	n := &Node{kind: kind, key: key, attrs: attrs}
	if len(children) > 0 {
		n.children = make([]*Node, 0, len(children))
		for _, c := range children {
			if c != nil {
				n.children = append(n.children, c)
			}
		}
	}
	return n
}

// El creates a node of the given kind.
// Arguments can be: nil, Key, Attr, []Attr, Attrs, *Node, []*Node, string.
// Strings become text children. Other argument types are ignored.
func El(kind Kind, args ...any) *Node {
	var (
		key      string
		attrs    Attrs
		children []*Node
	)

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional children)
			continue
		case Key:
			key = string(v)
		case Attr:
			attrs.list = attrs.set(v)
		case []Attr:
			for _, at := range v {
				attrs.list = attrs.set(at)
			}
		case Attrs:
			for _, at := range v.list {
				attrs.list = attrs.set(at)
			}
		case *Node:
			if v != nil {
				children = append(children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					children = append(children, c)
				}
			}
		case string:
			children = append(children, Text(v))
		}
	}

	return &Node{kind: kind, key: key, attrs: attrs, children: children}
}

// Text creates a text node.
func Text(content string) *Node {
	return &Node{kind: KindText, attrs: NewAttrs(Attr{Name: ContentAttr, Value: String(content)})}
}

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// Key returns the reconciliation key, or "" when the node is unkeyed.
func (n *Node) Key() string { return n.key }

// Attrs returns the node attributes.
func (n *Node) Attrs() Attrs { return n.attrs }

// Attr returns the value of a single attribute.
func (n *Node) Attr(name string) (Value, bool) { return n.attrs.Get(name) }

// Content returns the content attribute as a string (text nodes).
func (n *Node) Content() string {
	v, _ := n.attrs.Get(ContentAttr)
	return v.String()
}

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.children {
		total += c.Count()
	}
	return total
}

// At returns the descendant at the given path relative to n.
func (n *Node) At(path Path) (*Node, bool) {
	cur := n
	for _, i := range path {
		if i < 0 || i >= len(cur.children) {
			return nil, false
		}
		cur = cur.children[i]
	}
	return cur, true
}

// Walk calls fn for every node in pre-order with its path relative to n.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(path Path, node *Node) bool) {
	if n == nil {
		return
	}
	n.walk(nil, fn)
}

func (n *Node) walk(path Path, fn func(Path, *Node) bool) {
	if !fn(path, n) {
		return
	}
	for i, c := range n.children {
		c.walk(path.Child(i), fn)
	}
}

// String returns a short description such as button#buy.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.key != "" {
		return fmt.Sprintf("%s#%s", n.kind, n.key)
	}
	if n.kind == KindText {
		return fmt.Sprintf("text(%q)", n.Content())
	}
	return n.kind.String()
}

// Equal reports whether two trees are structurally equal: same kinds, keys,
// attributes (order ignored) and children in order.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.kind != b.kind || a.key != b.key || len(a.children) != len(b.children) {
		return false
	}
	if !a.attrs.Equal(b.attrs) {
		return false
	}
	for i := range a.children {
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}
