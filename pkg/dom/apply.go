package dom

import (
	"errors"
	"fmt"
)

// ErrBadAddress is returned by Apply when an op addresses a slot that does
// not exist in the evolving tree.
var ErrBadAddress = errors.New("dom: op addresses a missing slot")

// mutableNode is the scratch representation used while applying a script.
type mutableNode struct {
	kind     Kind
	key      string
	attrs    Attrs
	children []*mutableNode
}

func thaw(n *Node) *mutableNode {
	m := &mutableNode{kind: n.kind, key: n.key, attrs: n.attrs}
	if len(n.children) > 0 {
		m.children = make([]*mutableNode, len(n.children))
		for i, c := range n.children {
			m.children[i] = thaw(c)
		}
	}
	return m
}

func (m *mutableNode) freeze() *Node {
	children := make([]*Node, len(m.children))
	for i, c := range m.children {
		children[i] = c.freeze()
	}
	return New(m.kind, m.key, m.attrs, children...)
}

// Apply applies a script to a tree and returns the resulting tree. The
// input tree is not modified. A nil root is an empty surface.
func Apply(root *Node, script Script) (*Node, error) {
	surface := &mutableNode{}
	if root != nil {
		surface.children = []*mutableNode{thaw(root)}
	}

	for i, op := range script {
		if err := applyOp(surface, op); err != nil {
			return nil, fmt.Errorf("op %d %s: %w", i, op, err)
		}
	}

	if len(surface.children) == 0 {
		return nil, nil
	}
	return surface.children[0].freeze(), nil
}

func applyOp(surface *mutableNode, op Op) error {
	parent := surface
	for _, i := range op.Parent {
		if i < 0 || i >= len(parent.children) {
			return ErrBadAddress
		}
		parent = parent.children[i]
	}

	n := len(parent.children)
	switch op.Type {
	case OpInsert:
		if op.Index < 0 || op.Index > n || op.Node == nil {
			return ErrBadAddress
		}
		parent.children = append(parent.children, nil)
		copy(parent.children[op.Index+1:], parent.children[op.Index:])
		parent.children[op.Index] = thaw(op.Node)

	case OpRemove:
		if op.Index < 0 || op.Index >= n {
			return ErrBadAddress
		}
		parent.children = append(parent.children[:op.Index], parent.children[op.Index+1:]...)

	case OpUpdate:
		if op.Index < 0 || op.Index >= n {
			return ErrBadAddress
		}
		target := parent.children[op.Index]
		target.attrs = op.Attrs.Apply(target.attrs)

	case OpMove:
		if op.Index < 0 || op.Index >= n || op.To < 0 || op.To >= n {
			return ErrBadAddress
		}
		moved := parent.children[op.Index]
		parent.children = append(parent.children[:op.Index], parent.children[op.Index+1:]...)
		parent.children = append(parent.children, nil)
		copy(parent.children[op.To+1:], parent.children[op.To:])
		parent.children[op.To] = moved

	case OpReplace:
		if op.Index < 0 || op.Index >= n || op.Node == nil {
			return ErrBadAddress
		}
		parent.children[op.Index] = thaw(op.Node)

	default:
		return fmt.Errorf("dom: unknown op type %d", op.Type)
	}
	return nil
}
