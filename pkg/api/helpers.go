package api

import "fmt"

// Textf creates a formatted text node.
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *Node) *Node {
	if condition {
		return node
	}
	return nil
}

// IfElse returns the first node if condition is true, the second otherwise.
func IfElse(condition bool, ifTrue, ifFalse *Node) *Node {
	if condition {
		return ifTrue
	}
	return ifFalse
}

// When is like If but only calls fn when condition is true.
func When(condition bool, fn func() *Node) *Node {
	if condition {
		return fn()
	}
	return nil
}

// Unless is the inverse of If.
func Unless(condition bool, node *Node) *Node {
	if !condition {
		return node
	}
	return nil
}

// Range maps a slice to nodes. Nil results are dropped.
func Range[T any](items []T, fn func(item T, index int) *Node) []*Node {
	result := make([]*Node, 0, len(items))
	for i, item := range items {
		if node := fn(item, i); node != nil {
			result = append(result, node)
		}
	}
	return result
}

// Keyed maps a slice to nodes keyed by keyFn, so reordering the slice moves
// the live elements instead of rebuilding them.
func Keyed[T any](items []T, keyFn func(T) string, fn func(item T) *Node) []*Node {
	result := make([]*Node, 0, len(items))
	for _, item := range items {
		node := fn(item)
		if node == nil {
			continue
		}
		result = append(result, El(node.Kind(), Key(keyFn(item)), node.Attrs(), node.Children()))
	}
	return result
}
