package api

import "github.com/arcadiusmc/delphi/pkg/dom"

// Node is re-exported so builders can be used without importing dom.
type Node = dom.Node

// Key sets the reconciliation key of an element.
func Key(k string) dom.Key { return dom.Key(k) }

// El creates an element of an arbitrary kind.
func El(kind dom.Kind, args ...any) *Node { return dom.El(kind, args...) }

func Body(args ...any) *Node   { return dom.El(dom.KindBody, args...) }
func Div(args ...any) *Node    { return dom.El(dom.KindDiv, args...) }
func Menu(args ...any) *Node   { return dom.El(dom.KindMenu, args...) }
func Button(args ...any) *Node { return dom.El(dom.KindButton, args...) }
func Item(args ...any) *Node   { return dom.El(dom.KindItem, args...) }
func Image(args ...any) *Node  { return dom.El(dom.KindImage, args...) }
func Input(args ...any) *Node  { return dom.El(dom.KindInput, args...) }
func Option(args ...any) *Node { return dom.El(dom.KindOption, args...) }

// Br creates a line break.
func Br() *Node { return dom.El(dom.KindBreak) }

// Text creates a text node.
func Text(content string) *Node { return dom.Text(content) }
