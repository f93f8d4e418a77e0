// Package memhost is an in-memory live tree implementing patch.HostAdapter.
//
// It is the reference host: tests and the CLI apply scripts to it and compare
// Snapshot with the tree that was rendered. Failures can be injected per
// call with WithFailure.
package memhost

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/patch"
)

var _ patch.HostAdapter = (*Host)(nil)

// Sentinel errors returned by Host methods.
var (
	ErrForeignHandle = errors.New("memhost: handle not created by this host")
	ErrDetached      = errors.New("memhost: element already removed")
	ErrIndex         = errors.New("memhost: index out of range")
)

// Method names a HostAdapter call.
type Method string

const (
	MethodCreate Method = "create"
	MethodUpdate Method = "update"
	MethodMove   Method = "move"
	MethodRemove Method = "remove"
)

// Call records one adapter call.
type Call struct {
	Method Method
	ID     int // target element, or the created element for create
	Parent int // create only; 0 for the surface
	Index  int // create and move
	Kind   dom.Kind
	Diff   dom.AttrDiff
}

func (c Call) String() string {
	switch c.Method {
	case MethodCreate:
		return fmt.Sprintf("create %s #%d under #%d at %d", c.Kind, c.ID, c.Parent, c.Index)
	case MethodUpdate:
		return fmt.Sprintf("update #%d %s", c.ID, c.Diff)
	case MethodMove:
		return fmt.Sprintf("move #%d to %d", c.ID, c.Index)
	default:
		return fmt.Sprintf("%s #%d", c.Method, c.ID)
	}
}

// Element is a live object. IDs start at 1 and are never reused.
type Element struct {
	id       int
	kind     dom.Kind
	attrs    dom.Attrs
	parent   *Element
	children []*Element
	detached bool
}

func (e *Element) ID() int          { return e.id }
func (e *Element) Kind() dom.Kind   { return e.kind }
func (e *Element) Attrs() dom.Attrs { return e.attrs }
func (e *Element) Len() int         { return len(e.children) }

// Option configures a Host.
type Option func(*Host)

// WithFailure installs a hook consulted before every call. A non-nil error
// fails the call without changing the tree.
func WithFailure(fn func(Call) error) Option {
	return func(h *Host) { h.fail = fn }
}

// WithMutationListener registers a callback for every attribute change
// applied by UpdateElement.
func WithMutationListener(fn func(el *Element, change dom.AttrChange)) Option {
	return func(h *Host) { h.listeners = append(h.listeners, fn) }
}

// Host is an in-memory surface. It is safe for concurrent use.
type Host struct {
	mu        sync.Mutex
	surface   Element
	nextID    int
	calls     []Call
	fail      func(Call) error
	listeners []func(*Element, dom.AttrChange)
}

// New creates an empty host.
func New(opts ...Option) *Host {
	h := &Host{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateElement attaches a new element at index within parent.
func (h *Host) CreateElement(ctx context.Context, parent patch.Handle, index int, kind dom.Kind, attrs dom.Attrs) (patch.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := &h.surface
	if parent != nil {
		var err error
		if p, err = h.element(parent); err != nil {
			return nil, err
		}
	}

	call := Call{Method: MethodCreate, ID: h.nextID + 1, Parent: p.id, Index: index, Kind: kind}
	if err := h.check(ctx, call); err != nil {
		return nil, err
	}
	if index < 0 || index > len(p.children) {
		return nil, fmt.Errorf("%w: create at %d of %d", ErrIndex, index, len(p.children))
	}

	h.nextID++
	el := &Element{id: h.nextID, kind: kind, attrs: attrs, parent: p}
	p.children = append(p.children, nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = el
	h.calls = append(h.calls, call)
	return el, nil
}

// UpdateElement applies an attribute diff.
func (h *Host) UpdateElement(ctx context.Context, handle patch.Handle, diff dom.AttrDiff) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	el, err := h.element(handle)
	if err != nil {
		return err
	}
	call := Call{Method: MethodUpdate, ID: el.id, Diff: diff}
	if err := h.check(ctx, call); err != nil {
		return err
	}

	el.attrs = diff.Apply(el.attrs)
	h.calls = append(h.calls, call)
	for _, change := range diff {
		for _, fn := range h.listeners {
			fn(el, change)
		}
	}
	return nil
}

// MoveElement moves an element within its parent.
func (h *Host) MoveElement(ctx context.Context, handle patch.Handle, newIndex int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	el, err := h.element(handle)
	if err != nil {
		return err
	}
	call := Call{Method: MethodMove, ID: el.id, Index: newIndex}
	if err := h.check(ctx, call); err != nil {
		return err
	}

	p := el.parent
	if newIndex < 0 || newIndex >= len(p.children) {
		return fmt.Errorf("%w: move to %d of %d", ErrIndex, newIndex, len(p.children))
	}
	p.children = detach(p.children, el)
	p.children = append(p.children, nil)
	copy(p.children[newIndex+1:], p.children[newIndex:])
	p.children[newIndex] = el
	h.calls = append(h.calls, call)
	return nil
}

// RemoveElement detaches an element. Any remaining descendants go with it.
func (h *Host) RemoveElement(ctx context.Context, handle patch.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	el, err := h.element(handle)
	if err != nil {
		return err
	}
	call := Call{Method: MethodRemove, ID: el.id}
	if err := h.check(ctx, call); err != nil {
		return err
	}

	el.parent.children = detach(el.parent.children, el)
	markDetached(el)
	h.calls = append(h.calls, call)
	return nil
}

func (h *Host) element(handle patch.Handle) (*Element, error) {
	el, ok := handle.(*Element)
	if !ok || el == nil {
		return nil, ErrForeignHandle
	}
	if el.detached {
		return nil, ErrDetached
	}
	root := el
	for root.parent != nil {
		root = root.parent
	}
	if root != &h.surface {
		return nil, ErrForeignHandle
	}
	return el, nil
}

func (h *Host) check(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.fail != nil {
		return h.fail(call)
	}
	return nil
}

func detach(s []*Element, el *Element) []*Element {
	for i, c := range s {
		if c == el {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func markDetached(el *Element) {
	el.detached = true
	for _, c := range el.children {
		markDetached(c)
	}
}

// Snapshot returns the live tree as an immutable node tree. The second
// value is false when the surface holds more than one root.
func (h *Host) Snapshot() (*dom.Node, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch len(h.surface.children) {
	case 0:
		return nil, true
	case 1:
		return snapshot(h.surface.children[0]), true
	default:
		return snapshot(h.surface.children[0]), false
	}
}

func snapshot(el *Element) *dom.Node {
	children := make([]*dom.Node, len(el.children))
	for i, c := range el.children {
		children[i] = snapshot(c)
	}
	return dom.New(el.kind, "", el.attrs, children...)
}

// Count returns the number of attached elements.
func (h *Host) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return countElements(&h.surface) - 1
}

func countElements(el *Element) int {
	n := 1
	for _, c := range el.children {
		n += countElements(c)
	}
	return n
}

// Calls returns a copy of the recorded calls.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.calls))
	copy(out, h.calls)
	return out
}

// ResetCalls clears the call log.
func (h *Host) ResetCalls() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}

// Matches reports whether the live tree has the shape, kinds and attributes
// of tree. Keys are not compared; the host never sees them.
func (h *Host) Matches(tree *dom.Node) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tree == nil {
		return len(h.surface.children) == 0
	}
	return len(h.surface.children) == 1 && matches(h.surface.children[0], tree)
}

func matches(el *Element, n *dom.Node) bool {
	if el.kind != n.Kind() || len(el.children) != n.Len() || !el.attrs.Equal(n.Attrs()) {
		return false
	}
	for i, c := range el.children {
		if !matches(c, n.Child(i)) {
			return false
		}
	}
	return true
}
