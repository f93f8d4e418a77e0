package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

// binding mirrors one live host object.
type binding struct {
	handle   Handle
	children []*binding
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithLogger sets the logger. Default: slog.Default() with component=patch.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Patcher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Patcher applies scripts to one HostAdapter. It is not safe for concurrent
// use.
type Patcher struct {
	adapter HostAdapter
	surface binding // handle is always nil
	live    int
	logger  *slog.Logger
}

// New creates a Patcher bound to adapter with no live bindings.
func New(adapter HostAdapter, opts ...Option) *Patcher {
	p := &Patcher{
		adapter: adapter,
		logger:  slog.Default().With("component", "patch"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Live returns the number of tracked live bindings.
func (p *Patcher) Live() int { return p.live }

// Lookup returns the handle of the live object at path, where Path{0} is the
// surface root.
func (p *Patcher) Lookup(path dom.Path) (Handle, bool) {
	if len(path) == 0 {
		return nil, false
	}
	b, ok := p.resolve(path)
	if !ok {
		return nil, false
	}
	return b.handle, true
}

// Apply applies the script in order. On the first failure it stops and
// returns a *PatchError; bindings created or removed before the failure stay
// tracked accordingly.
func (p *Patcher) Apply(ctx context.Context, script dom.Script) error {
	for i, op := range script {
		if err := ctx.Err(); err != nil {
			return &PatchError{OpIndex: i, Op: op, Cause: err}
		}
		if err := p.applyOp(ctx, op); err != nil {
			p.logger.Debug("patch failed",
				"op_index", i,
				"op", op.Type.String(),
				"target", op.Target().String(),
				"error", err,
			)
			return &PatchError{OpIndex: i, Op: op, Cause: err}
		}
	}
	return nil
}

// Teardown removes every tracked binding, children before parents and last
// sibling first, and returns the script of Removes it applied. On failure
// the returned script is complete and the error is a *PatchError for the
// first Remove that failed.
func (p *Patcher) Teardown(ctx context.Context) (dom.Script, error) {
	script := make(dom.Script, 0, p.live)
	for i := len(p.surface.children) - 1; i >= 0; i-- {
		teardownScript(p.surface.children[i], dom.Path{}, i, &script)
	}
	return script, p.Apply(ctx, script)
}

func teardownScript(b *binding, parent dom.Path, index int, script *dom.Script) {
	self := parent.Child(index)
	for i := len(b.children) - 1; i >= 0; i-- {
		teardownScript(b.children[i], self, i, script)
	}
	*script = append(*script, dom.Op{Type: dom.OpRemove, Parent: parent, Index: index})
}

func (p *Patcher) resolve(path dom.Path) (*binding, bool) {
	b := &p.surface
	for _, i := range path {
		if i < 0 || i >= len(b.children) {
			return nil, false
		}
		b = b.children[i]
	}
	return b, true
}

func (p *Patcher) applyOp(ctx context.Context, op dom.Op) error {
	parent, ok := p.resolve(op.Parent)
	if !ok {
		return ErrNoBinding
	}
	n := len(parent.children)

	switch op.Type {
	case dom.OpInsert:
		if op.Index < 0 || op.Index > n {
			return ErrNoBinding
		}
		if op.Node == nil {
			return errors.New("patch: insert without node")
		}
		return p.create(ctx, parent, op.Index, op.Node)

	case dom.OpRemove:
		if op.Index < 0 || op.Index >= n {
			return ErrNoBinding
		}
		return p.destroy(ctx, parent, op.Index)

	case dom.OpUpdate:
		if op.Index < 0 || op.Index >= n {
			return ErrNoBinding
		}
		return p.adapter.UpdateElement(ctx, parent.children[op.Index].handle, op.Attrs)

	case dom.OpMove:
		if op.Index < 0 || op.Index >= n || op.To < 0 || op.To >= n {
			return ErrNoBinding
		}
		b := parent.children[op.Index]
		if err := p.adapter.MoveElement(ctx, b.handle, op.To); err != nil {
			return err
		}
		parent.children = removeAt(parent.children, op.Index)
		parent.children = insertAt(parent.children, op.To, b)
		return nil

	case dom.OpReplace:
		if op.Index < 0 || op.Index >= n {
			return ErrNoBinding
		}
		if op.Node == nil {
			return errors.New("patch: replace without node")
		}
		if err := p.destroy(ctx, parent, op.Index); err != nil {
			return err
		}
		return p.create(ctx, parent, op.Index, op.Node)

	default:
		return fmt.Errorf("patch: unknown op type %d", op.Type)
	}
}

// create builds the subtree rooted at node, parent first. Each binding is
// tracked as soon as the host returns it.
func (p *Patcher) create(ctx context.Context, parent *binding, index int, node *dom.Node) error {
	h, err := p.adapter.CreateElement(ctx, parent.handle, index, node.Kind(), node.Attrs())
	if err != nil {
		return err
	}
	b := &binding{handle: h}
	parent.children = insertAt(parent.children, index, b)
	p.live++

	for i := 0; i < node.Len(); i++ {
		if err := p.create(ctx, b, i, node.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

// destroy removes the subtree at parent.children[index], children first.
// Each binding is untracked as soon as the host removed it.
func (p *Patcher) destroy(ctx context.Context, parent *binding, index int) error {
	b := parent.children[index]
	for i := len(b.children) - 1; i >= 0; i-- {
		if err := p.destroy(ctx, b, i); err != nil {
			return err
		}
	}
	if err := p.adapter.RemoveElement(ctx, b.handle); err != nil {
		return err
	}
	parent.children = removeAt(parent.children, index)
	p.live--
	return nil
}

func insertAt(s []*binding, i int, b *binding) []*binding {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = b
	return s
}

func removeAt(s []*binding, i int) []*binding {
	copy(s[i:], s[i+1:])
	s[len(s)-1] = nil
	return s[:len(s)-1]
}
