package patch

import (
	"context"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

// Handle is an opaque reference to a live host object. Only the adapter
// that returned it interprets it.
type Handle any

// HostAdapter performs primitive operations on live host objects.
//
// CreateElement attaches a new object of the given kind at index within
// parent's children; parent is nil for the surface root. MoveElement moves
// an object to newIndex among its siblings, counted after it was taken out.
// RemoveElement detaches and destroys one object; the Patcher always removes
// children first.
type HostAdapter interface {
	CreateElement(ctx context.Context, parent Handle, index int, kind dom.Kind, attrs dom.Attrs) (Handle, error)
	UpdateElement(ctx context.Context, h Handle, diff dom.AttrDiff) error
	MoveElement(ctx context.Context, h Handle, newIndex int) error
	RemoveElement(ctx context.Context, h Handle) error
}
