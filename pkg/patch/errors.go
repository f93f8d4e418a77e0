package patch

import (
	"errors"
	"fmt"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

// ErrNoBinding is the cause of a PatchError when an op addresses a slot the
// patcher holds no live binding for.
var ErrNoBinding = errors.New("patch: no live binding at address")

// PatchError reports the op at which a script stopped. Ops before OpIndex
// were applied; the op itself may have been partially applied.
type PatchError struct {
	OpIndex int
	Op      dom.Op
	Cause   error
}

// Error returns the error message with the failing op.
func (e *PatchError) Error() string {
	return fmt.Sprintf("patch: op %d %s: %v", e.OpIndex, e.Op, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *PatchError) Unwrap() error {
	return e.Cause
}
