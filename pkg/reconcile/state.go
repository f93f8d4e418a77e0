package reconcile

import (
	"errors"
	"time"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/patch"
)

// ErrReconcilerClosed is returned by Render and Teardown after Teardown.
var ErrReconcilerClosed = errors.New("reconcile: reconciler closed")

// State is the lifecycle state of a Reconciler.
type State uint8

const (
	// StateIdle means nothing was rendered yet.
	StateIdle State = iota
	// StateCommitted means the live tree matches the committed tree.
	StateCommitted
	// StateDegraded means the last script failed part-way; the live tree is
	// unknown and the next render resyncs from scratch.
	StateDegraded
	// StateClosed is terminal.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCommitted:
		return "committed"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Phase tells why a script was applied.
type Phase string

const (
	PhaseRender   Phase = "render"
	PhaseResync   Phase = "resync"
	PhaseTeardown Phase = "teardown"
)

// ScriptEvent describes one script applied to the host, successful or not.
type ScriptEvent struct {
	Surface string
	Seq     uint64 // per reconciler, starting at 1
	Phase   Phase
	Time    time.Time
	Script  dom.Script
	Applied int   // number of ops that completed
	Err     error // nil on success
}

// Failed reports whether the script stopped early.
func (e ScriptEvent) Failed() bool { return e.Err != nil }

// Observer receives every script a Reconciler applies. Observers run
// synchronously on the rendering goroutine.
type Observer interface {
	ObserveScript(ScriptEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ScriptEvent)

// ObserveScript calls f(e).
func (f ObserverFunc) ObserveScript(e ScriptEvent) { f(e) }

// appliedOps returns how many ops of script completed given the error
// returned by the patcher.
func appliedOps(script dom.Script, err error) int {
	if err == nil {
		return len(script)
	}
	var perr *patch.PatchError
	if errors.As(err, &perr) {
		return perr.OpIndex
	}
	return 0
}
