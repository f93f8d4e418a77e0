package reconcile

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/telemetry"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. Default: slog.Default() with component=reconcile.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithTracer sets the tracer. Default: the global provider's "delphi" tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Reconciler) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithObserver adds an observer for applied scripts.
func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithSurfaceID names the surface in logs, spans and script events.
func WithSurfaceID(id string) Option {
	return func(r *Reconciler) { r.surface = id }
}

// Reconciler keeps one host surface in sync with successive trees.
//
// Render and Teardown must not be called concurrently; callers serialize
// them (surface.Manager does).
type Reconciler struct {
	patcher *patch.Patcher
	state   State
	tree    *dom.Node
	renders uint64
	seq     uint64

	surface   string
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	observers []Observer
}

// New creates an Idle reconciler driving adapter.
func New(adapter patch.HostAdapter, opts ...Option) *Reconciler {
	r := &Reconciler{
		logger: slog.Default().With("component", "reconcile"),
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.surface != "" {
		r.logger = r.logger.With("surface", r.surface)
	}
	r.patcher = patch.New(adapter, patch.WithLogger(r.logger))
	return r
}

// State returns the current state.
func (r *Reconciler) State() State { return r.state }

// Tree returns the committed tree, or nil. In StateDegraded it is the last
// tree that was fully applied, not what the host shows.
func (r *Reconciler) Tree() *dom.Node { return r.tree }

// Renders returns the number of successful renders.
func (r *Reconciler) Renders() uint64 { return r.renders }

// Live returns the number of live host objects the reconciler tracks.
func (r *Reconciler) Live() int { return r.patcher.Live() }

// SurfaceID returns the surface name given with WithSurfaceID.
func (r *Reconciler) SurfaceID() string { return r.surface }

// Render makes the host show tree. A nil tree empties the surface.
//
// On success the reconciler is Committed to tree. If an adapter call fails
// the reconciler becomes Degraded and the *patch.PatchError is returned; the
// next Render first removes every live object it still tracks, then builds
// the tree from scratch.
func (r *Reconciler) Render(ctx context.Context, tree *dom.Node) (err error) {
	if r.state == StateClosed {
		return ErrReconcilerClosed
	}

	start := time.Now()
	resync := r.state == StateDegraded
	ctx, span := telemetry.StartSpan(ctx, r.tracer, "delphi.render",
		telemetry.AttrSurface.String(r.surface),
		telemetry.AttrState.String(r.state.String()),
		telemetry.AttrNodes.Int(tree.Count()),
		telemetry.AttrResynced.Bool(resync),
	)
	defer func() {
		telemetry.EndSpan(span, err)
		result := telemetry.ResultOK
		if err != nil {
			result = telemetry.ResultError
		}
		r.metrics.ObserveRender(result, time.Since(start))
	}()

	prev := r.tree
	if resync {
		r.metrics.ObserveResync()
		script, err := r.patcher.Teardown(ctx)
		r.observe(PhaseResync, script, err)
		if err != nil {
			r.logger.Warn("resync teardown failed", "error", err, "live", r.patcher.Live())
			return err
		}
		r.logger.Debug("resync teardown", "ops", len(script))
		prev = nil
	}

	script := dom.Diff(prev, tree)
	span.SetAttributes(telemetry.AttrOpCount.Int(len(script)))

	if err := r.patcher.Apply(ctx, script); err != nil {
		r.observe(PhaseRender, script, err)
		r.state = StateDegraded
		if resync {
			r.tree = nil
		}
		span.SetAttributes(telemetry.AttrOpIndex.Int(appliedOps(script, err)))
		r.logger.Warn("render failed", "error", err, "ops", len(script))
		return err
	}
	r.observe(PhaseRender, script, nil)

	r.state = StateCommitted
	r.tree = tree
	r.renders++
	r.logger.Debug("render committed",
		"ops", len(script),
		"nodes", tree.Count(),
		"duration", time.Since(start),
	)
	return nil
}

// Teardown removes every live object, one Remove per object, children before
// parents. The reconciler is Closed afterwards even if a removal failed; the
// failure is returned.
func (r *Reconciler) Teardown(ctx context.Context) (err error) {
	if r.state == StateClosed {
		return ErrReconcilerClosed
	}

	ctx, span := telemetry.StartSpan(ctx, r.tracer, "delphi.teardown",
		telemetry.AttrSurface.String(r.surface),
		telemetry.AttrState.String(r.state.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	script, err := r.patcher.Teardown(ctx)
	r.observe(PhaseTeardown, script, err)
	span.SetAttributes(telemetry.AttrOpCount.Int(len(script)))

	r.state = StateClosed
	r.tree = nil

	if err != nil {
		r.metrics.ObserveTeardown(telemetry.ResultError)
		r.logger.Warn("teardown failed", "error", err, "leaked", r.patcher.Live())
		return err
	}
	r.metrics.ObserveTeardown(telemetry.ResultOK)
	r.logger.Debug("teardown", "ops", len(script))
	return nil
}

func (r *Reconciler) observe(phase Phase, script dom.Script, err error) {
	applied := appliedOps(script, err)
	r.metrics.ObserveScript(script, applied, err != nil)

	r.seq++
	if len(r.observers) == 0 {
		return
	}
	e := ScriptEvent{
		Surface: r.surface,
		Seq:     r.seq,
		Phase:   phase,
		Time:    time.Now(),
		Script:  script,
		Applied: applied,
		Err:     err,
	}
	for _, o := range r.observers {
		o.ObserveScript(e)
	}
}
