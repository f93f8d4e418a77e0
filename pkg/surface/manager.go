package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
	"github.com/arcadiusmc/delphi/pkg/telemetry"
)

var (
	// ErrSurfaceExists is returned by Open for an id already in use.
	ErrSurfaceExists = errors.New("surface: id already open")

	// ErrUnknownSurface is returned for ids that are not open.
	ErrUnknownSurface = errors.New("surface: unknown id")

	// ErrEmptyID is returned by Open for an empty id.
	ErrEmptyID = errors.New("surface: empty id")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records surface and render metrics.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithReconcileOptions adds options applied to every surface's Reconciler,
// after the manager's own (logger, metrics, surface id).
func WithReconcileOptions(opts ...reconcile.Option) Option {
	return func(m *Manager) { m.reconcileOpts = append(m.reconcileOpts, opts...) }
}

// Surface is one open surface.
type Surface struct {
	id       string
	openedAt time.Time
	adapter  patch.HostAdapter

	mu  sync.Mutex
	rec *reconcile.Reconciler
}

// ID returns the surface id.
func (s *Surface) ID() string { return s.id }

// Adapter returns the host adapter the surface renders into.
func (s *Surface) Adapter() patch.HostAdapter { return s.adapter }

// Render reconciles the surface to tree.
func (s *Surface) Render(ctx context.Context, tree *dom.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Render(ctx, tree)
}

// Tree returns the last committed tree.
func (s *Surface) Tree() *dom.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Tree()
}

// Info returns a snapshot of the surface.
func (s *Surface) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info()
}

func (s *Surface) info() Info {
	return Info{
		ID:       s.id,
		State:    s.rec.State(),
		Nodes:    s.rec.Live(),
		Renders:  s.rec.Renders(),
		OpenedAt: s.openedAt,
	}
}

// Snapshot returns the surface info together with the committed tree it
// describes.
func (s *Surface) Snapshot() (Info, *dom.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(), s.rec.Tree()
}

func (s *Surface) teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Teardown(ctx)
}

// Info describes one surface.
type Info struct {
	ID       string          `json:"id"`
	State    reconcile.State `json:"state"`
	Nodes    int             `json:"nodes"`
	Renders  uint64          `json:"renders"`
	OpenedAt time.Time       `json:"openedAt"`
}

// Stats contains aggregated manager statistics.
type Stats struct {
	Active      int    `json:"active"`
	TotalOpened uint64 `json:"totalOpened"`
	TotalClosed uint64 `json:"totalClosed"`
	Peak        int    `json:"peak"`
}

// Manager owns the open surfaces.
type Manager struct {
	surfaces map[string]*Surface
	mu       sync.RWMutex
	peak     int

	totalOpened atomic.Uint64
	totalClosed atomic.Uint64

	metrics       *telemetry.Metrics
	reconcileOpts []reconcile.Option
	logger        *slog.Logger
}

// NewManager returns an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		surfaces: make(map[string]*Surface),
		logger:   slog.Default().With("component", "surface"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open registers a new surface rendering into adapter. The surface starts
// Idle; nothing is created on the host until the first Render.
func (m *Manager) Open(id string, adapter patch.HostAdapter) (*Surface, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	opts := []reconcile.Option{
		reconcile.WithLogger(m.logger),
		reconcile.WithMetrics(m.metrics),
		reconcile.WithSurfaceID(id),
	}
	opts = append(opts, m.reconcileOpts...)

	s := &Surface{
		id:       id,
		openedAt: time.Now(),
		adapter:  adapter,
		rec:      reconcile.New(adapter, opts...),
	}

	m.mu.Lock()
	if _, ok := m.surfaces[id]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrSurfaceExists, id)
	}
	m.surfaces[id] = s
	m.peak = max(m.peak, len(m.surfaces))
	m.mu.Unlock()

	m.totalOpened.Add(1)
	m.metrics.SurfaceOpened()
	m.logger.Debug("surface opened", "surface", id)
	return s, nil
}

// Get returns the open surface with id.
func (m *Manager) Get(id string) (*Surface, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.surfaces[id]
	return s, ok
}

// Render reconciles surface id to tree.
func (m *Manager) Render(ctx context.Context, id string, tree *dom.Node) error {
	s, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSurface, id)
	}
	return s.Render(ctx, tree)
}

// Close tears surface id down and forgets it. The surface is forgotten even
// when the teardown fails.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.surfaces[id]
	delete(m.surfaces, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSurface, id)
	}
	return m.close(ctx, s)
}

func (m *Manager) close(ctx context.Context, s *Surface) error {
	err := s.teardown(ctx)
	m.totalClosed.Add(1)
	m.metrics.SurfaceClosed()

	if err != nil {
		m.logger.Warn("surface teardown failed", "surface", s.id, "error", err)
		return fmt.Errorf("surface %s: %w", s.id, err)
	}
	m.logger.Debug("surface closed", "surface", s.id)
	return nil
}

// CloseAll closes every open surface and joins their teardown errors.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	surfaces := make([]*Surface, 0, len(m.surfaces))
	for _, s := range m.surfaces {
		surfaces = append(surfaces, s)
	}
	clear(m.surfaces)
	m.mu.Unlock()

	slices.SortFunc(surfaces, func(a, b *Surface) int { return strings.Compare(a.id, b.id) })

	var errs []error
	for _, s := range surfaces {
		if err := m.close(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// List returns a snapshot of every open surface, ordered by id.
func (m *Manager) List() []Info {
	m.mu.RLock()
	surfaces := make([]*Surface, 0, len(m.surfaces))
	for _, s := range m.surfaces {
		surfaces = append(surfaces, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, len(surfaces))
	for i, s := range surfaces {
		infos[i] = s.Info()
	}
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// Count returns the number of open surfaces.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.surfaces)
}

// Stats returns aggregated statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	active, peak := len(m.surfaces), m.peak
	m.mu.RUnlock()

	return Stats{
		Active:      active,
		TotalOpened: m.totalOpened.Load(),
		TotalClosed: m.totalClosed.Load(),
		Peak:        peak,
	}
}
