package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/page"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
	"github.com/arcadiusmc/delphi/pkg/surface"
)

// pageSync keeps one surface per page in sync with the page files.
type pageSync struct {
	app     *app
	manager *surface.Manager
	open    func(ctx context.Context, id string) (patch.HostAdapter, error)
	logger  *slog.Logger

	// last script applied per surface, set by the observer
	last map[string]dom.Script
}

func newPageSync(a *app, open func(ctx context.Context, id string) (patch.HostAdapter, error), opts ...surface.Option) *pageSync {
	ps := &pageSync{
		app:    a,
		open:   open,
		logger: a.logger.With("component", "pages"),
		last:   make(map[string]dom.Script),
	}
	opts = append(opts,
		surface.WithLogger(a.logger),
		surface.WithReconcileOptions(reconcile.WithObserver(reconcile.ObserverFunc(func(e reconcile.ScriptEvent) {
			if e.Phase == reconcile.PhaseRender {
				ps.last[e.Surface] = e.Script
			}
		}))),
	)
	ps.manager = surface.NewManager(opts...)
	return ps
}

// handle applies one watcher event. Watcher callbacks never overlap, so the
// observer map needs no lock.
func (ps *pageSync) handle(ctx context.Context, e page.Event) {
	id := e.Name()

	switch {
	case e.Err != nil:
		errors.Fprint(ps.app.errOut, e.Err)

	case e.Removed:
		if _, ok := ps.manager.Get(id); !ok {
			return
		}
		if err := ps.close(ctx, id); err != nil {
			ps.logger.Warn("close failed", "surface", id, "error", err)
		}
		ps.app.warn("%s removed", id)

	default:
		s, ok := ps.manager.Get(id)
		if !ok {
			adapter, err := ps.open(ctx, id)
			if err != nil {
				errors.Fprint(ps.app.errOut, err)
				return
			}
			if s, err = ps.manager.Open(id, adapter); err != nil {
				closeAdapter(adapter)
				ps.logger.Warn("open failed", "surface", id, "error", err)
				return
			}
		}

		if err := s.Render(ctx, e.Page.Tree); err != nil {
			ps.app.warn("%s: %v", id, err)
			return
		}
		script := ps.last[id]
		info := s.Info()
		if len(script) == 0 {
			ps.app.success("%s unchanged (%d elements)", id, info.Nodes)
			return
		}
		ps.app.success("%s rendered: %s (%d elements)", id, summarize(script), info.Nodes)
	}
}

func (ps *pageSync) close(ctx context.Context, id string) error {
	s, ok := ps.manager.Get(id)
	if !ok {
		return nil
	}
	err := ps.manager.Close(ctx, id)
	closeAdapter(s.Adapter())
	return err
}

// closeAll tears every surface down.
func (ps *pageSync) closeAll(ctx context.Context) error {
	infos := ps.manager.List()
	adapters := make([]patch.HostAdapter, 0, len(infos))
	for _, info := range infos {
		if s, ok := ps.manager.Get(info.ID); ok {
			adapters = append(adapters, s.Adapter())
		}
	}
	err := ps.manager.CloseAll(ctx)
	for _, adapter := range adapters {
		closeAdapter(adapter)
	}
	return err
}

func closeAdapter(adapter patch.HostAdapter) {
	if c, ok := adapter.(io.Closer); ok {
		c.Close()
	}
}
