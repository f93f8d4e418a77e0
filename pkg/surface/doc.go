// Package surface keeps one Reconciler per UI surface.
//
// A surface is anything a host displays as one tree: a chest menu, a
// dialogue screen, a hologram. Manager indexes surfaces by id and
// serializes Render and Close per surface, so callers on different
// goroutines can drive different surfaces at once:
//
//	m := surface.NewManager(surface.WithMetrics(metrics))
//	s, err := m.Open("shop:steve", adapter)
//	err = m.Render(ctx, "shop:steve", tree)
//	defer m.CloseAll(ctx)
package surface
