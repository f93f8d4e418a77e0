package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
	"github.com/arcadiusmc/delphi/pkg/telemetry"
)

func menu(labels ...string) *dom.Node {
	children := make([]any, len(labels))
	for i, l := range labels {
		children[i] = dom.El(dom.KindButton, dom.Key(l), dom.Attr{Name: "label", Value: dom.String(l)})
	}
	return dom.El(dom.KindMenu, children...)
}

func TestOpenRenderClose(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	host := memhost.New()

	s, err := m.Open("shop", host)
	require.NoError(t, err)
	assert.Equal(t, "shop", s.ID())
	assert.Same(t, host, s.Adapter())

	_, err = m.Open("shop", memhost.New())
	assert.ErrorIs(t, err, ErrSurfaceExists)
	_, err = m.Open("", host)
	assert.ErrorIs(t, err, ErrEmptyID)

	tree := menu("buy", "sell")
	require.NoError(t, m.Render(ctx, "shop", tree))
	assert.True(t, host.Matches(tree))
	assert.Same(t, tree, s.Tree())

	info, snap := s.Snapshot()
	assert.Same(t, tree, snap)
	assert.Equal(t, reconcile.StateCommitted, info.State)
	assert.Equal(t, 3, info.Nodes)

	got, ok := m.Get("shop")
	require.True(t, ok)
	assert.Same(t, s, got)

	require.NoError(t, m.Close(ctx, "shop"))
	assert.Zero(t, host.Count())
	assert.Zero(t, m.Count())

	assert.ErrorIs(t, m.Render(ctx, "shop", tree), ErrUnknownSurface)
	assert.ErrorIs(t, m.Close(ctx, "shop"), ErrUnknownSurface)
	assert.ErrorIs(t, s.Render(ctx, tree), reconcile.ErrReconcilerClosed, "a closed surface stays closed")
}

func TestListAndStats(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	for _, id := range []string{"c", "a", "b"} {
		_, err := m.Open(id, memhost.New())
		require.NoError(t, err)
	}
	require.NoError(t, m.Render(ctx, "b", menu("x", "y")))

	infos := m.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "a", infos[0].ID)
	assert.Equal(t, reconcile.StateIdle, infos[0].State)
	assert.Equal(t, "b", infos[1].ID)
	assert.Equal(t, reconcile.StateCommitted, infos[1].State)
	assert.Equal(t, 3, infos[1].Nodes)
	assert.Equal(t, uint64(1), infos[1].Renders)
	assert.False(t, infos[1].OpenedAt.IsZero())

	data, err := json.Marshal(infos[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"committed"`)

	require.NoError(t, m.Close(ctx, "a"))
	stats := m.Stats()
	assert.Equal(t, Stats{Active: 2, TotalOpened: 3, TotalClosed: 1, Peak: 3}, stats)
}

func TestCloseAllJoinsErrors(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	stuck := memhost.New(memhost.WithFailure(func(c memhost.Call) error {
		if c.Method == memhost.MethodRemove {
			return errors.New("stuck")
		}
		return nil
	}))
	fine := memhost.New()

	_, err := m.Open("stuck", stuck)
	require.NoError(t, err)
	_, err = m.Open("fine", fine)
	require.NoError(t, err)
	require.NoError(t, m.Render(ctx, "stuck", menu("a")))
	require.NoError(t, m.Render(ctx, "fine", menu("a")))

	err = m.CloseAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surface stuck")
	assert.NotContains(t, err.Error(), "surface fine")

	assert.Zero(t, m.Count())
	assert.Zero(t, fine.Count())
	assert.Equal(t, uint64(2), m.Stats().TotalClosed)
}

func TestConcurrentSurfaces(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	hosts := make([]*memhost.Host, 8)
	for i := range hosts {
		hosts[i] = memhost.New()
		_, err := m.Open(fmt.Sprintf("s%d", i), hosts[i])
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := range hosts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			for j := 0; j < 20; j++ {
				labels := make([]string, j%5)
				for k := range labels {
					labels[k] = fmt.Sprintf("b%d", (k+j)%7)
				}
				assert.NoError(t, m.Render(ctx, id, menu(labels...)))
				m.List()
			}
		}(i)
	}
	wg.Wait()

	for i, h := range hosts {
		s, _ := m.Get(fmt.Sprintf("s%d", i))
		assert.True(t, h.Matches(s.Tree()))
	}
}

func TestManagerMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(reg))
	m := NewManager(WithMetrics(metrics))

	_, err := m.Open("a", memhost.New())
	require.NoError(t, err)
	_, err = m.Open("b", memhost.New())
	require.NoError(t, err)
	require.NoError(t, m.Render(ctx, "a", menu("x")))
	require.NoError(t, m.Close(ctx, "b"))

	expected := `
# HELP delphi_active_surfaces Number of open surfaces
# TYPE delphi_active_surfaces gauge
delphi_active_surfaces 1
# HELP delphi_renders_total Total number of renders by result
# TYPE delphi_renders_total counter
delphi_renders_total{result="ok"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected), "delphi_active_surfaces", "delphi_renders_total")
	assert.NoError(t, err)
}
