package patch_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/patch"
)

func button(key, text string) *dom.Node {
	return dom.El(dom.KindButton, dom.Key(key), dom.Attr{Name: "label", Value: dom.String(text)})
}

func render(t *testing.T, p *patch.Patcher, prev, next *dom.Node) dom.Script {
	t.Helper()
	script := dom.Diff(prev, next)
	require.NoError(t, p.Apply(context.Background(), script))
	return script
}

func TestApplyInsertCreatesParentFirst(t *testing.T) {
	host := memhost.New()
	p := patch.New(host)

	tree := dom.El(dom.KindMenu, button("a", "A"), dom.El(dom.KindDiv, dom.Text("x")))
	render(t, p, nil, tree)

	assert.True(t, host.Matches(tree))
	assert.Equal(t, 4, p.Live())

	var got []string
	for _, c := range host.Calls() {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{
		"create menu #1 under #0 at 0",
		"create button #2 under #1 at 0",
		"create div #3 under #1 at 1",
		"create text #4 under #3 at 0",
	}, got)
}

func TestApplyScenarioUpdateThenInsert(t *testing.T) {
	host := memhost.New()
	p := patch.New(host)

	v1 := dom.El(dom.KindMenu, button("a", "Go"))
	v2 := dom.El(dom.KindMenu, button("a", "Stop"), button("b", "Cancel"))

	render(t, p, nil, v1)
	host.ResetCalls()
	render(t, p, v1, v2)

	calls := host.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, memhost.MethodUpdate, calls[0].Method)
	assert.Equal(t, 2, calls[0].ID, "the existing button is updated, not recreated")
	assert.Equal(t, memhost.MethodCreate, calls[1].Method)
	assert.Equal(t, 1, calls[1].Index)
	assert.True(t, host.Matches(v2))
}

func TestApplyRemoveIsPostOrder(t *testing.T) {
	host := memhost.New()
	p := patch.New(host)

	tree := dom.El(dom.KindMenu, dom.El(dom.KindDiv, button("a", "A"), button("b", "B")))
	render(t, p, nil, tree)
	host.ResetCalls()

	render(t, p, tree, dom.El(dom.KindMenu))

	var ids []int
	for _, c := range host.Calls() {
		require.Equal(t, memhost.MethodRemove, c.Method)
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int{4, 3, 2}, ids)
	assert.Equal(t, 1, p.Live())
}

func TestApplyReplaceDestroysThenCreates(t *testing.T) {
	host := memhost.New()
	p := patch.New(host)

	v1 := dom.El(dom.KindDiv, dom.El(dom.KindButton, dom.Text("x")))
	v2 := dom.El(dom.KindDiv, dom.El(dom.KindItem))
	render(t, p, nil, v1)
	host.ResetCalls()

	script := render(t, p, v1, v2)

	require.Len(t, script, 1)
	assert.Equal(t, dom.OpReplace, script[0].Type)
	var methods []memhost.Method
	for _, c := range host.Calls() {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []memhost.Method{memhost.MethodRemove, memhost.MethodRemove, memhost.MethodCreate}, methods)
	assert.True(t, host.Matches(v2))
	assert.Equal(t, 2, p.Live())
}

func TestApplyFailureReportsOpIndex(t *testing.T) {
	boom := errors.New("update rejected")
	host := memhost.New(memhost.WithFailure(func(c memhost.Call) error {
		if c.Method == memhost.MethodUpdate {
			return boom
		}
		return nil
	}))
	p := patch.New(host)

	v1 := dom.El(dom.KindMenu, button("a", "A"), button("b", "B"))
	render(t, p, nil, v1)

	script := dom.Script{
		{Type: dom.OpInsert, Parent: dom.Path{0}, Index: 2, Node: button("c", "C")},
		{Type: dom.OpUpdate, Parent: dom.Path{0}, Index: 0, Attrs: dom.DiffAttrs(v1.Child(0).Attrs(), button("a", "A2").Attrs())},
		{Type: dom.OpRemove, Parent: dom.Path{0}, Index: 1},
	}
	err := p.Apply(context.Background(), script)

	var perr *patch.PatchError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.OpIndex)
	assert.Equal(t, dom.OpUpdate, perr.Op.Type)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "op 1 Update(/0, 0")

	// the insert before the failure stays live, the remove after it never ran
	assert.Equal(t, 4, p.Live())
	assert.Equal(t, 4, host.Count())
}

func TestApplyUnresolvableAddress(t *testing.T) {
	p := patch.New(memhost.New())

	err := p.Apply(context.Background(), dom.Script{{Type: dom.OpRemove, Parent: dom.Path{}, Index: 0}})

	var perr *patch.PatchError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, perr.OpIndex)
	assert.ErrorIs(t, err, patch.ErrNoBinding)
}

func TestApplyCanceledContext(t *testing.T) {
	p := patch.New(memhost.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Apply(ctx, dom.Diff(nil, dom.El(dom.KindDiv)))

	var perr *patch.PatchError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.Live())
}

func TestTeardownRemovesEveryBinding(t *testing.T) {
	host := memhost.New()
	p := patch.New(host)

	tree := dom.El(dom.KindMenu,
		dom.El(dom.KindDiv, button("a", "A"), button("b", "B")),
		button("c", "C"),
	)
	render(t, p, nil, tree)
	host.ResetCalls()

	script, err := p.Teardown(context.Background())
	require.NoError(t, err)

	assert.Len(t, script, 5)
	assert.Equal(t, 5, script.Count(dom.OpRemove))
	assert.Len(t, host.Calls(), 5)
	assert.Zero(t, p.Live())
	assert.True(t, host.Matches(nil))
}

func TestTeardownAfterPartialFailure(t *testing.T) {
	failing := true
	host := memhost.New(memhost.WithFailure(func(c memhost.Call) error {
		if failing && c.Method == memhost.MethodCreate && c.Kind == dom.KindText {
			return errors.New("no text here")
		}
		return nil
	}))
	p := patch.New(host)

	tree := dom.El(dom.KindDiv, button("a", "A"), dom.Text("x"), button("b", "B"))
	require.Error(t, p.Apply(context.Background(), dom.Diff(nil, tree)))
	assert.Equal(t, 2, p.Live(), "div and first button were created")

	failing = false
	script, err := p.Teardown(context.Background())
	require.NoError(t, err)
	assert.Len(t, script, 2)
	assert.Zero(t, host.Count())
}

func TestLookup(t *testing.T) {
	host := memhost.New()
	p := patch.New(host)
	render(t, p, nil, dom.El(dom.KindMenu, button("a", "A")))

	h, ok := p.Lookup(dom.Path{0, 0})
	require.True(t, ok)
	assert.Equal(t, dom.KindButton, h.(*memhost.Element).Kind())

	_, ok = p.Lookup(dom.Path{0, 3})
	assert.False(t, ok)
	_, ok = p.Lookup(nil)
	assert.False(t, ok)
}

// TestRandomRoundTrip renders a chain of random trees and checks that the
// live tree always matches the last one rendered.
func TestRandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	host := memhost.New()
	p := patch.New(host)

	var prev *dom.Node
	for i := 0; i < 200; i++ {
		next := randomTree(rng, 3)
		if i%17 == 16 {
			next = nil
		}
		render(t, p, prev, next)
		require.True(t, host.Matches(next), "render %d", i)
		require.Equal(t, next.Count(), p.Live(), "render %d", i)
		prev = next
	}
}

var kinds = []dom.Kind{dom.KindDiv, dom.KindMenu, dom.KindButton}

func randomTree(rng *rand.Rand, depth int) *dom.Node {
	args := []any{dom.Attr{Name: "n", Value: dom.Int(int64(rng.IntN(3)))}}
	if rng.IntN(3) > 0 {
		args = append(args, dom.Key(fmt.Sprintf("k%d", rng.IntN(5))))
	}
	if depth > 0 {
		for i, n := 0, rng.IntN(5); i < n; i++ {
			args = append(args, randomTree(rng, depth-1))
		}
	}
	return dom.El(kinds[rng.IntN(len(kinds))], args...)
}
