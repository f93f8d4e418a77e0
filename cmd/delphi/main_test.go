package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadiusmc/delphi/internal/config"
	"github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/host/remote"
	"github.com/arcadiusmc/delphi/pkg/journal"
	"github.com/arcadiusmc/delphi/pkg/page"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
)

// run executes the CLI with args against an empty config file and returns
// stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "delphi.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"log": {"level": "error", "format": "text"}}`), 0o644))

	var out, errOut bytes.Buffer
	root := (&app{}).rootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color", "--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// testApp returns an app wired for direct calls, bypassing cobra.
func testApp(out io.Writer) *app {
	return &app{
		out:    out,
		errOut: out,
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		green:  colorFunc(false, color.FgGreen),
		red:    colorFunc(false, color.FgRed),
		yellow: colorFunc(false, color.FgYellow),
		cyan:   colorFunc(false, color.FgCyan),
		gray:   colorFunc(false, color.FgHiBlack),
	}
}

// syncBuffer is a bytes.Buffer safe for the bridge's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writePage(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestMissingConfig(t *testing.T) {
	root := (&app{}).rootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.json"), "print", "x.xml"})
	err := root.Execute()
	assert.Equal(t, "D001", errors.Code(err))
}

func TestBadLogLevelFlag(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "version")
	assert.Equal(t, "D003", errors.Code(err))
}

func TestPrint(t *testing.T) {
	dir := t.TempDir()
	path := writePage(t, dir, "shop.xml", `<page>
  <head><option name="title" value="Shop"/></head>
  <body><menu key="m"><button key="buy">Buy</button></menu></body>
</page>`)

	out, err := run(t, "print", "--compact", path)
	require.NoError(t, err)
	assert.Contains(t, out, `<page><head><option name="title" value="Shop"/></head><body><menu key="m"><button key="buy">Buy</button></menu></body></page>`)

	out, err = run(t, "print", "--tree", "--compact", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "<page>")
	assert.Contains(t, out, `<body><menu key="m">`)

	_, err = run(t, "print", filepath.Join(dir, "missing.xml"))
	assert.Equal(t, "D012", errors.Code(err))
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	oldPath := writePage(t, dir, "old.xml", `<menu><button key="a" label="A"/></menu>`)
	newPath := writePage(t, dir, "new.xml", `<menu><button key="a" label="B"/><button key="b"/></menu>`)

	out, err := run(t, "diff", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "~ Update(")
	assert.Contains(t, out, "+ Insert(")
	assert.Contains(t, out, "2 ops: 1 insert, 1 update")

	out, err = run(t, "diff", "--verify", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "verified on 3 live elements")

	out, err = run(t, "diff", oldPath, oldPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")
}

func TestDiffText(t *testing.T) {
	dir := t.TempDir()
	oldPath := writePage(t, dir, "old.xml", `<menu><button key="a" label="A"/></menu>`)
	newPath := writePage(t, dir, "new.xml", `<menu><button key="a" label="B"/></menu>`)

	out, err := run(t, "diff", "--text", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, out, `-   <button key="a" label="A"/>`)
	assert.Contains(t, out, `+   <button key="a" label="B"/>`)
	assert.Contains(t, out, "  <menu>")
}

func TestSummarize(t *testing.T) {
	tree := dom.El(dom.KindMenu, dom.El(dom.KindButton))
	assert.Equal(t, "1 op: 1 insert", summarize(dom.Diff(nil, tree)))
	assert.Equal(t, "1 op: 1 remove", summarize(dom.Diff(tree, nil)))
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.journal")

	tree := dom.El(dom.KindMenu,
		dom.El(dom.KindButton, dom.Key("a"), dom.Attr{Name: "label", Value: dom.String("A")}),
		dom.El(dom.KindButton, dom.Key("b"), dom.Attr{Name: "label", Value: dom.String("B")}),
	)
	w, err := journal.Create(path)
	require.NoError(t, err)
	script := dom.Diff(nil, tree)
	require.NoError(t, w.Write(reconcile.ScriptEvent{
		Surface: "shop",
		Seq:     1,
		Phase:   reconcile.PhaseRender,
		Time:    time.Now(),
		Script:  script,
		Applied: len(script),
	}))
	require.NoError(t, w.Close())

	out, err := run(t, "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "shop  3 elements  ok")
	assert.Contains(t, out, "1 records (0 failed) across 1 surfaces")

	out, err = run(t, "replay", "--tree", "--surface", "shop", path)
	require.NoError(t, err)
	assert.Contains(t, out, `<button label="B"/>`, "host snapshots carry no keys")

	_, err = run(t, "replay", "--surface", "lobby", path)
	assert.Equal(t, "D040", errors.Code(err))

	_, err = run(t, "replay")
	assert.Equal(t, "D040", errors.Code(err), "no journal configured")
}

func TestPageSync(t *testing.T) {
	var out bytes.Buffer
	a := testApp(&out)

	hosts := make(map[string]*memhost.Host)
	ps := newPageSync(a, func(_ context.Context, id string) (patch.HostAdapter, error) {
		h := memhost.New()
		hosts[id] = h
		return h, nil
	})
	ctx := context.Background()

	load := func(src string) page.Event {
		p, err := page.ParseString(src)
		require.NoError(t, err)
		return page.Event{Path: "pages/shop.xml", Page: p}
	}

	ps.handle(ctx, load(`<menu><button key="a"/></menu>`))
	assert.Contains(t, out.String(), "shop rendered: 1 op: 1 insert (2 elements)")
	require.Contains(t, hosts, "shop")
	assert.Equal(t, 2, hosts["shop"].Count())

	out.Reset()
	ps.handle(ctx, load(`<menu><button key="a"/></menu>`))
	assert.Contains(t, out.String(), "shop unchanged (2 elements)")

	out.Reset()
	ps.handle(ctx, page.Event{Path: "pages/shop.xml", Err: errors.New("D011")})
	assert.Contains(t, out.String(), "D011")
	assert.Equal(t, 1, ps.manager.Count(), "a bad page keeps the surface")

	out.Reset()
	ps.handle(ctx, page.Event{Path: "pages/shop.xml", Removed: true})
	assert.Contains(t, out.String(), "shop removed")
	assert.Equal(t, 0, ps.manager.Count())
	assert.Zero(t, hosts["shop"].Count())
}

func TestWatchRendersPages(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "lobby.xml", `<menu><button key="play"/></menu>`)

	var out bytes.Buffer
	a := testApp(&out)
	ps := newPageSync(a, func(context.Context, string) (patch.HostAdapter, error) {
		return memhost.New(), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, a.runPages(ctx, dir, ps))

	assert.Contains(t, out.String(), "lobby rendered")
	assert.Zero(t, ps.manager.Count(), "surfaces closed on exit")
}

func TestHostBridge(t *testing.T) {
	var out syncBuffer
	a := testApp(&out)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.host(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + a.cfg.Bridge.Path
	client, err := remote.Dial(context.Background(), url, "shop")
	require.NoError(t, err)

	p := patch.New(client)
	tree := dom.El(dom.KindMenu, dom.El(dom.KindButton, dom.Key("a")))
	require.NoError(t, p.Apply(context.Background(), dom.Diff(nil, tree)))
	assert.Equal(t, 2, p.Live())
	require.NoError(t, client.Close())

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "surface shop closed with 0 elements left")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "surface shop connected")

	cancel()
	assert.NoError(t, <-done)
}
