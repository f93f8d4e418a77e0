package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/host/memhost"
	"github.com/arcadiusmc/delphi/pkg/host/remote"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/protocol"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
)

func button(key, text string) *dom.Node {
	return dom.El(dom.KindButton, dom.Key(key), dom.Attr{Name: "label", Value: dom.String(text)})
}

func serve(t *testing.T, open remote.Opener, opts ...remote.BridgeOption) (*remote.Bridge, string) {
	t.Helper()
	bridge := remote.NewBridge(open, opts...)
	srv := httptest.NewServer(bridge)
	t.Cleanup(func() {
		bridge.Close()
		srv.Close()
	})
	return bridge, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func hostOpener(host *memhost.Host) remote.Opener {
	return func(r *http.Request, surface string) (patch.HostAdapter, error) {
		return host, nil
	}
}

func dial(t *testing.T, url string, opts ...remote.ClientOption) *remote.Client {
	t.Helper()
	client, err := remote.Dial(context.Background(), url, "shop:steve", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestReconcileOverBridge(t *testing.T) {
	ctx := context.Background()
	host := memhost.New()
	_, url := serve(t, hostOpener(host))
	client := dial(t, url)
	assert.Equal(t, "shop:steve", client.Surface())

	r := reconcile.New(client)

	v1 := dom.El(dom.KindMenu, button("a", "Go"), button("b", "Cancel"))
	require.NoError(t, r.Render(ctx, v1))
	assert.True(t, host.Matches(v1))

	v2 := dom.El(dom.KindMenu, button("b", "Cancel"), button("a", "Stop"), dom.Text("hint"))
	require.NoError(t, r.Render(ctx, v2))
	assert.True(t, host.Matches(v2))

	require.NoError(t, r.Teardown(ctx))
	assert.True(t, host.Matches(nil))
	assert.Zero(t, host.Count())
}

func TestHostFailureBecomesPatchError(t *testing.T) {
	ctx := context.Background()
	host := memhost.New(memhost.WithFailure(func(c memhost.Call) error {
		if c.Method == memhost.MethodUpdate {
			return errors.New("host rejected update")
		}
		return nil
	}))
	_, url := serve(t, hostOpener(host))
	r := reconcile.New(dial(t, url))

	require.NoError(t, r.Render(ctx, dom.El(dom.KindMenu, button("a", "A"))))
	err := r.Render(ctx, dom.El(dom.KindMenu, button("a", "B")))

	var perr *patch.PatchError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, perr.OpIndex)

	var em *protocol.ErrorMessage
	require.ErrorAs(t, err, &em)
	assert.Equal(t, protocol.ErrHostFailure, em.Code)
	assert.False(t, em.Fatal)
	assert.Contains(t, em.Message, "host rejected update")
	assert.Equal(t, reconcile.StateDegraded, r.State())
}

func TestSurfaceRejected(t *testing.T) {
	_, url := serve(t, func(r *http.Request, surface string) (patch.HostAdapter, error) {
		return nil, errors.New("no such screen")
	})

	_, err := remote.Dial(context.Background(), url, "missing")

	var em *protocol.ErrorMessage
	require.ErrorAs(t, err, &em)
	assert.Equal(t, protocol.ErrSurfaceRejected, em.Code)
	assert.True(t, em.Fatal)
	assert.Equal(t, "no such screen", em.Message)
}

func TestVersionMismatch(t *testing.T) {
	_, url := serve(t, hostOpener(memhost.New()))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := protocol.EncodeHello(&protocol.Hello{Version: protocol.Version{Major: 9}, Surface: "x"})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, protocol.NewFrame(protocol.FrameHello, hello).Encode()))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	frame, err := protocol.DecodeFrame(msg)
	require.NoError(t, err)
	require.Equal(t, protocol.FrameError, frame.Type)

	em, err := protocol.DecodeErrorMessage(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrVersionMismatch, em.Code)
	assert.True(t, em.Fatal)
}

func TestUnknownRefAndForeignHandle(t *testing.T) {
	ctx := context.Background()
	_, url := serve(t, hostOpener(memhost.New()))
	client := dial(t, url)

	err := client.MoveElement(ctx, protocol.Ref(99), 0)
	var em *protocol.ErrorMessage
	require.ErrorAs(t, err, &em)
	assert.Equal(t, protocol.ErrUnknownRef, em.Code)

	assert.ErrorIs(t, client.RemoveElement(ctx, "nope"), remote.ErrForeignHandle)
	assert.ErrorIs(t, client.RemoveElement(ctx, protocol.Ref(0)), remote.ErrForeignHandle)

	// the connection survives non-fatal errors
	h, err := client.CreateElement(ctx, nil, 0, dom.KindDiv, dom.Attrs{})
	require.NoError(t, err)
	assert.Equal(t, protocol.Ref(1), h)
}

type blockingHost struct {
	*memhost.Host
	release chan struct{}
}

func (b *blockingHost) UpdateElement(ctx context.Context, h patch.Handle, diff dom.AttrDiff) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.Host.UpdateElement(ctx, h, diff)
}

func TestCallTimeout(t *testing.T) {
	ctx := context.Background()
	host := &blockingHost{Host: memhost.New(), release: make(chan struct{})}
	t.Cleanup(func() { close(host.release) })

	_, url := serve(t, func(r *http.Request, surface string) (patch.HostAdapter, error) {
		return host, nil
	})
	client := dial(t, url, remote.WithCallTimeout(50*time.Millisecond))

	h, err := client.CreateElement(ctx, nil, 0, dom.KindButton, dom.Attrs{})
	require.NoError(t, err)

	err = client.UpdateElement(ctx, h, dom.AttrDiff{{Name: "label", Action: dom.AttrAdded, New: dom.String("x")}})
	assert.ErrorIs(t, err, remote.ErrCallTimeout)

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("client still open after a timed out call")
	}
	_, err = client.CreateElement(ctx, nil, 0, dom.KindDiv, dom.Attrs{})
	assert.ErrorIs(t, err, remote.ErrCallTimeout)
}

func TestLateCreateIsDisposed(t *testing.T) {
	ctx := context.Background()
	host := memhost.New(memhost.WithFailure(func(c memhost.Call) error {
		if c.Method == memhost.MethodCreate && c.Kind == dom.KindMenu {
			time.Sleep(150 * time.Millisecond)
		}
		return nil
	}))
	_, url := serve(t, hostOpener(host))
	client := dial(t, url, remote.WithCallTimeout(50*time.Millisecond))

	r := reconcile.New(client)
	tree := dom.El(dom.KindMenu, button("a", "Go"))

	err := r.Render(ctx, tree)
	require.ErrorIs(t, err, remote.ErrCallTimeout)
	assert.Equal(t, reconcile.StateDegraded, r.State())
	<-client.Done()

	// The bridge still creates the menu after the client gave up on it.
	require.Eventually(t, func() bool { return host.Count() == 0 && len(host.Calls()) >= 2 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, memhost.MethodRemove, host.Calls()[len(host.Calls())-1].Method)

	err = r.Render(ctx, tree)
	assert.Error(t, err)
	assert.NotEqual(t, reconcile.StateCommitted, r.State())
	assert.Zero(t, host.Count())

	r.Teardown(ctx)
	assert.Zero(t, host.Count())
	assert.True(t, host.Matches(nil))
}

func TestCloseEndsConnection(t *testing.T) {
	ctx := context.Background()
	closed := make(chan string, 1)
	bridge, url := serve(t, hostOpener(memhost.New()), remote.WithOnClose(func(surface string, _ patch.HostAdapter) {
		closed <- surface
	}))

	client, err := remote.Dial(ctx, url, "bank")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return bridge.Connections() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Close())

	select {
	case surface := <-closed:
		assert.Equal(t, "bank", surface)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose was not called")
	}
	assert.Eventually(t, func() bool { return bridge.Connections() == 0 }, time.Second, 5*time.Millisecond)

	<-client.Done()
	_, err = client.CreateElement(ctx, nil, 0, dom.KindDiv, dom.Attrs{})
	assert.ErrorIs(t, err, remote.ErrClosed)
}

func TestSameOriginCheck(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://host:7070/bridge", nil)
	assert.True(t, remote.SameOriginCheck(r))

	r.Header.Set("Origin", "http://host:7070")
	assert.True(t, remote.SameOriginCheck(r))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, remote.SameOriginCheck(r))
}
