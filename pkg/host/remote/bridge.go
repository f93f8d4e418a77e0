package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/protocol"
)

// Opener resolves the adapter for a surface named in a client hello.
// Returning an error rejects the connection.
type Opener func(r *http.Request, surface string) (patch.HostAdapter, error)

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// CheckOrigin validates the upgrade request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// HandshakeTimeout bounds the wait for the client hello. Default: 10s.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single frame write. Default: 5s.
	WriteTimeout time.Duration

	// MaxMessageSize is the websocket read limit. Default: 64KB.
	MaxMessageSize int64

	// OnClose is called once per accepted connection after it ends.
	OnClose func(surface string, adapter patch.HostAdapter)

	Logger *slog.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*BridgeConfig)

// WithCheckOrigin replaces the origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) BridgeOption {
	return func(c *BridgeConfig) { c.CheckOrigin = fn }
}

// WithBridgeHandshakeTimeout sets how long the bridge waits for a hello.
func WithBridgeHandshakeTimeout(d time.Duration) BridgeOption {
	return func(c *BridgeConfig) { c.HandshakeTimeout = d }
}

// WithOnClose registers a callback for ended connections.
func WithOnClose(fn func(surface string, adapter patch.HostAdapter)) BridgeOption {
	return func(c *BridgeConfig) { c.OnClose = fn }
}

// WithBridgeLogger sets the bridge logger.
func WithBridgeLogger(logger *slog.Logger) BridgeOption {
	return func(c *BridgeConfig) { c.Logger = logger }
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host equals the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}

// Bridge is an http.Handler that accepts Client connections and executes
// their calls against local adapters.
type Bridge struct {
	open     Opener
	config   BridgeConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*bridgeConn]struct{}
}

// NewBridge returns a Bridge that resolves adapters with open.
func NewBridge(open Opener, opts ...BridgeOption) *Bridge {
	config := BridgeConfig{
		CheckOrigin:      SameOriginCheck,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "bridge")
	}

	return &Bridge{
		open:   open,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
		conns:  make(map[*bridgeConn]struct{}),
	}
}

// Connections returns the number of live connections.
func (b *Bridge) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Close ends every live connection.
func (b *Bridge) Close() {
	b.mu.Lock()
	conns := make([]*bridgeConn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// ServeHTTP upgrades the request and serves one surface until the client
// disconnects.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(b.config.MaxMessageSize)

	bc := &bridgeConn{
		conn:   conn,
		config: &b.config,
		refs:   make(map[protocol.Ref]patch.Handle),
		logger: b.logger,
	}

	hello, err := bc.readHello()
	if err != nil {
		b.logger.Warn("handshake failed", "error", err)
		bc.fail(0, protocol.ErrInvalidFrame, err.Error())
		return
	}
	if hello.Version.Major != protocol.CurrentVersion.Major {
		bc.fail(0, protocol.ErrVersionMismatch,
			fmt.Sprintf("client %d.%d, bridge %d.%d", hello.Version.Major, hello.Version.Minor,
				protocol.CurrentVersion.Major, protocol.CurrentVersion.Minor))
		return
	}

	adapter, err := b.open(r, hello.Surface)
	if err != nil {
		b.logger.Info("surface rejected", "surface", hello.Surface, "error", err)
		bc.fail(0, protocol.ErrSurfaceRejected, err.Error())
		return
	}
	bc.adapter = adapter
	bc.surface = hello.Surface
	bc.logger = b.logger.With("surface", hello.Surface)

	reply := protocol.EncodeHello(&protocol.Hello{Version: protocol.CurrentVersion, Surface: hello.Surface})
	if err := bc.write(protocol.NewFrame(protocol.FrameHello, reply)); err != nil {
		bc.logger.Warn("hello reply failed", "error", err)
		conn.Close()
		return
	}

	b.mu.Lock()
	b.conns[bc] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.conns, bc)
		b.mu.Unlock()
		if b.config.OnClose != nil {
			b.config.OnClose(bc.surface, bc.adapter)
		}
	}()

	bc.logger.Info("surface connected", "remote", r.RemoteAddr)
	bc.serve(r.Context())
	bc.logger.Info("surface disconnected", "refs", len(bc.refs))
	bc.dispose(context.WithoutCancel(r.Context()))
}

// bridgeConn serves one client. Calls run one at a time on the read
// goroutine, so refs needs no lock.
type bridgeConn struct {
	conn    *websocket.Conn
	config  *BridgeConfig
	adapter patch.HostAdapter
	surface string
	logger  *slog.Logger

	refs    map[protocol.Ref]patch.Handle
	nextRef protocol.Ref

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (bc *bridgeConn) readHello() (*protocol.Hello, error) {
	bc.conn.SetReadDeadline(time.Now().Add(bc.config.HandshakeTimeout))
	_, msg, err := bc.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	bc.conn.SetReadDeadline(time.Time{})

	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return nil, err
	}
	if frame.Type != protocol.FrameHello {
		return nil, fmt.Errorf("%w: %s before hello", ErrUnexpectedFrame, frame.Type)
	}
	return protocol.DecodeHello(frame.Payload)
}

func (bc *bridgeConn) write(f *protocol.Frame) error {
	bc.writeMu.Lock()
	defer bc.writeMu.Unlock()

	bc.conn.SetWriteDeadline(time.Now().Add(bc.config.WriteTimeout))
	return bc.conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}

func (bc *bridgeConn) replyError(seq uint64, code protocol.ErrorCode, msg string, fatal bool) error {
	em := &protocol.ErrorMessage{Seq: seq, Code: code, Message: msg, Fatal: fatal}
	return bc.write(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)))
}

// fail sends a fatal error and closes the connection.
func (bc *bridgeConn) fail(seq uint64, code protocol.ErrorCode, msg string) {
	if err := bc.replyError(seq, code, msg, true); err != nil {
		bc.logger.Debug("fatal error not delivered", "error", err)
	}
	bc.close()
}

func (bc *bridgeConn) close() {
	bc.closeOnce.Do(func() {
		bc.writeMu.Lock()
		bc.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		bc.writeMu.Unlock()
		bc.conn.Close()
	})
}

func (bc *bridgeConn) serve(ctx context.Context) {
	defer bc.close()

	for {
		_, msg, err := bc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				bc.logger.Warn("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			bc.fail(0, protocol.ErrInvalidFrame, err.Error())
			return
		}

		switch frame.Type {
		case protocol.FrameCall:
			call, err := protocol.DecodeCall(frame.Payload)
			if err != nil {
				bc.fail(0, protocol.ErrInvalidCall, err.Error())
				return
			}
			if err := bc.execute(ctx, call); err != nil {
				bc.logger.Warn("reply failed", "seq", call.Seq, "error", err)
				return
			}

		case protocol.FrameClose:
			return

		default:
			bc.fail(0, protocol.ErrInvalidFrame, fmt.Sprintf("unexpected %s frame", frame.Type))
			return
		}
	}
}

// dispose removes every element the client left behind, including ones
// created by calls the client gave up on. Children carry higher refs than
// their parents, so they go first.
func (bc *bridgeConn) dispose(ctx context.Context) {
	if len(bc.refs) == 0 {
		return
	}
	refs := slices.Sorted(maps.Keys(bc.refs))
	slices.Reverse(refs)

	removed := 0
	for _, ref := range refs {
		if err := bc.adapter.RemoveElement(ctx, bc.refs[ref]); err != nil {
			bc.logger.Debug("dispose remove failed", "ref", ref, "error", err)
			continue
		}
		removed++
	}
	clear(bc.refs)
	bc.logger.Info("surface disposed", "removed", removed, "refs", len(refs))
}

func (bc *bridgeConn) lookup(ref protocol.Ref) (patch.Handle, bool) {
	h, ok := bc.refs[ref]
	return h, ok
}

// execute runs call on the adapter and writes its reply. The returned
// error is a write failure; adapter failures are answered, not returned.
func (bc *bridgeConn) execute(ctx context.Context, call *protocol.Call) error {
	var (
		result = &protocol.Result{Seq: call.Seq}
		err    error
	)

	switch call.Method {
	case protocol.MethodCreate:
		var parent patch.Handle
		if call.Target != 0 {
			h, ok := bc.lookup(call.Target)
			if !ok {
				return bc.replyError(call.Seq, protocol.ErrUnknownRef, fmt.Sprintf("ref %d", call.Target), false)
			}
			parent = h
		}
		var h patch.Handle
		h, err = bc.adapter.CreateElement(ctx, parent, call.Index, call.Kind, call.Attrs)
		if err == nil {
			bc.nextRef++
			bc.refs[bc.nextRef] = h
			result.Ref = bc.nextRef
		}

	case protocol.MethodUpdate, protocol.MethodMove, protocol.MethodRemove:
		h, ok := bc.lookup(call.Target)
		if !ok {
			return bc.replyError(call.Seq, protocol.ErrUnknownRef, fmt.Sprintf("ref %d", call.Target), false)
		}
		switch call.Method {
		case protocol.MethodUpdate:
			err = bc.adapter.UpdateElement(ctx, h, call.Diff)
		case protocol.MethodMove:
			err = bc.adapter.MoveElement(ctx, h, call.Index)
		default:
			if err = bc.adapter.RemoveElement(ctx, h); err == nil {
				delete(bc.refs, call.Target)
			}
		}
	}

	if err != nil {
		code := protocol.ErrHostFailure
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = protocol.ErrCanceled
		}
		bc.logger.Debug("call failed", "seq", call.Seq, "method", call.Method.String(), "error", err)
		return bc.replyError(call.Seq, code, err.Error(), false)
	}
	return bc.write(protocol.NewFrame(protocol.FrameResult, protocol.EncodeResult(result)))
}
