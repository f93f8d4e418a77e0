package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/patch"
	"github.com/arcadiusmc/delphi/pkg/protocol"
)

var _ patch.HostAdapter = (*Client)(nil)

// ClientConfig configures a Client.
type ClientConfig struct {
	// CallTimeout bounds every call on top of the caller's context.
	// Zero disables it. Default: 5s.
	CallTimeout time.Duration

	// HandshakeTimeout bounds the hello exchange. Default: 10s.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single frame write. Default: 5s.
	WriteTimeout time.Duration

	// Header is sent with the websocket upgrade request.
	Header http.Header

	Logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*ClientConfig)

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.CallTimeout = d }
}

// WithHandshakeTimeout sets the hello timeout.
func WithHandshakeTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.HandshakeTimeout = d }
}

// WithHeader sets headers for the upgrade request.
func WithHeader(h http.Header) ClientOption {
	return func(c *ClientConfig) { c.Header = h }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *ClientConfig) { c.Logger = logger }
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		CallTimeout:      5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

type reply struct {
	result *protocol.Result
	err    error
}

// Client is a HostAdapter backed by a websocket connection to a Bridge.
// It is safe for concurrent use, although a Patcher issues one call at a
// time.
type Client struct {
	conn    *websocket.Conn
	surface string
	config  ClientConfig
	logger  *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]chan reply

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to a Bridge and claims surface.
func Dial(ctx context.Context, url, surface string, opts ...ClientOption) (*Client, error) {
	config := defaultClientConfig()
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "remote")
	}

	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, config.Header)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		surface: surface,
		config:  config,
		logger:  logger.With("surface", surface),
		pending: make(map[uint64]chan reply),
		done:    make(chan struct{}),
	}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) handshake() error {
	hello := protocol.EncodeHello(&protocol.Hello{Version: protocol.CurrentVersion, Surface: c.surface})
	if err := c.writeFrame(protocol.NewFrame(protocol.FrameHello, hello)); err != nil {
		return fmt.Errorf("remote: send hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("remote: read hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return fmt.Errorf("remote: read hello: %w", err)
	}
	switch frame.Type {
	case protocol.FrameHello:
		peer, err := protocol.DecodeHello(frame.Payload)
		if err != nil {
			return fmt.Errorf("remote: decode hello: %w", err)
		}
		if peer.Version.Major != protocol.CurrentVersion.Major {
			return fmt.Errorf("remote: bridge speaks protocol %d.%d", peer.Version.Major, peer.Version.Minor)
		}
		return nil
	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(frame.Payload)
		if err != nil {
			return fmt.Errorf("remote: decode hello error: %w", err)
		}
		return em
	default:
		return fmt.Errorf("%w: %s during hello", ErrUnexpectedFrame, frame.Type)
	}
}

// Surface returns the surface name claimed at Dial.
func (c *Client) Surface() string { return c.surface }

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close sends a Close frame and closes the connection. Pending calls fail
// with ErrClosed.
func (c *Client) Close() error {
	c.writeFrame(&protocol.Frame{Type: protocol.FrameClose, Flags: protocol.FlagFinal})
	c.shutdown(ErrClosed)
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		c.conn.Close()

		c.mu.Lock()
		for seq, ch := range c.pending {
			ch <- reply{err: err}
			delete(c.pending, seq)
		}
		c.mu.Unlock()

		close(c.done)
	})
}

func (c *Client) writeFrame(f *protocol.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}

func (c *Client) readLoop() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("read error", "error", err)
			}
			c.shutdown(ErrClosed)
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.logger.Error("frame decode error", "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameResult:
			res, err := protocol.DecodeResult(frame.Payload)
			if err != nil {
				c.logger.Error("result decode error", "error", err)
				continue
			}
			c.deliver(res.Seq, reply{result: res})

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				c.logger.Error("error decode error", "error", err)
				continue
			}
			if em.Seq != 0 {
				c.deliver(em.Seq, reply{err: em})
			}
			if em.Fatal {
				c.shutdown(em)
				return
			}

		case protocol.FrameClose:
			c.shutdown(ErrClosed)
			return

		default:
			c.logger.Warn("unexpected frame", "type", frame.Type.String())
		}
	}
}

func (c *Client) deliver(seq uint64, r reply) {
	c.mu.Lock()
	ch, ok := c.pending[seq]
	delete(c.pending, seq)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("reply for unknown call", "seq", seq)
		return
	}
	ch <- r
}

// call sends one Call and waits for its reply.
func (c *Client) call(ctx context.Context, call *protocol.Call) (*protocol.Result, error) {
	ch := make(chan reply, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return nil, c.closeErr
	default:
	}
	c.seq++
	call.Seq = c.seq
	c.pending[call.Seq] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, call.Seq)
		c.mu.Unlock()
	}

	if err := c.writeFrame(protocol.NewFrame(protocol.FrameCall, protocol.EncodeCall(call))); err != nil {
		forget()
		return nil, fmt.Errorf("remote: send %s: %w", call.Method, err)
	}

	var timeout <-chan time.Time
	if c.config.CallTimeout > 0 {
		timer := time.NewTimer(c.config.CallTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-ch:
		return r.result, r.err
	case <-ctx.Done():
		c.abandon(call, ctx.Err())
		return nil, ctx.Err()
	case <-timeout:
		err := fmt.Errorf("%w: %s after %s", ErrCallTimeout, call.Method, c.config.CallTimeout)
		c.abandon(call, err)
		return nil, err
	}
}

// abandon gives up on a call already on the wire. The bridge may still
// execute it, so the client is closed rather than left out of step with
// the host; the bridge disposes of the surface when the connection drops.
func (c *Client) abandon(call *protocol.Call, err error) {
	c.logger.Warn("abandoning call, closing connection",
		"method", call.Method, "seq", call.Seq, "error", err)
	c.shutdown(err)
}

func ref(h patch.Handle) (protocol.Ref, error) {
	r, ok := h.(protocol.Ref)
	if !ok || r == 0 {
		return 0, ErrForeignHandle
	}
	return r, nil
}

// CreateElement implements patch.HostAdapter. The returned handle is a
// protocol.Ref.
func (c *Client) CreateElement(ctx context.Context, parent patch.Handle, index int, kind dom.Kind, attrs dom.Attrs) (patch.Handle, error) {
	var target protocol.Ref
	if parent != nil {
		var err error
		if target, err = ref(parent); err != nil {
			return nil, err
		}
	}

	res, err := c.call(ctx, &protocol.Call{
		Method: protocol.MethodCreate,
		Target: target,
		Index:  index,
		Kind:   kind,
		Attrs:  attrs,
	})
	if err != nil {
		return nil, err
	}
	return res.Ref, nil
}

// UpdateElement implements patch.HostAdapter.
func (c *Client) UpdateElement(ctx context.Context, h patch.Handle, diff dom.AttrDiff) error {
	target, err := ref(h)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, &protocol.Call{Method: protocol.MethodUpdate, Target: target, Diff: diff})
	return err
}

// MoveElement implements patch.HostAdapter.
func (c *Client) MoveElement(ctx context.Context, h patch.Handle, newIndex int) error {
	target, err := ref(h)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, &protocol.Call{Method: protocol.MethodMove, Target: target, Index: newIndex})
	return err
}

// RemoveElement implements patch.HostAdapter.
func (c *Client) RemoveElement(ctx context.Context, h patch.Handle) error {
	target, err := ref(h)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, &protocol.Call{Method: protocol.MethodRemove, Target: target})
	return err
}
