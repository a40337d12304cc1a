package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"txsentinel-tui/protocol"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// DefaultCloseReason is reported when the transport gives no explanation
	DefaultCloseReason = "Connection error"
	// ReasonClosedByClient is reported after an explicit Close
	ReasonClosedByClient = "Connection closed by client"

	writeWait = 10 * time.Second
)

var ErrClosed = errors.New("session: connection closed")

// TransportError reports a failed handshake
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Handlers are wired when a connection is opened.
// OnMessage is called for every decoded frame, one at a time, in arrival
// order. OnClose is called exactly once, after the last OnMessage.
type Handlers struct {
	OnMessage func(protocol.ServerMessage)
	OnClose   func(reason string)
}

type options struct {
	dialer  *websocket.Dialer
	timeout time.Duration
	logger  *log.Logger
}

// Option configures Open
type Option func(*options)

// WithDialer replaces websocket.DefaultDialer
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithHandshakeTimeout bounds the handshake; zero means no timeout
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger for transport diagnostics
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Connection is a live duplex channel to TxSentinel
type Connection struct {
	url    string
	ws     *websocket.Conn
	h      Handlers
	logger *log.Logger

	writeMu   sync.Mutex
	closed    atomic.Bool
	local     atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Open dials url and starts delivering inbound frames to h. It returns once
// the handshake completed or failed.
func Open(ctx context.Context, url string, h Handlers, opts ...Option) (*Connection, error) {
	o := options{dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	ws, resp, err := o.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	c := &Connection{
		url:    url,
		ws:     ws,
		h:      h,
		logger: o.logger,
		done:   make(chan struct{}),
	}
	go c.readLoop()

	o.logger.Debug("session connected", "url", url)
	return c, nil
}

// URL is the endpoint the connection was opened against
func (c *Connection) URL() string { return c.url }

// Done is closed after OnClose has returned
func (c *Connection) Done() <-chan struct{} { return c.done }

// Send serializes and transmits msg. After Close it returns ErrClosed.
func (c *Connection) Send(msg protocol.Outbound) error {
	if c.closed.Load() {
		return ErrClosed
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("session: send %s: %w", msg.Type(), err)
	}
	c.logger.Debug("sent", "type", msg.Type())
	return nil
}

// Close terminates the connection. It is idempotent, returns without waiting
// on the peer or the reader and never calls OnClose on the caller's goroutine.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.local.Store(true)
		c.closed.Store(true)
		go func() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, ReasonClosedByClient)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = c.ws.Close()
		}()
	})
}

func (c *Connection) readLoop() {
	var reason string
	defer func() {
		c.closed.Store(true)
		_ = c.ws.Close()
		if reason == "" {
			reason = DefaultCloseReason
		}
		c.logger.Info("session closed", "url", c.url, "reason", reason)
		if c.h.OnClose != nil {
			c.h.OnClose(reason)
		}
		close(c.done)
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			reason = c.closeReason(err)
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("dropping frame", "err", err)
			continue
		}
		if c.h.OnMessage != nil {
			c.h.OnMessage(msg)
		}
	}
}

func (c *Connection) closeReason(err error) string {
	if c.local.Load() {
		return ReasonClosedByClient
	}
	// 1006 carries the library's own text, not the peer's
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		return ce.Text
	}
	c.logger.Debug("read failed", "err", err)
	return ""
}
