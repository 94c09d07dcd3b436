package transport

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omochice/chat-session/internal/log"
)

// Transport is the contract the session controller relies on.
type Transport interface {
	Connect()
	Send(frame []byte)
	Close() error
}

// Client defaults.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	DefaultQueueSize    = 64
)

// Reasons passed to the drop hook.
const (
	DropNotConnected = "unavailable"
	DropQueueFull    = "queue_full"
)

// link is one live connection and its outbound queue.
type link struct {
	conn     Conn
	outgoing chan []byte
	done     chan struct{}
}

// Client manages one logical connection at a time over a Dialer.
// It never reconnects on its own; the session decides when to call Connect again.
// Frames are written by a per-connection goroutine, so Send never waits on the network.
type Client struct {
	url     string
	dialer  Dialer
	handler Handler
	logger  zerolog.Logger

	dialTimeout  time.Duration
	writeTimeout time.Duration
	queueSize    int
	onDrop       func(reason string)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	link       *link
	connecting bool
	closed     bool
	wg         sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithDialTimeout bounds each connection attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.writeTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithQueueSize sets how many outbound frames may wait for the writer.
func WithQueueSize(n int) Option {
	return func(c *Client) {
		c.queueSize = n
	}
}

// WithDropHook is called for every frame Send drops, with DropNotConnected
// or DropQueueFull.
func WithDropHook(f func(reason string)) Option {
	return func(c *Client) {
		c.onDrop = f
	}
}

// NewClient creates a Client. Events are delivered to handler from the
// Client's own goroutine, one at a time.
func NewClient(url string, dialer Dialer, handler Handler, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		url:          url,
		dialer:       dialer,
		handler:      handler,
		logger:       log.Component("transport"),
		dialTimeout:  DefaultDialTimeout,
		writeTimeout: DefaultWriteTimeout,
		queueSize:    DefaultQueueSize,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect starts a connection attempt in the background.
// It is a no-op while a connection or an attempt is active, or after Close.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.connecting || c.link != nil {
		return
	}
	c.connecting = true

	c.wg.Add(1)
	go c.run()
}

// Connected reports whether a connection is established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link != nil
}

// Send queues one frame for writing and returns immediately. Frames are
// dropped when there is no connection or the queue is full; write failures
// are logged and surface as a disconnect from the read loop.
func (c *Client) Send(frame []byte) {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()

	if l == nil {
		c.drop(DropNotConnected, frame)
		return
	}
	select {
	case l.outgoing <- frame:
	case <-l.done:
		c.drop(DropNotConnected, frame)
	default:
		c.drop(DropQueueFull, frame)
	}
}

func (c *Client) drop(reason string, frame []byte) {
	c.logger.Debug().Str("reason", reason).Int("bytes", len(frame)).Msg("dropping frame")
	if c.onDrop != nil {
		c.onDrop(reason)
	}
}

// Close releases the connection and waits for the background goroutine.
// No events are delivered once Close returns.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	l := c.link
	c.link = nil
	c.mu.Unlock()

	c.cancel()

	var err error
	if l != nil {
		err = l.conn.Close()
	}
	c.wg.Wait()
	return err
}

func (c *Client) run() {
	defer c.wg.Done()

	dialCtx, cancel := context.WithTimeout(c.ctx, c.dialTimeout)
	conn, err := c.dialer.Dial(dialCtx, c.url)
	cancel()

	c.mu.Lock()
	c.connecting = false
	if err == nil && c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str(log.FieldURL, c.url).Msg("connection attempt failed")
		c.emit(Event{Kind: EventError, Err: err})
		c.emit(Event{Kind: EventDisconnected})
		return
	}
	l := &link{
		conn:     conn,
		outgoing: make(chan []byte, c.queueSize),
		done:     make(chan struct{}),
	}
	c.link = l
	c.wg.Add(1)
	c.mu.Unlock()

	go c.writeLoop(l)

	c.logger.Info().Str(log.FieldURL, c.url).Str("remote", conn.RemoteAddr()).Msg("connected")
	c.emit(Event{Kind: EventConnected})

	for {
		data, err := conn.Read(c.ctx)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			if c.link == l {
				c.link = nil
			}
			c.mu.Unlock()

			close(l.done)
			conn.Close()
			if !closed {
				c.logger.Info().Err(err).Str(log.FieldURL, c.url).Msg("connection lost")
				c.emit(Event{Kind: EventDisconnected})
			}
			return
		}
		c.emit(Event{Kind: EventFrameReceived, Frame: data})
	}
}

// writeLoop drains the outbound queue of l until the connection ends.
// A failed write closes the connection so the read loop reports the disconnect.
func (c *Client) writeLoop(l *link) {
	defer c.wg.Done()

	for {
		select {
		case <-l.done:
			return
		case <-c.ctx.Done():
			return
		case frame := <-l.outgoing:
			ctx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
			err := l.conn.Write(ctx, frame)
			cancel()
			if err != nil {
				c.logger.Warn().Err(err).Str("remote", l.conn.RemoteAddr()).Msg("failed to write frame")
				l.conn.Close()
				return
			}
		}
	}
}

// emit delivers ev unless the client has been closed.
func (c *Client) emit(ev Event) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}
	c.handler(ev)
}
