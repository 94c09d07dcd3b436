// Package gorilla provides the gorilla/websocket transport driver.
package gorilla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/chat-session/internal/transport"
)

// Conn adapts gorilla/websocket to transport.Conn.
// gorilla allows one concurrent writer, so writes are serialized.
type Conn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// NewConn wraps a websocket.Conn.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// Read implements transport.Conn.
// Cancelling ctx closes the connection to unblock the read.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return data, nil
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer opens gorilla/websocket connections.
type Dialer struct {
	ReadLimit int64
	dialer    *websocket.Dialer
}

// NewDialer creates a Dialer based on websocket.DefaultDialer.
func NewDialer() *Dialer {
	return &Dialer{ReadLimit: 64 << 10, dialer: websocket.DefaultDialer}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return NewConn(conn), nil
}
