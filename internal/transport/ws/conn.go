// Package ws provides the nhooyr.io/websocket transport driver.
package ws

import (
	"context"
	"fmt"
	"io"

	"nhooyr.io/websocket"

	"github.com/omochice/chat-session/internal/transport"
)

// DefaultReadLimit bounds the size of a single inbound frame.
const DefaultReadLimit = 64 << 10

// Conn is a dialed chat connection over nhooyr.io/websocket.
type Conn struct {
	ws   *websocket.Conn
	peer string
}

// NewConn wraps an established websocket.Conn. remoteAddr is reported by
// RemoteAddr for logging.
func NewConn(conn *websocket.Conn, remoteAddr string) *Conn {
	return &Conn{ws: conn, peer: remoteAddr}
}

// Read implements transport.Conn.
// A normal close from the server ends the stream with io.EOF.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// Write implements transport.Conn. Frames are JSON and go out as text.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.peer
}

// Dialer opens nhooyr.io/websocket connections.
type Dialer struct {
	ReadLimit int64
}

// NewDialer creates a Dialer with the default read limit.
func NewDialer() *Dialer {
	return &Dialer{ReadLimit: DefaultReadLimit}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, resp, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	peer := url
	if resp != nil && resp.Request != nil {
		peer = resp.Request.URL.Host
	}
	return NewConn(conn, peer), nil
}
