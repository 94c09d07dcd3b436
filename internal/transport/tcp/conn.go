// Package tcp provides a raw TCP transport driver with newline-delimited frames.
package tcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/omochice/chat-session/internal/transport"
)

// MaxFrameSize bounds the size of a single inbound frame.
const MaxFrameSize = 64 << 10

// Conn adapts net.Conn to transport.Conn.
// Each frame is one line; JSON frames never contain a raw newline.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	wmu     sync.Mutex
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn) *Conn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), MaxFrameSize)
	return &Conn{conn: conn, scanner: scanner}
}

// Read implements transport.Conn.
// Blank lines are skipped.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { c.conn.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()

	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		return frame, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := c.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, net.ErrClosed
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')
	_, err := c.conn.Write(line)
	return err
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer opens TCP connections for tcp://host:port URLs.
type Dialer struct {
	dialer net.Dialer
}

// NewDialer creates a Dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, rawURL string) (transport.Conn, error) {
	address, err := hostPort(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := d.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return NewConn(conn), nil
}

// hostPort accepts tcp://host:port or a bare host:port.
func hostPort(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err == nil && u.Scheme == "tcp" && u.Host != "" {
		return u.Host, nil
	}
	if _, _, err := net.SplitHostPort(rawURL); err != nil {
		return "", fmt.Errorf("invalid tcp address %q: %w", rawURL, err)
	}
	return rawURL, nil
}
