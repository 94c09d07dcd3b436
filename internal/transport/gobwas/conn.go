// Package gobwas provides the gobwas/ws transport driver.
package gobwas

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/chat-session/internal/transport"
)

// DefaultReadLimit bounds the size of a single inbound message.
const DefaultReadLimit = 64 << 10

// controlWriteTimeout bounds pong and close replies sent from Read.
const controlWriteTimeout = time.Second

// Conn adapts a gobwas/ws client connection to transport.Conn.
// Every write, including control replies from Read, holds wmu.
type Conn struct {
	conn      net.Conn
	src       io.Reader
	readLimit int64
	wmu       sync.Mutex
}

// NewConn wraps a net.Conn returned by ws.Dial. br holds bytes the handshake
// read past the response and may be nil. A readLimit of zero disables the limit.
func NewConn(conn net.Conn, br *bufio.Reader, readLimit int64) *Conn {
	var src io.Reader = conn
	if br != nil {
		src = br
	}
	return &Conn{conn: conn, src: src, readLimit: readLimit}
}

// Read implements transport.Conn.
// Pings are answered and a close frame ends the connection; only text and
// binary messages are returned.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { c.conn.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()

	data, err := c.readMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return data, nil
}

func (c *Conn) readMessage() ([]byte, error) {
	rd := wsutil.Reader{
		Source:         c.src,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		MaxFrameSize:   c.readLimit,
		OnIntermediate: c.handleControl,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, &rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode != ws.OpText && hdr.OpCode != ws.OpBinary {
			if err := rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		var body io.Reader = &rd
		if c.readLimit > 0 {
			body = io.LimitReader(&rd, c.readLimit+1)
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		if c.readLimit > 0 && int64(len(data)) > c.readLimit {
			return nil, fmt.Errorf("message exceeds %d bytes: %w", c.readLimit, wsutil.ErrFrameTooLarge)
		}
		return data, nil
	}
}

func (c *Conn) handleControl(hdr ws.Header, r io.Reader) error {
	payload, err := io.ReadAll(io.LimitReader(r, hdr.Length))
	if err != nil {
		return err
	}

	switch hdr.OpCode {
	case ws.OpPing:
		return c.writeControl(ws.OpPong, payload)
	case ws.OpClose:
		code, reason := ws.ParseCloseFrameData(payload)
		var body []byte
		if !code.Empty() {
			body = ws.NewCloseFrameBody(code, "")
		}
		c.writeControl(ws.OpClose, body)
		return wsutil.ClosedError{Code: code, Reason: reason}
	}
	return nil
}

func (c *Conn) writeControl(op ws.OpCode, payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(controlWriteTimeout)); err != nil {
		return err
	}
	return wsutil.WriteClientMessage(c.conn, op, payload)
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return wsutil.WriteClientMessage(c.conn, ws.OpText, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.writeControl(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer opens gobwas/ws connections.
type Dialer struct {
	ReadLimit int64
	dialer    ws.Dialer
}

// NewDialer creates a Dialer using ws.DefaultDialer settings and the default read limit.
func NewDialer() *Dialer {
	return &Dialer{ReadLimit: DefaultReadLimit, dialer: ws.DefaultDialer}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, br, _, err := d.dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return NewConn(conn, br, d.ReadLimit), nil
}
