package peertest

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omochice/chat-session/internal/log"
)

// tcpClient is one connected session on a TCPRelay.
type tcpClient struct {
	conn     net.Conn
	outgoing chan []byte
}

// TCPRelay is the newline-delimited TCP counterpart of Relay.
type TCPRelay struct {
	listener net.Listener
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*tcpClient]struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewTCPRelay starts a TCPRelay on a loopback port.
func NewTCPRelay() (*TCPRelay, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start relay: %w", err)
	}

	r := &TCPRelay{
		listener: listener,
		logger:   log.Component("peertest"),
		clients:  make(map[*tcpClient]struct{}),
		quit:     make(chan struct{}),
	}
	r.wg.Add(1)
	go r.accept()
	return r, nil
}

// URL returns the tcp:// URL of the relay.
func (r *TCPRelay) URL() string {
	return "tcp://" + r.listener.Addr().String()
}

// ClientCount returns the number of connected clients.
func (r *TCPRelay) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast sends one frame to every connected client.
func (r *TCPRelay) Broadcast(frame []byte) {
	line := make([]byte, 0, len(frame)+1)
	line = append(append(line, frame...), '\n')

	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		select {
		case client.outgoing <- line:
		default:
			r.logger.Warn().Msg("client channel full, skipping")
		}
	}
}

// DropAll closes every client connection.
func (r *TCPRelay) DropAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		client.conn.Close()
	}
}

// Close stops accepting, drops all clients and waits for their goroutines.
func (r *TCPRelay) Close() {
	close(r.quit)
	r.listener.Close()
	r.DropAll()
	r.wg.Wait()
}

func (r *TCPRelay) accept() {
	defer r.wg.Done()

	for {
		conn, err := r.listener.Accept()
		if err != nil {
			select {
			case <-r.quit:
				return
			default:
				r.logger.Warn().Err(err).Msg("failed to accept connection")
				continue
			}
		}

		client := &tcpClient{
			conn:     conn,
			outgoing: make(chan []byte, 16),
		}

		r.mu.Lock()
		r.clients[client] = struct{}{}
		r.mu.Unlock()

		r.wg.Add(1)
		go r.handleClient(client)
	}
}

func (r *TCPRelay) handleClient(client *tcpClient) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.clients, client)
		r.mu.Unlock()
		close(client.outgoing)
		client.conn.Close()
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for data := range client.outgoing {
			if _, err := client.conn.Write(data); err != nil {
				r.logger.Debug().Err(err).Msg("failed to send frame to client")
				return
			}
		}
	}()

	scanner := bufio.NewScanner(client.conn)
	for scanner.Scan() {
		frame := append([]byte(nil), scanner.Bytes()...)
		r.Broadcast(frame)
	}
}
