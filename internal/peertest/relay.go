// Package peertest provides an in-process peer group for tests.
//
// Relay is a WebSocket endpoint that echoes every inbound text frame to all
// connected clients, the sender included, which is the broadcast behavior a
// chat session expects from its peers.
package peertest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/omochice/chat-session/internal/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// relayClient is one connected session.
type relayClient struct {
	conn     *websocket.Conn
	outgoing chan []byte
}

// Relay is a broadcasting WebSocket peer group.
type Relay struct {
	server *httptest.Server
	logger zerolog.Logger

	mu       sync.RWMutex
	clients  map[*relayClient]struct{}
	received [][]byte
	wg       sync.WaitGroup
}

// NewRelay starts a Relay on a loopback address. The endpoint is served at /ws.
func NewRelay() *Relay {
	r := &Relay{
		logger:  log.Component("peertest"),
		clients: make(map[*relayClient]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", r.handleWebSocket)
	r.server = httptest.NewServer(mux)
	return r
}

// URL returns the ws:// URL of the endpoint.
func (r *Relay) URL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"
}

// ClientCount returns the number of connected clients.
func (r *Relay) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Received returns a copy of every frame the relay has read, in order.
func (r *Relay) Received() [][]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([][]byte, len(r.received))
	copy(out, r.received)
	return out
}

// Broadcast sends data to every connected client, as if another peer sent it.
func (r *Relay) Broadcast(data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		select {
		case client.outgoing <- data:
		default:
			r.logger.Warn().Msg("client channel full, skipping")
		}
	}
}

// DropAll closes every client connection without a close handshake.
func (r *Relay) DropAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for client := range r.clients {
		client.conn.Close()
	}
}

// Close drops all clients and stops the server.
func (r *Relay) Close() {
	r.DropAll()
	r.server.Close()
	r.wg.Wait()
}

func (r *Relay) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := &relayClient{
		conn:     conn,
		outgoing: make(chan []byte, 16),
	}

	r.mu.Lock()
	r.clients[client] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.handleClient(client)
}

func (r *Relay) handleClient(client *relayClient) {
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
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				r.logger.Debug().Err(err).Msg("failed to send frame to client")
				return
			}
		}
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Debug().Err(err).Msg("websocket error")
			}
			return
		}

		r.mu.Lock()
		r.received = append(r.received, data)
		r.mu.Unlock()

		r.Broadcast(data)
	}
}
