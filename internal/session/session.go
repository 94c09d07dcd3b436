// Package session implements the client-side chat session controller.
//
// A Session owns the message store and the connection lifecycle. All state
// is mutated by a single loop goroutine (Run); transport callbacks, timers and
// UI intents are posted to it as events and processed strictly in arrival
// order. Outbound edits and deletes are never applied locally: the store only
// changes when the corresponding frame comes back from the peer group.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/internal/clock"
	"github.com/omochice/chat-session/internal/idgen"
	"github.com/omochice/chat-session/internal/log"
	"github.com/omochice/chat-session/internal/metrics"
	"github.com/omochice/chat-session/internal/transport"
	"github.com/omochice/chat-session/pkg/protocol"
)

var (
	// ErrInvalidInput is returned for empty or reserved identities and for empty messages and ids.
	ErrInvalidInput = errors.New("invalid input")
	// ErrClosed is returned for intents submitted after Close.
	ErrClosed = errors.New("session closed")
)

// eventBuffer is the capacity of the loop's event queue.
const eventBuffer = 256

// TransportFactory builds the session's transport around the handler the
// session wants its events delivered to.
type TransportFactory func(handler transport.Handler) transport.Transport

// Session is one continuous client run, from identity entry until Close,
// spanning any number of underlying connections.
type Session struct {
	transport transport.Transport
	store     *chat.Store
	renderer  Renderer
	clock     clock.Clock
	ids       idgen.Generator
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	reconnectDelay time.Duration
	typingTimeout  time.Duration

	events   chan func()
	done     chan struct{}
	stopped  chan struct{}
	closeErr error

	// Owned by the loop goroutine.
	identity       string
	state          State
	pendingEdit    string
	typing         bool
	remoteTypist   string
	reconnectTimer clock.Timer
	reconnectGen   uint64
	typingTimer    clock.Timer
	typingGen      uint64
}

// New creates a Session in the AwaitingIdentity state.
func New(factory TransportFactory, opts ...Option) *Session {
	s := &Session{
		store:          chat.NewStore(),
		renderer:       NopRenderer{},
		clock:          clock.Real(),
		ids:            idgen.NewULIDGenerator(),
		logger:         log.Component("session"),
		reconnectDelay: DefaultReconnectDelay,
		typingTimeout:  DefaultTypingTimeout,
		events:         make(chan func(), eventBuffer),
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
		state:          StateAwaitingIdentity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	s.transport = factory(s.onTransportEvent)
	return s
}

// Run processes events until Close is called or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-s.done:
			return nil
		case fn := <-s.events:
			fn()
			if s.state == StateClosed {
				return nil
			}
		}
	}
}

// Close cancels all timers, releases the transport and stops Run.
// It must be called while Run is active or after it has returned.
func (s *Session) Close() error {
	s.post(s.shutdown)
	<-s.stopped
	return s.closeErr
}

// SetIdentity supplies the local identity and starts connecting.
// Only the first valid identity is used.
func (s *Session) SetIdentity(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidInput)
	}
	if strings.EqualFold(name, chat.SystemAuthor) {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidInput, name)
	}
	return s.submit(func() { s.applyIdentity(name) })
}

// Send sends new content, or the replacement content of the message being edited.
func (s *Session) Send(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	return s.submit(func() { s.applySend(content) })
}

// StartEdit enters edit mode for one of the user's own messages.
func (s *Session) StartEdit(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty message id", ErrInvalidInput)
	}
	return s.submit(func() { s.applyStartEdit(id) })
}

// CancelEdit leaves edit mode without sending anything.
func (s *Session) CancelEdit() error {
	return s.submit(s.applyCancelEdit)
}

// Delete asks the peer group to delete one of the user's own messages.
func (s *Session) Delete(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty message id", ErrInvalidInput)
	}
	return s.submit(func() { s.applyDelete(id) })
}

// Keystroke signals local typing activity.
func (s *Session) Keystroke() error {
	return s.submit(s.applyKeystroke)
}

// Messages returns a snapshot of the message log.
func (s *Session) Messages() []chat.Message {
	reply := make(chan []chat.Message, 1)
	if !s.post(func() { reply <- s.store.Messages() }) {
		return nil
	}
	select {
	case msgs := <-reply:
		return msgs
	case <-s.done:
		return nil
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	reply := make(chan State, 1)
	if !s.post(func() { reply <- s.state }) {
		return StateClosed
	}
	select {
	case st := <-reply:
		return st
	case <-s.done:
		return StateClosed
	}
}

func (s *Session) submit(fn func()) error {
	if !s.post(fn) {
		return ErrClosed
	}
	return nil
}

// post queues fn for the loop. It reports false once the session is closed.
func (s *Session) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) onTransportEvent(ev transport.Event) {
	s.post(func() { s.handleTransportEvent(ev) })
}

func (s *Session) handleTransportEvent(ev transport.Event) {
	if s.state == StateClosed || s.state == StateAwaitingIdentity {
		return
	}

	switch ev.Kind {
	case transport.EventConnected:
		s.stopReconnect()
		s.setState(StateConnected)

	case transport.EventDisconnected:
		s.typing = false
		s.stopTypingTimer()
		s.setRemoteTypist("")
		s.setState(StateConnecting)
		s.scheduleReconnect()

	case transport.EventFrameReceived:
		s.handleFrame(ev.Frame)

	case transport.EventError:
		s.metrics.TransportErrors.Inc()
		s.logger.Warn().Err(ev.Err).Msg("transport error")
	}
}

func (s *Session) handleFrame(data []byte) {
	var f protocol.Frame
	if err := f.Decode(data); err != nil {
		s.metrics.FramesDropped.WithLabelValues(metrics.ReasonMalformed).Inc()
		s.logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed frame")
		return
	}
	s.metrics.FramesReceived.WithLabelValues(f.Type.String()).Inc()

	switch f.Type {
	case protocol.FrameMessage:
		msg := chat.Message{
			ID:        f.ID,
			Author:    f.Username,
			Content:   f.Content,
			CreatedAt: f.Timestamp,
			IsSystem:  f.Username == chat.SystemAuthor,
		}
		if !s.store.Append(msg) {
			s.logger.Debug().Str(log.FieldMessageID, f.ID).Msg("ignoring duplicate message")
			return
		}
		s.renderer.MessageAdded(msg)

	case protocol.FrameEdit:
		if msg, ok := s.store.EditContent(f.ID, f.Content); ok {
			s.renderer.MessageUpdated(msg)
		}

	case protocol.FrameDelete:
		if _, ok := s.store.Remove(f.ID); ok {
			s.renderer.MessageRemoved(f.ID)
		}
		if s.pendingEdit == f.ID {
			s.pendingEdit = ""
			s.renderer.EditChanged(nil)
		}

	case protocol.FrameTyping:
		if f.Username != s.identity {
			s.setRemoteTypist(f.Username)
		}

	case protocol.FrameStopTyping:
		if f.Username != s.identity && f.Username == s.remoteTypist {
			s.setRemoteTypist("")
		}
	}
}

func (s *Session) applyIdentity(name string) {
	if s.state != StateAwaitingIdentity {
		s.logger.Warn().Str(log.FieldUsername, name).Msg("identity already set, ignoring")
		return
	}
	s.identity = name
	s.logger = s.logger.With().Str(log.FieldUsername, name).Logger()

	s.setState(StateConnecting)
	s.transport.Connect()

	now := s.clock.Now()
	welcome := chat.NewSystemMessage(s.ids.New(now), fmt.Sprintf("Welcome %s! 👋", name), now)
	if s.store.Append(welcome) {
		s.renderer.MessageAdded(welcome)
	}
}

func (s *Session) applySend(content string) {
	if !s.connected("send") {
		return
	}

	if id := s.pendingEdit; id != "" {
		s.pendingEdit = ""
		s.sendFrame(protocol.NewEdit(id, s.identity, content))
		s.renderer.EditChanged(nil)
	} else {
		now := s.clock.Now()
		s.sendFrame(protocol.NewMessage(s.ids.New(now), s.identity, content, now))
	}
	s.stopTyping()
}

func (s *Session) applyStartEdit(id string) {
	if s.state == StateClosed {
		return
	}
	msg, ok := s.store.Find(id)
	if !ok || !msg.OwnedBy(s.identity) {
		s.logger.Warn().Str(log.FieldMessageID, id).Msg("cannot edit message")
		return
	}
	s.pendingEdit = id
	s.renderer.EditChanged(&msg)
}

func (s *Session) applyCancelEdit() {
	if s.pendingEdit == "" {
		return
	}
	s.pendingEdit = ""
	s.renderer.EditChanged(nil)
}

func (s *Session) applyDelete(id string) {
	msg, ok := s.store.Find(id)
	if !ok || !msg.OwnedBy(s.identity) {
		s.logger.Warn().Str(log.FieldMessageID, id).Msg("cannot delete message")
		return
	}
	if !s.connected("delete") {
		return
	}
	s.sendFrame(protocol.NewDelete(id, s.identity))
}

func (s *Session) applyKeystroke() {
	if s.identity == "" || s.state == StateClosed {
		return
	}
	if s.state == StateConnected && !s.typing {
		s.typing = true
		s.sendFrame(protocol.NewTyping(s.identity))
	}
	s.armTypingTimer()
}

// stopTyping ends the local typing signal.
func (s *Session) stopTyping() {
	s.stopTypingTimer()
	if !s.typing {
		return
	}
	s.typing = false
	if s.state == StateConnected {
		s.sendFrame(protocol.NewStopTyping(s.identity))
	}
}

func (s *Session) armTypingTimer() {
	s.stopTypingTimer()
	s.typingGen++
	gen := s.typingGen
	s.typingTimer = s.clock.AfterFunc(s.typingTimeout, func() {
		s.post(func() { s.typingExpired(gen) })
	})
}

func (s *Session) typingExpired(gen uint64) {
	if gen != s.typingGen || s.state == StateClosed {
		return
	}
	s.typingTimer = nil
	s.stopTyping()
}

func (s *Session) stopTypingTimer() {
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.typingGen++
}

func (s *Session) scheduleReconnect() {
	s.stopReconnect()
	s.reconnectGen++
	gen := s.reconnectGen
	s.reconnectTimer = s.clock.AfterFunc(s.reconnectDelay, func() {
		s.post(func() { s.reconnectDue(gen) })
	})
	s.logger.Info().Dur("delay", s.reconnectDelay).Msg("reconnect scheduled")
}

func (s *Session) reconnectDue(gen uint64) {
	if gen != s.reconnectGen || s.state != StateConnecting {
		return
	}
	s.reconnectTimer = nil
	s.metrics.Reconnects.Inc()
	s.transport.Connect()
}

func (s *Session) stopReconnect() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.reconnectGen++
}

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.logger.Info().Str(log.FieldState, st.String()).Msg("connection state changed")
	s.state = st
	s.metrics.SetConnected(st == StateConnected)
	s.renderer.ConnectionChanged(st)
}

func (s *Session) setRemoteTypist(author string) {
	if s.remoteTypist == author {
		return
	}
	s.remoteTypist = author
	s.renderer.TypingChanged(author)
}

// connected reports whether an outbound frame may be sent, counting the drop otherwise.
func (s *Session) connected(intent string) bool {
	if s.state == StateConnected {
		return true
	}
	s.metrics.FramesDropped.WithLabelValues(metrics.ReasonUnavailable).Inc()
	s.logger.Debug().Str("intent", intent).Str(log.FieldState, s.state.String()).Msg("not connected, dropping")
	return false
}

func (s *Session) sendFrame(f protocol.Frame) {
	data, err := f.Encode()
	if err != nil {
		s.logger.Error().Err(err).Str(log.FieldFrameType, f.Type.String()).Msg("failed to encode frame")
		return
	}
	s.transport.Send(data)
	s.metrics.FramesSent.WithLabelValues(f.Type.String()).Inc()
}

// shutdown closes done before releasing the transport so that transport
// goroutines blocked in post give up instead of waiting for the loop.
func (s *Session) shutdown() {
	if s.state == StateClosed {
		return
	}
	s.stopReconnect()
	s.stopTypingTimer()
	s.setState(StateClosed)
	close(s.done)
	s.closeErr = s.transport.Close()
	close(s.stopped)
}
