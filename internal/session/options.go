package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/omochice/chat-session/internal/clock"
	"github.com/omochice/chat-session/internal/idgen"
	"github.com/omochice/chat-session/internal/metrics"
)

// Session timing defaults.
const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultTypingTimeout  = 3 * time.Second
)

// Option configures a Session.
type Option func(*Session)

// WithRenderer sets the rendering collaborator.
func WithRenderer(r Renderer) Option {
	return func(s *Session) {
		s.renderer = r
	}
}

// WithClock sets the clock used for timestamps and timers.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithIDGenerator sets the message identifier generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Session) {
		s.ids = g
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithReconnectDelay sets the fixed delay before reconnecting.
func WithReconnectDelay(d time.Duration) Option {
	return func(s *Session) {
		s.reconnectDelay = d
	}
}

// WithTypingTimeout sets the idle time after which stop_typing is sent.
func WithTypingTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.typingTimeout = d
	}
}
