// Package render draws session updates on a line-oriented terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/internal/session"
)

// TimeLayout is the clock format shown next to each message.
const TimeLayout = "15:04"

// Terminal implements session.Renderer by appending styled lines to a writer.
type Terminal struct {
	mu       sync.Mutex
	w        io.Writer
	loc      *time.Location
	identity string

	own      lipgloss.Style
	received lipgloss.Style
	system   lipgloss.Style
	dim      lipgloss.Style
	ok       lipgloss.Style
	warn     lipgloss.Style
}

var _ session.Renderer = (*Terminal)(nil)

// Option configures a Terminal.
type Option func(*Terminal)

// WithLocation sets the time zone used for message times.
func WithLocation(loc *time.Location) Option {
	return func(t *Terminal) {
		t.loc = loc
	}
}

// NewTerminal creates a Terminal writing to w.
// Styles degrade to plain text when w is not a color terminal.
func NewTerminal(w io.Writer, opts ...Option) *Terminal {
	r := lipgloss.NewRenderer(w)
	t := &Terminal{
		w:        w,
		loc:      time.Local,
		own:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		received: r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		system:   r.NewStyle().Italic(true).Foreground(lipgloss.Color("247")),
		dim:      r.NewStyle().Faint(true),
		ok:       r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:     r.NewStyle().Foreground(lipgloss.Color("203")),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetIdentity marks whose messages are drawn as the user's own.
func (t *Terminal) SetIdentity(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identity = name
}

// MessageAdded implements session.Renderer.
func (t *Terminal) MessageAdded(m chat.Message) {
	t.println(t.formatMessage(m))
}

// MessageUpdated implements session.Renderer.
func (t *Terminal) MessageUpdated(m chat.Message) {
	t.println(t.dim.Render("~") + " " + t.formatMessage(m))
}

// MessageRemoved implements session.Renderer.
func (t *Terminal) MessageRemoved(id string) {
	t.println(t.dim.Render(fmt.Sprintf("- message %s deleted", sanitize(id))))
}

// TypingChanged implements session.Renderer.
// Only the start of typing is drawn; a cleared indicator prints nothing.
func (t *Terminal) TypingChanged(author string) {
	if author == "" {
		return
	}
	t.println(t.dim.Render(sanitize(author) + " is typing..."))
}

// ConnectionChanged implements session.Renderer.
func (t *Terminal) ConnectionChanged(st session.State) {
	switch st {
	case session.StateConnected:
		t.println(t.ok.Render("Connected"))
	case session.StateConnecting:
		t.println(t.warn.Render("Disconnected, connecting..."))
	case session.StateClosed:
		t.println(t.warn.Render("Disconnected"))
	}
}

// EditChanged implements session.Renderer.
func (t *Terminal) EditChanged(m *chat.Message) {
	if m == nil {
		t.println(t.dim.Render("edit mode off"))
		return
	}
	t.println(t.dim.Render(fmt.Sprintf("editing %s: %q (send the new text, /cancel to abort)", sanitize(m.ID), m.Content)))
}

// PrintMessages redraws the whole log.
func (t *Terminal) PrintMessages(msgs []chat.Message) {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, t.formatMessage(m))
	}
	if len(lines) == 0 {
		lines = append(lines, t.dim.Render("no messages"))
	}
	t.println(strings.Join(lines, "\n"))
}

// Notice prints a one-off line such as a command error.
func (t *Terminal) Notice(format string, args ...interface{}) {
	t.println(t.warn.Render(fmt.Sprintf(format, args...)))
}

func (t *Terminal) formatMessage(m chat.Message) string {
	t.mu.Lock()
	identity := t.identity
	t.mu.Unlock()

	if m.IsSystem {
		return t.system.Render("* " + sanitize(m.Content))
	}

	author := t.received
	if m.Author == identity {
		author = t.own
	}

	stamp := m.CreatedAt.In(t.loc).Format(TimeLayout)
	if m.Edited {
		stamp += " (edited)"
	}
	return fmt.Sprintf("%s %s %s %s",
		t.dim.Render("["+stamp+"]"),
		author.Render(sanitize(m.Author)+":"),
		sanitize(m.Content),
		t.dim.Render("#"+sanitize(m.ID)),
	)
}

// sanitize keeps peer text on one line and strips control characters,
// so received frames cannot move the cursor or emit escape sequences.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\t', r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

func (t *Terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, line)
}
