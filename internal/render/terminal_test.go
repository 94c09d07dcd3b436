package render_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/internal/render"
	"github.com/omochice/chat-session/internal/session"
)

var at = time.Date(2024, 5, 1, 9, 7, 0, 0, time.UTC)

func newTerminal() (*render.Terminal, *bytes.Buffer) {
	var buf bytes.Buffer
	term := render.NewTerminal(&buf, render.WithLocation(time.UTC))
	term.SetIdentity("Ava")
	return term, &buf
}

func TestTerminal_MessageAdded(t *testing.T) {
	tests := []struct {
		name string
		msg  chat.Message
		want []string
	}{
		{
			name: "own message",
			msg:  chat.Message{ID: "1", Author: "Ava", Content: "hello", CreatedAt: at},
			want: []string{"[09:07]", "Ava:", "hello", "#1"},
		},
		{
			name: "received message",
			msg:  chat.Message{ID: "2", Author: "Ben", Content: "hi", CreatedAt: at},
			want: []string{"[09:07]", "Ben:", "hi", "#2"},
		},
		{
			name: "edited message",
			msg:  chat.Message{ID: "3", Author: "Ben", Content: "fixed", CreatedAt: at, Edited: true},
			want: []string{"09:07 (edited)", "fixed"},
		},
		{
			name: "system message",
			msg:  chat.NewSystemMessage("4", "Welcome Ava! 👋", at),
			want: []string{"* Welcome Ava! 👋"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, buf := newTerminal()
			term.MessageAdded(tt.msg)

			got := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output %q does not contain %q", got, want)
				}
			}
			if strings.Count(got, "\n") != 1 {
				t.Errorf("output %q should be a single line", got)
			}
		})
	}
}

func TestTerminal_SystemMessageHasNoID(t *testing.T) {
	term, buf := newTerminal()
	term.MessageAdded(chat.NewSystemMessage("sys-1", "Welcome Ava! 👋", at))

	if strings.Contains(buf.String(), "sys-1") {
		t.Errorf("output %q exposes the system message id", buf.String())
	}
}

func TestTerminal_TypingChanged(t *testing.T) {
	term, buf := newTerminal()

	term.TypingChanged("Ben")
	term.TypingChanged("")

	if got := buf.String(); !strings.Contains(got, "Ben is typing...") || strings.Count(got, "\n") != 1 {
		t.Errorf("output = %q, want a single typing line", got)
	}
}

func TestTerminal_ConnectionChanged(t *testing.T) {
	tests := []struct {
		state session.State
		want  string
	}{
		{session.StateConnected, "Connected"},
		{session.StateConnecting, "connecting..."},
		{session.StateClosed, "Disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			term, buf := newTerminal()
			term.ConnectionChanged(tt.state)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTerminal_EditChanged(t *testing.T) {
	term, buf := newTerminal()

	msg := chat.Message{ID: "42", Author: "Ava", Content: "old", CreatedAt: at}
	term.EditChanged(&msg)
	term.EditChanged(nil)

	got := buf.String()
	if !strings.Contains(got, "editing 42") || !strings.Contains(got, "edit mode off") {
		t.Errorf("output = %q", got)
	}
}

func TestTerminal_PrintMessages(t *testing.T) {
	term, buf := newTerminal()

	term.PrintMessages(nil)
	if !strings.Contains(buf.String(), "no messages") {
		t.Errorf("output = %q, want empty notice", buf.String())
	}

	buf.Reset()
	term.PrintMessages([]chat.Message{
		{ID: "1", Author: "Ava", Content: "first", CreatedAt: at},
		{ID: "2", Author: "Ben", Content: "second", CreatedAt: at},
	})
	got := buf.String()
	if strings.Index(got, "first") > strings.Index(got, "second") || strings.Count(got, "\n") != 2 {
		t.Errorf("output = %q, want two lines in order", got)
	}
}

func TestTerminal_MessageRemoved(t *testing.T) {
	term, buf := newTerminal()
	term.MessageRemoved("7")

	if !strings.Contains(buf.String(), "message 7 deleted") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTerminal_StripsControlSequences(t *testing.T) {
	hostile := chat.Message{
		ID:        "x\x1b[1A",
		Author:    "Mallory\x1b[2J",
		Content:   "hi\x1b]0;owned\a\r\x1b[Kfake line\nSystem: trust me",
		CreatedAt: at,
	}

	tests := []struct {
		name string
		draw func(*render.Terminal)
	}{
		{"added", func(term *render.Terminal) { term.MessageAdded(hostile) }},
		{"updated", func(term *render.Terminal) { term.MessageUpdated(hostile) }},
		{"removed", func(term *render.Terminal) { term.MessageRemoved(hostile.ID) }},
		{"typing", func(term *render.Terminal) { term.TypingChanged(hostile.Author) }},
		{"editing", func(term *render.Terminal) { term.EditChanged(&hostile) }},
		{"redraw", func(term *render.Terminal) { term.PrintMessages([]chat.Message{hostile}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, buf := newTerminal()
			tt.draw(term)

			got := buf.String()
			for _, bad := range []string{"\x1b", "\a", "\r"} {
				if strings.Contains(got, bad) {
					t.Errorf("output %q contains %q", got, bad)
				}
			}
			if strings.Count(got, "\n") != 1 {
				t.Errorf("output %q should be a single line", got)
			}
		})
	}
}
