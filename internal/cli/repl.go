package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/omochice/chat-session/internal/chat"
	"github.com/omochice/chat-session/internal/session"
)

var (
	// ErrQuit is returned by Execute for /quit.
	ErrQuit = errors.New("quit")
	// ErrUsage is returned for unknown commands and missing arguments.
	ErrUsage = errors.New("usage")
)

// Help lists the commands understood by Execute.
const Help = `commands:
  <text>        send a message (or the new text while editing)
  /edit <id>    edit one of your messages
  /cancel       leave edit mode
  /delete <id>  delete one of your messages
  /list         show all messages
  /quit         exit`

// Controller is the part of a session driven from the terminal.
type Controller interface {
	Send(content string) error
	StartEdit(id string) error
	CancelEdit() error
	Delete(id string) error
	Keystroke() error
	Messages() []chat.Message
}

// Printer shows command output.
type Printer interface {
	PrintMessages(msgs []chat.Message)
	Notice(format string, args ...interface{})
}

// ScanLines streams the lines of r. The channel is closed at EOF.
func ScanLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// Execute runs one input line against ctl.
// Plain text counts as a keystroke followed by a send.
func Execute(ctl Controller, out Printer, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		if err := ctl.Keystroke(); err != nil {
			return err
		}
		return ctl.Send(line)
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/edit":
		if len(args) != 1 {
			return fmt.Errorf("%w: /edit <id>", ErrUsage)
		}
		return ctl.StartEdit(args[0])
	case "/cancel":
		return ctl.CancelEdit()
	case "/delete":
		if len(args) != 1 {
			return fmt.Errorf("%w: /delete <id>", ErrUsage)
		}
		return ctl.Delete(args[0])
	case "/list":
		out.PrintMessages(ctl.Messages())
		return nil
	case "/help":
		out.Notice("%s", Help)
		return nil
	case "/quit", "/exit":
		return ErrQuit
	default:
		return fmt.Errorf("%w: unknown command %s, try /help", ErrUsage, cmd)
	}
}

// Run executes lines until they run out, /quit is entered, the session
// closes or ctx is cancelled. Command errors are printed and do not stop it.
func Run(ctx context.Context, lines <-chan string, ctl Controller, out Printer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := Execute(ctl, out, line)
			switch {
			case err == nil:
			case errors.Is(err, ErrQuit), errors.Is(err, session.ErrClosed):
				return nil
			default:
				out.Notice("%v", err)
			}
		}
	}
}

// PromptIdentity asks for a name until accept takes one.
func PromptIdentity(ctx context.Context, lines <-chan string, out Printer, accept func(string) error) (string, error) {
	for {
		out.Notice("Enter your name:")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return "", io.ErrUnexpectedEOF
			}
			name := strings.TrimSpace(line)
			err := accept(name)
			if errors.Is(err, session.ErrInvalidInput) {
				continue
			}
			if err != nil {
				return "", err
			}
			return name, nil
		}
	}
}
