package session

import "github.com/omochice/chat-session/internal/chat"

// Renderer is the presentation collaborator. The session calls it as a side
// effect of state changes, always from the session loop, and ignores the outcome.
// Messages are passed by value and must be treated as snapshots.
type Renderer interface {
	MessageAdded(msg chat.Message)
	MessageUpdated(msg chat.Message)
	MessageRemoved(id string)
	// TypingChanged reports the remote typist; an empty author hides the indicator.
	TypingChanged(author string)
	ConnectionChanged(state State)
	// EditChanged reports the message being edited, or nil when edit mode ends.
	EditChanged(msg *chat.Message)
}

// NopRenderer discards all render calls.
type NopRenderer struct{}

func (NopRenderer) MessageAdded(chat.Message)   {}
func (NopRenderer) MessageUpdated(chat.Message) {}
func (NopRenderer) MessageRemoved(string)       {}
func (NopRenderer) TypingChanged(string)        {}
func (NopRenderer) ConnectionChanged(State)     {}
func (NopRenderer) EditChanged(*chat.Message)   {}
