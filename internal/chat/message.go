// Package chat provides the client-side chat domain: messages and the ordered message log.
package chat

import "time"

// SystemAuthor is the author name of locally generated system messages.
const SystemAuthor = "System"

// Message represents a chat message held by the client.
type Message struct {
	ID        string
	Author    string
	Content   string
	CreatedAt time.Time
	Edited    bool
	IsSystem  bool
}

// NewSystemMessage creates a local system message.
func NewSystemMessage(id, content string, at time.Time) Message {
	return Message{
		ID:        id,
		Author:    SystemAuthor,
		Content:   content,
		CreatedAt: at,
		IsSystem:  true,
	}
}

// OwnedBy reports whether the message was authored by username.
func (m Message) OwnedBy(username string) bool {
	return !m.IsSystem && m.Author == username
}
