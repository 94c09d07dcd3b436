package chat

import "container/list"

// Store is the ordered in-memory message log, indexed by message ID.
// Insertion order is display order. Store is not safe for concurrent use;
// the owning session serializes all access.
type Store struct {
	order *list.List
	index map[string]*list.Element
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// Append inserts msg at the end of the log.
// It returns false without changing anything if the ID is already present.
func (s *Store) Append(msg Message) bool {
	if _, ok := s.index[msg.ID]; ok {
		return false
	}
	s.index[msg.ID] = s.order.PushBack(msg)
	return true
}

// EditContent replaces the content of the message and marks it edited.
// Missing IDs are ignored: the message may have raced with a delete.
func (s *Store) EditContent(id, content string) (Message, bool) {
	el, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	msg := el.Value.(Message)
	msg.Content = content
	msg.Edited = true
	el.Value = msg
	return msg, true
}

// Remove deletes the message with the given ID, if present.
func (s *Store) Remove(id string) (Message, bool) {
	el, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	delete(s.index, id)
	return s.order.Remove(el).(Message), true
}

// Find returns the message with the given ID.
func (s *Store) Find(id string) (Message, bool) {
	el, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	return el.Value.(Message), true
}

// Len returns the number of messages.
func (s *Store) Len() int {
	return len(s.index)
}

// Messages returns a snapshot of the log in display order.
func (s *Store) Messages() []Message {
	out := make([]Message, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(Message))
	}
	return out
}
