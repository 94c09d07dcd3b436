package chat_test

import (
	"testing"
	"time"

	"github.com/omochice/chat-session/internal/chat"
)

func msg(id, content string) chat.Message {
	return chat.Message{
		ID:        id,
		Author:    "Ava",
		Content:   content,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func ids(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStore_Append(t *testing.T) {
	s := chat.NewStore()

	if !s.Append(msg("1", "hello")) {
		t.Fatal("Append() = false, want true for a new id")
	}

	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestStore_Append_Idempotent(t *testing.T) {
	s := chat.NewStore()
	s.Append(msg("1", "hello"))

	if s.Append(msg("1", "hello again")) {
		t.Error("Append() = true for a duplicate id, want false")
	}

	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	got, _ := s.Find("1")
	if got.Content != "hello" {
		t.Errorf("Content = %q, want the first delivery %q", got.Content, "hello")
	}
}

func TestStore_EditContent(t *testing.T) {
	s := chat.NewStore()
	s.Append(msg("1", "hello"))

	got, ok := s.EditContent("1", "hi")
	if !ok {
		t.Fatal("EditContent() ok = false, want true")
	}
	if got.Content != "hi" || !got.Edited {
		t.Errorf("EditContent() = %+v, want content %q and Edited", got, "hi")
	}

	stored, _ := s.Find("1")
	if stored.Content != "hi" || !stored.Edited {
		t.Errorf("Find() after edit = %+v", stored)
	}
}

func TestStore_EditAfterRemove_IsNoop(t *testing.T) {
	s := chat.NewStore()
	s.Append(msg("1", "hello"))
	s.Append(msg("2", "world"))

	s.Remove("1")

	if _, ok := s.EditContent("1", "resurrected"); ok {
		t.Error("EditContent() ok = true for a removed id, want false")
	}
	if _, ok := s.Find("1"); ok {
		t.Error("Find() found a removed message")
	}
	if got := ids(s.Messages()); !equalIDs(got, []string{"2"}) {
		t.Errorf("Messages() ids = %v, want [2]", got)
	}
}

func TestStore_Remove_Missing(t *testing.T) {
	s := chat.NewStore()
	s.Append(msg("1", "hello"))

	if _, ok := s.Remove("nope"); ok {
		t.Error("Remove() ok = true for a missing id, want false")
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestStore_OrderPreservation(t *testing.T) {
	tests := []struct {
		name string
		ops  func(s *chat.Store)
		want []string
	}{
		{
			name: "plain appends",
			ops: func(s *chat.Store) {
				s.Append(msg("a", ""))
				s.Append(msg("b", ""))
				s.Append(msg("c", ""))
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "edits do not reorder",
			ops: func(s *chat.Store) {
				s.Append(msg("a", ""))
				s.Append(msg("b", ""))
				s.EditContent("a", "changed")
				s.Append(msg("c", ""))
				s.EditContent("b", "changed")
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "deletes of other ids keep relative order",
			ops: func(s *chat.Store) {
				s.Append(msg("a", ""))
				s.Append(msg("x", ""))
				s.Append(msg("b", ""))
				s.Remove("x")
				s.Append(msg("c", ""))
				s.Remove("missing")
				s.Append(msg("d", ""))
			},
			want: []string{"a", "b", "c", "d"},
		},
		{
			name: "re-append after delete goes to the end",
			ops: func(s *chat.Store) {
				s.Append(msg("a", ""))
				s.Append(msg("b", ""))
				s.Remove("a")
				s.Append(msg("a", ""))
			},
			want: []string{"b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := chat.NewStore()
			tt.ops(s)
			if got := ids(s.Messages()); !equalIDs(got, tt.want) {
				t.Errorf("Messages() ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_MessagesIsSnapshot(t *testing.T) {
	s := chat.NewStore()
	s.Append(msg("1", "hello"))

	snapshot := s.Messages()
	snapshot[0].Content = "mutated"

	got, _ := s.Find("1")
	if got.Content != "hello" {
		t.Errorf("store content changed through snapshot: %q", got.Content)
	}
}

func TestMessage_OwnedBy(t *testing.T) {
	tests := []struct {
		name string
		msg  chat.Message
		user string
		want bool
	}{
		{"own message", chat.Message{Author: "Ava"}, "Ava", true},
		{"other author", chat.Message{Author: "Ben"}, "Ava", false},
		{"system message", chat.NewSystemMessage("1", "Welcome", time.Now()), chat.SystemAuthor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.OwnedBy(tt.user); got != tt.want {
				t.Errorf("OwnedBy(%q) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}
}
