package protocol_test

import (
	"errors"
	"testing"
	"time"

	"github.com/omochice/chat-session/pkg/protocol"
)

func TestFrame_EncodeDecode(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 250*int(time.Millisecond), time.UTC)

	tests := []struct {
		name  string
		frame protocol.Frame
	}{
		{
			name:  "message frame",
			frame: protocol.NewMessage("01HX", "Ava", "Hello, World!", ts),
		},
		{
			name:  "edit frame",
			frame: protocol.NewEdit("42", "Ava", "hello"),
		},
		{
			name:  "delete frame",
			frame: protocol.NewDelete("42", "Ava"),
		},
		{
			name:  "typing frame",
			frame: protocol.NewTyping("Ben"),
		},
		{
			name:  "stop typing frame",
			frame: protocol.NewStopTyping("Ben"),
		},
		{
			name:  "message with unicode content",
			frame: protocol.NewMessage("7", "Zoë", "こんにちは 👋", ts),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.frame.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			var got protocol.Frame
			if err := got.Decode(data); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Type != tt.frame.Type {
				t.Errorf("Type = %v, want %v", got.Type, tt.frame.Type)
			}
			if got.ID != tt.frame.ID {
				t.Errorf("ID = %q, want %q", got.ID, tt.frame.ID)
			}
			if got.Username != tt.frame.Username {
				t.Errorf("Username = %q, want %q", got.Username, tt.frame.Username)
			}
			if got.Content != tt.frame.Content {
				t.Errorf("Content = %q, want %q", got.Content, tt.frame.Content)
			}
			if !got.Timestamp.Equal(tt.frame.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, tt.frame.Timestamp)
			}
		})
	}
}

func TestFrame_DecodeForeignJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want protocol.Frame
	}{
		{
			name: "numeric id from browser peer",
			data: `{"type":"message","id":1714566600000,"username":"Ben","content":"hi","timestamp":"2024-05-01T12:30:00.000Z"}`,
			want: protocol.Frame{
				Type:      protocol.FrameMessage,
				ID:        "1714566600000",
				Username:  "Ben",
				Content:   "hi",
				Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
			},
		},
		{
			name: "extra fields are ignored",
			data: `{"type":"delete","id":"9","username":"Ben","isSystem":false}`,
			want: protocol.Frame{Type: protocol.FrameDelete, ID: "9", Username: "Ben"},
		},
		{
			name: "empty content is allowed on edit",
			data: `{"type":"edit","id":"9","username":"Ben","content":""}`,
			want: protocol.Frame{Type: protocol.FrameEdit, ID: "9", Username: "Ben"},
		},
		{
			name: "timestamp with offset",
			data: `{"type":"message","id":"1","username":"Ben","content":"x","timestamp":"2024-05-01T14:30:00+02:00"}`,
			want: protocol.Frame{
				Type:      protocol.FrameMessage,
				ID:        "1",
				Username:  "Ben",
				Content:   "x",
				Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got protocol.Frame
			if err := got.Decode([]byte(tt.data)); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Type != tt.want.Type || got.ID != tt.want.ID || got.Username != tt.want.Username || got.Content != tt.want.Content {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
			if !got.Timestamp.Equal(tt.want.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, tt.want.Timestamp)
			}
		})
	}
}

func TestFrame_DecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"json array", `["message"]`},
		{"missing type", `{"id":"1","username":"Ben"}`},
		{"unknown type", `{"type":"reaction","username":"Ben"}`},
		{"type is not a string", `{"type":3,"username":"Ben"}`},
		{"message without id", `{"type":"message","username":"Ben","content":"hi","timestamp":"2024-05-01T12:30:00Z"}`},
		{"message without timestamp", `{"type":"message","id":"1","username":"Ben","content":"hi"}`},
		{"message with bad timestamp", `{"type":"message","id":"1","username":"Ben","content":"hi","timestamp":"yesterday"}`},
		{"edit without content", `{"type":"edit","id":"1","username":"Ben"}`},
		{"delete without username", `{"type":"delete","id":"1"}`},
		{"typing without username", `{"type":"typing"}`},
		{"fractional id", `{"type":"delete","id":1.5,"username":"Ben"}`},
		{"empty string id", `{"type":"delete","id":"","username":"Ben"}`},
		{"boolean id", `{"type":"delete","id":true,"username":"Ben"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f protocol.Frame
			err := f.Decode([]byte(tt.data))
			if err == nil {
				t.Fatalf("Decode() error = nil, want ErrMalformedFrame")
			}
			if !errors.Is(err, protocol.ErrMalformedFrame) {
				t.Errorf("Decode() error = %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestFrame_EncodeRejectsIncompleteFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame protocol.Frame
	}{
		{"unknown type", protocol.Frame{Type: "reaction", Username: "Ava"}},
		{"message without timestamp", protocol.NewMessage("1", "Ava", "hi", time.Time{})},
		{"edit without id", protocol.NewEdit("", "Ava", "hi")},
		{"typing without username", protocol.NewTyping("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.frame.Encode()
			if !errors.Is(err, protocol.ErrMalformedFrame) {
				t.Errorf("Encode() error = %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestFrameType_String(t *testing.T) {
	tests := []struct {
		ft   protocol.FrameType
		want string
	}{
		{protocol.FrameMessage, "message"},
		{protocol.FrameEdit, "edit"},
		{protocol.FrameDelete, "delete"},
		{protocol.FrameTyping, "typing"},
		{protocol.FrameStopTyping, "stop_typing"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.ft.String(); got != tt.want {
				t.Errorf("FrameType.String() = %v, want %v", got, tt.want)
			}
			if !tt.ft.Valid() {
				t.Errorf("FrameType(%q).Valid() = false, want true", tt.ft)
			}
		})
	}
}
