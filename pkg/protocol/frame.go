// Package protocol defines the wire frames exchanged between chat peers.
package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedFrame is returned when a frame cannot be decoded or encoded.
var ErrMalformedFrame = errors.New("malformed frame")

// FrameType is the "type" tag of a wire frame.
type FrameType string

const (
	FrameMessage    FrameType = "message"
	FrameEdit       FrameType = "edit"
	FrameDelete     FrameType = "delete"
	FrameTyping     FrameType = "typing"
	FrameStopTyping FrameType = "stop_typing"
)

// TimestampLayout matches the ISO-8601 form produced by browsers.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Valid reports whether ft is a known frame type.
func (ft FrameType) Valid() bool {
	switch ft {
	case FrameMessage, FrameEdit, FrameDelete, FrameTyping, FrameStopTyping:
		return true
	default:
		return false
	}
}

// String returns the wire tag.
func (ft FrameType) String() string {
	return string(ft)
}

// Wire field names.
const (
	fieldType      = "type"
	fieldID        = "id"
	fieldUsername  = "username"
	fieldContent   = "content"
	fieldTimestamp = "timestamp"
)

// requiredFields lists the payload fields each frame type must carry.
var requiredFields = map[FrameType][]string{
	FrameMessage:    {fieldID, fieldUsername, fieldContent, fieldTimestamp},
	FrameEdit:       {fieldID, fieldContent, fieldUsername},
	FrameDelete:     {fieldID, fieldUsername},
	FrameTyping:     {fieldUsername},
	FrameStopTyping: {fieldUsername},
}

// Frame is one discrete structured message on the wire.
// Fields that a frame type does not carry are left zero.
type Frame struct {
	Type      FrameType
	ID        string
	Username  string
	Content   string
	Timestamp time.Time
}

// NewMessage creates a message frame.
func NewMessage(id, username, content string, ts time.Time) Frame {
	return Frame{Type: FrameMessage, ID: id, Username: username, Content: content, Timestamp: ts}
}

// NewEdit creates an edit frame.
func NewEdit(id, username, content string) Frame {
	return Frame{Type: FrameEdit, ID: id, Username: username, Content: content}
}

// NewDelete creates a delete frame.
func NewDelete(id, username string) Frame {
	return Frame{Type: FrameDelete, ID: id, Username: username}
}

// NewTyping creates a typing frame.
func NewTyping(username string) Frame {
	return Frame{Type: FrameTyping, Username: username}
}

// NewStopTyping creates a stop_typing frame.
func NewStopTyping(username string) Frame {
	return Frame{Type: FrameStopTyping, Username: username}
}

// Encode encodes the frame into a JSON object.
func (f *Frame) Encode() ([]byte, error) {
	s, err := f.toStruct()
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}

// Decode decodes a JSON object into the frame.
// All errors wrap ErrMalformedFrame.
func (f *Frame) Decode(data []byte) error {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	decoded, err := fromStruct(s)
	if err != nil {
		return err
	}
	*f = decoded
	return nil
}

// toStruct builds the wire object, keeping only the fields the type carries.
func (f *Frame) toStruct() (*structpb.Struct, error) {
	required, ok := requiredFields[f.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, f.Type)
	}

	fields := map[string]interface{}{fieldType: string(f.Type)}
	for _, name := range required {
		switch name {
		case fieldID:
			if f.ID == "" {
				return nil, fmt.Errorf("%w: %s frame without id", ErrMalformedFrame, f.Type)
			}
			fields[fieldID] = f.ID
		case fieldUsername:
			if f.Username == "" {
				return nil, fmt.Errorf("%w: %s frame without username", ErrMalformedFrame, f.Type)
			}
			fields[fieldUsername] = f.Username
		case fieldContent:
			fields[fieldContent] = f.Content
		case fieldTimestamp:
			if f.Timestamp.IsZero() {
				return nil, fmt.Errorf("%w: %s frame without timestamp", ErrMalformedFrame, f.Type)
			}
			fields[fieldTimestamp] = f.Timestamp.UTC().Format(TimestampLayout)
		}
	}
	return structpb.NewStruct(fields)
}

func fromStruct(s *structpb.Struct) (Frame, error) {
	values := s.GetFields()

	tag, ok := stringField(values, fieldType)
	if !ok {
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	ft := FrameType(tag)
	if !ft.Valid() {
		return Frame{}, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, tag)
	}

	f := Frame{Type: ft}
	for _, name := range requiredFields[ft] {
		switch name {
		case fieldID:
			id, ok := idField(values, fieldID)
			if !ok {
				return Frame{}, missing(ft, name)
			}
			f.ID = id
		case fieldUsername:
			if f.Username, ok = stringField(values, fieldUsername); !ok {
				return Frame{}, missing(ft, name)
			}
		case fieldContent:
			if f.Content, ok = stringField(values, fieldContent); !ok {
				return Frame{}, missing(ft, name)
			}
		case fieldTimestamp:
			raw, ok := stringField(values, fieldTimestamp)
			if !ok {
				return Frame{}, missing(ft, name)
			}
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return Frame{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedFrame, raw)
			}
			f.Timestamp = ts
		}
	}
	return f, nil
}

func missing(ft FrameType, field string) error {
	return fmt.Errorf("%w: %s frame missing %s", ErrMalformedFrame, ft, field)
}

func stringField(values map[string]*structpb.Value, name string) (string, bool) {
	v, ok := values[name]
	if !ok {
		return "", false
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return sv.StringValue, true
}

// idField accepts identifiers sent as strings or as integral numbers.
func idField(values map[string]*structpb.Value, name string) (string, bool) {
	v, ok := values[name]
	if !ok {
		return "", false
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, kind.StringValue != ""
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return "", false
		}
		return strconv.FormatInt(int64(n), 10), true
	default:
		return "", false
	}
}
