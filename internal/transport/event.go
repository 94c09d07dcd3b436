package transport

// EventKind identifies a transport lifecycle event.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventFrameReceived
	EventError
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventFrameReceived:
		return "frame_received"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one observable transport event.
// Frame is set for EventFrameReceived, Err for EventError.
type Event struct {
	Kind  EventKind
	Frame []byte
	Err   error
}

// Handler receives transport events in real time order.
type Handler func(Event)
