package session

// State is the connection lifecycle state of a session.
type State int

const (
	StateAwaitingIdentity State = iota
	StateConnecting
	StateConnected
	StateClosed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateAwaitingIdentity:
		return "awaiting_identity"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
