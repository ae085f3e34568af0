package orchestration

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	}
	return "unknown"
}

// IsLive reports whether the state holds an open connection.
func (s State) IsLive() bool {
	return s == StateConnecting || s == StateConnected || s == StatePaused
}
