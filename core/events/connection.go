package events

const (
	// KindOpened identifies a transport that is ready to exchange audio.
	KindOpened Kind = "connection.opened"
	// KindClosed identifies a transport closed by either side.
	KindClosed Kind = "connection.closed"
	// KindError identifies a provider or transport error.
	KindError Kind = "connection.error"
)

// Opened marks the transport as ready.
type Opened struct{ Base }

// NewOpened creates a connection opened event.
func NewOpened() Opened {
	return Opened{Base: NewBase(KindOpened)}
}

// Closed marks the end of the transport. At most one is delivered per
// connection and it is always the last event.
type Closed struct {
	Base
	Reason string
}

// NewClosed creates a connection closed event.
func NewClosed(reason string) Closed {
	return Closed{Base: NewBase(KindClosed), Reason: reason}
}

// Error carries a provider error message. Fatal errors are followed by
// Closed; non-fatal errors leave the connection running.
type Error struct {
	Base
	Message string
	Fatal   bool
}

// NewError creates a non-fatal error event.
func NewError(message string) Error {
	return Error{Base: NewBase(KindError), Message: message}
}

// NewFatalError creates an error event that ends the connection.
func NewFatalError(message string) Error {
	return Error{Base: NewBase(KindError), Message: message, Fatal: true}
}
