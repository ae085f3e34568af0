package events

const (
	// KindTurnComplete identifies the end of an exchange.
	KindTurnComplete Kind = "turn.complete"
	// KindInterrupted identifies the user speaking over the assistant.
	KindInterrupted Kind = "turn.interrupted"
)

// TurnComplete marks the end of a user/assistant exchange.
type TurnComplete struct{ Base }

// NewTurnComplete creates a turn complete event.
func NewTurnComplete() TurnComplete {
	return TurnComplete{Base: NewBase(KindTurnComplete)}
}

// Interrupted marks that queued assistant audio must be discarded.
type Interrupted struct{ Base }

// NewInterrupted creates an interruption event.
func NewInterrupted() Interrupted {
	return Interrupted{Base: NewBase(KindInterrupted)}
}
