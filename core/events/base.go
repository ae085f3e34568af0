package events

import (
	"strings"
	"time"
)

// Kind names an event as "<namespace>.<name>", e.g. "turn.complete".
type Kind string

// Namespace returns the part of the kind before the first dot.
func (k Kind) Namespace() string {
	namespace, _, _ := strings.Cut(string(k), ".")
	return namespace
}

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields every event shares. Embed it and build it with
// NewBase.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

// Timestamp is when the adapter produced the event, not when the provider
// sent the underlying message.
func (b Base) Timestamp() time.Time {
	return b.timestamp
}
