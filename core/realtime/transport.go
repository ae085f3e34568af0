package realtime

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-live/core/events"
)

var (
	ErrMissingCredentials = errors.New("provider credentials are missing")
	ErrUnsupportedControl = errors.New("control not supported by provider")
	ErrTransportClosed    = errors.New("transport closed")
)

// Provider opens realtime transports to one speech AI service.
type Provider interface {
	Name() string
	// Validate reports whether the provider has what it needs to connect,
	// without touching the network.
	Validate() error
	Open(ctx context.Context, opts ...Option) (Transport, error)
}

// Transport is one live connection. Events are delivered in arrival order
// and the channel is closed after the single Closed event.
type Transport interface {
	SendAudio(pcm []byte) error
	SendControl(ctx context.Context, control Control) error
	Events() <-chan events.Event
	// Close releases the connection. Pending events may be abandoned.
	Close() error
}

// InterruptionAware transports need to be told when the user barged in.
type InterruptionAware interface {
	HandleInterruption(ctx context.Context) error
}

type Control string

const (
	// ControlClearInputBuffer discards audio the provider has not yet committed.
	ControlClearInputBuffer Control = "clear_input_buffer"
	// ControlCommitInputBuffer ends the current user turn.
	ControlCommitInputBuffer Control = "commit_input_buffer"
	// ControlCreateResponse asks the provider to respond to committed input.
	ControlCreateResponse Control = "create_response"
)
