package audio

import (
	"context"
	"errors"
	"time"
)

// ErrInputUnavailable is returned when the microphone cannot be opened,
// typically because access was denied.
var ErrInputUnavailable = errors.New("audio input unavailable")

// Input delivers fixed-size microphone frames on the device callback.
type Input interface {
	StartCapture(ctx context.Context, onFrame func(Frame)) error
	StopCapture() error
	Close() error
}

// Suspender is implemented by devices whose clock can be paused without
// releasing the device.
type Suspender interface {
	Suspend() error
	Resume() error
}

// Output plays scheduled buffers against its own clock.
type Output interface {
	// Play schedules samples to start at the given clock offset. onEnded runs
	// after natural completion and never from within Play.
	Play(samples []float32, at time.Duration, onEnded func()) (Stopper, error)
	CurrentTime() time.Duration
	Suspender
	Close() error
}

// Devices opens fresh input and output contexts for each connection.
type Devices interface {
	OpenInput(ctx context.Context, info EncodingInfo) (Input, error)
	OpenOutput(ctx context.Context, info EncodingInfo) (Output, error)
}
