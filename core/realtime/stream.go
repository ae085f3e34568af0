package realtime

import (
	"sync"

	"github.com/koscakluka/ema-live/core/events"
)

// EventStream is the ordered event channel behind a Transport.
//
// It has a single producer: Emit and Finish must be called from the same
// goroutine, and Emit never after Finish.
type EventStream struct {
	ch   chan events.Event
	done chan struct{}

	finishOnce  sync.Once
	abandonOnce sync.Once
}

func NewEventStream(size int) *EventStream {
	if size <= 0 {
		size = DefaultEventBufferSize
	}
	return &EventStream{
		ch:   make(chan events.Event, size),
		done: make(chan struct{}),
	}
}

func (s *EventStream) Events() <-chan events.Event {
	return s.ch
}

// Emit blocks until the event is buffered or the consumer abandoned the
// stream. It reports whether the event was buffered.
func (s *EventStream) Emit(event events.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.ch <- event:
		return true
	case <-s.done:
		return false
	}
}

// Finish delivers the terminal Closed event and closes the channel. Only
// the first call has an effect.
func (s *EventStream) Finish(reason string) {
	s.finishOnce.Do(func() {
		s.Emit(events.NewClosed(reason))
		close(s.ch)
	})
}

// Abandon unblocks the producer once the consumer stops reading.
func (s *EventStream) Abandon() {
	s.abandonOnce.Do(func() { close(s.done) })
}

func (s *EventStream) Abandoned() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
