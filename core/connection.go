package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/realtime"
	"go.opentelemetry.io/otel/codes"
)

// connection holds everything acquired for one Connect. Resources are
// adopted under mu so a concurrent teardown either sees them or makes the
// connecting side release them.
type connection struct {
	id uuid.UUID

	mu        sync.Mutex
	transport realtime.Transport
	input     audio.Input
	output    audio.Output
	playback  *playbackScheduler
	capture   *capturePipeline

	ctx    context.Context
	cancel context.CancelFunc

	closing atomic.Bool
	paused  atomic.Bool
}

func newConnection() *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{id: uuid.New(), ctx: ctx, cancel: cancel}
}

func (c *connection) adopt(attach func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing.Load() {
		return false
	}
	attach()
	return true
}

func (c *connection) capturing() bool {
	return !c.closing.Load() && !c.paused.Load() && c.transport != nil
}

func (s *Session) isCurrent(c *connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn == c
}

// consume runs the event loop of one connection until its transport closes
// or the connection is torn down.
func (s *Session) consume(c *connection) {
	run := panicSafeNamedWorker("session events", func(ctx context.Context) error {
		for event := range c.transport.Events() {
			if c.closing.Load() {
				return nil
			}
			if done := s.handleEvent(ctx, c, event); done {
				return nil
			}
		}
		return nil
	})

	if err := run(c.ctx); err != nil {
		logger.Error("session event loop stopped", "connection", c.id.String(), "error", err)
		_ = s.teardown(context.Background(), c, StateError, err.Error())
		return
	}

	// The stream ended without a Closed event.
	_ = s.teardown(context.Background(), c, StateDisconnected, "")
}

func (s *Session) handleEvent(ctx context.Context, c *connection, event events.Event) bool {
	switch e := event.(type) {
	case events.Opened:
		s.onOpened(ctx, c)

	case events.AudioDelta:
		if c.paused.Load() {
			return false
		}
		if _, err := c.playback.Schedule(e.Audio); err != nil {
			logger.Warn("failed to schedule assistant audio", "error", err)
		}

	case events.InputTranscriptDelta:
		s.turns.appendInput(e.Text)

	case events.OutputTranscriptDelta:
		s.turns.appendOutput(e.Text)

	case events.TurnComplete:
		if segment, ok := s.turns.flush(); ok {
			s.transcript.Append(segment)
			if s.callbacks.onTranscriptSegment != nil {
				s.callbacks.onTranscriptSegment(segment)
			}
		}

	case events.Interrupted:
		c.playback.Interrupt()
		s.turns.discardOutput()
		if aware, ok := c.transport.(realtime.InterruptionAware); ok {
			if err := aware.HandleInterruption(ctx); err != nil {
				logger.Warn("failed to forward interruption to provider", "error", err)
			}
		}

	case events.Error:
		if e.Fatal {
			_ = s.teardown(ctx, c, StateError, e.Message)
			return true
		}
		s.reportError(e.Message)

	case events.Closed:
		logger.Info("connection closed", "connection", c.id.String(), "reason", e.Reason)
		_ = s.teardown(ctx, c, StateDisconnected, "")
		return true

	default:
		logger.Debug("ignoring unknown event", "namespace", event.Kind().Namespace(), "kind", string(event.Kind()))
	}

	return false
}

func (s *Session) onOpened(ctx context.Context, c *connection) {
	s.mu.Lock()
	if s.conn != c || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	s.mu.Unlock()
	s.notifyState(StateConnected)

	if err := c.input.StartCapture(ctx, c.capture.onFrame); err != nil {
		err = fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
		logger.Error("failed to start capture", "error", err)
		_ = s.teardown(ctx, c, StateError, err.Error())
	}
}

// teardown moves the session out of the connection's states first, so no
// further events are accepted, then releases each resource independently.
func (s *Session) teardown(ctx context.Context, c *connection, final State, reason string) error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	current := s.conn == c
	changed := false
	if current {
		s.conn = nil
		changed = s.state != final
		s.state = final
		if final == StateError {
			s.errMessage = reason
		}
	}
	s.mu.Unlock()

	if current {
		if changed {
			s.notifyState(final)
		}
		if final == StateError {
			s.notifyError(reason)
		}
	}

	_, span := tracer.Start(ctx, "disconnect session")
	defer span.End()

	c.mu.Lock()
	transport, input, output, playback := c.transport, c.input, c.output, c.playback
	c.mu.Unlock()

	var errs error
	release := func(name string, fn func() error) {
		if err := fn(); err != nil {
			err = fmt.Errorf("failed to %s: %w", name, err)
			logger.Warn("teardown step failed", "connection", c.id.String(), "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			errs = errors.Join(errs, err)
		}
	}

	if transport != nil {
		release("close transport", transport.Close)
	}
	if input != nil {
		release("stop capture", input.StopCapture)
		release("close audio input", input.Close)
	}
	if playback != nil {
		release("stop playback", func() error { playback.Release(); return nil })
	}
	if output != nil {
		release("close audio output", output.Close)
	}
	c.cancel()

	if current {
		s.turns.reset()
		s.setLevel(0)
	}
	return errs
}
