package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/realtime"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// maxConsecutiveDecodeFailures ends a session whose stream keeps producing
// messages that cannot be decoded.
const maxConsecutiveDecodeFailures = 10

const unstableMessage = "Connection unstable. If voice stops, please restart."

type session struct {
	live    liveSession
	options realtime.Options
	mime    string
	stream  *realtime.EventStream

	sendMu       sync.Mutex
	activityOpen bool

	closing   atomic.Bool
	closeOnce sync.Once
	readDone  chan struct{}

	skippedMessages metric.Int64Counter
}

func newSession(live liveSession, options realtime.Options) *session {
	skipped, err := meter.Int64Counter("protocol.messages.skipped")
	if err != nil {
		logger.Warn("failed to create skipped messages counter", "error", err)
	}

	return &session{
		live:            live,
		options:         options,
		mime:            options.EncodingInfo.MIMEType(),
		stream:          realtime.NewEventStream(options.EventBufferSize),
		readDone:        make(chan struct{}),
		skippedMessages: skipped,
	}
}

func (s *session) start() {
	s.stream.Emit(events.NewOpened())
	go s.receiveMessages()
}

func (s *session) Events() <-chan events.Event {
	return s.stream.Events()
}

func (s *session) SendAudio(pcm []byte) error {
	if s.closing.Load() {
		return realtime.ErrTransportClosed
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.options.TurnDetection == realtime.TurnDetectionNone && !s.activityOpen {
		if err := s.live.SendRealtimeInput(genai.LiveRealtimeInput{ActivityStart: &genai.ActivityStart{}}); err != nil {
			return fmt.Errorf("failed to start gemini activity: %w", err)
		}
		s.activityOpen = true
	}

	chunk := audio.WireChunk{Data: pcm, Direction: audio.Outbound, Transport: audio.Binary}
	if err := s.live.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: s.mime, Data: chunk.Data},
	}); err != nil {
		return fmt.Errorf("failed to send audio to gemini: %w", err)
	}
	return nil
}

// SendControl supports manual turn-taking: committing ends the open
// activity, after which the model responds on its own.
func (s *session) SendControl(_ context.Context, control realtime.Control) error {
	switch control {
	case realtime.ControlCreateResponse:
		return nil
	case realtime.ControlCommitInputBuffer:
	default:
		return fmt.Errorf("gemini control %q: %w", control, realtime.ErrUnsupportedControl)
	}

	if s.closing.Load() {
		return realtime.ErrTransportClosed
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.activityOpen {
		return nil
	}
	if err := s.live.SendRealtimeInput(genai.LiveRealtimeInput{ActivityEnd: &genai.ActivityEnd{}}); err != nil {
		return fmt.Errorf("failed to end gemini activity: %w", err)
	}
	s.activityOpen = false
	return nil
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.stream.Abandon()
		err = s.live.Close()
		<-s.readDone
	})
	return err
}

func (s *session) receiveMessages() {
	defer close(s.readDone)
	ctx := context.Background()

	failures := 0
	for {
		msg, err := s.live.Receive()
		if err != nil {
			if s.closing.Load() || isConnectionError(err) || failures >= maxConsecutiveDecodeFailures {
				s.finish(err)
				return
			}
			failures++
			if failures == 1 {
				s.stream.Emit(events.NewError(unstableMessage))
			}
			logger.Warn("skipping gemini message", "error", err)
			if s.skippedMessages != nil {
				s.skippedMessages.Add(ctx, 1)
			}
			continue
		}
		failures = 0

		for _, event := range translateServerMessage(msg) {
			s.stream.Emit(event)
		}
	}
}

func (s *session) finish(err error) {
	var closeErr *websocket.CloseError
	switch {
	case s.closing.Load():
		s.stream.Finish("closed by client")
	case errors.As(err, &closeErr) && realtime.IsGracefulClose(closeErr.Code):
		s.stream.Finish(realtime.CloseReason(closeErr))
	case errors.As(err, &closeErr):
		s.stream.Emit(events.NewFatalError(fmt.Sprintf("Connection closed: %s", realtime.CloseReason(closeErr))))
		s.stream.Finish(realtime.CloseReason(closeErr))
	default:
		logger.Error("gemini live session failed", "error", err)
		s.stream.Emit(events.NewFatalError(fmt.Sprintf("Connection lost: %v", err)))
		s.stream.Finish("connection lost")
	}
	_ = s.live.Close()
}

func isConnectionError(err error) bool {
	var closeErr *websocket.CloseError
	var netErr net.Error
	return errors.As(err, &closeErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
