package azure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/realtime"
	"go.opentelemetry.io/otel/metric"
)

type socket struct {
	conn    *websocket.Conn
	connMu  sync.Mutex
	options realtime.Options
	stream  *realtime.EventStream

	closing   atomic.Bool
	closeOnce sync.Once
	readDone  chan struct{}

	skippedMessages metric.Int64Counter
}

func newSocket(conn *websocket.Conn, options realtime.Options) *socket {
	skipped, err := meter.Int64Counter("protocol.messages.skipped")
	if err != nil {
		logger.Warn("failed to create skipped messages counter", "error", err)
	}

	return &socket{
		conn:            conn,
		options:         options,
		stream:          realtime.NewEventStream(options.EventBufferSize),
		readDone:        make(chan struct{}),
		skippedMessages: skipped,
	}
}

func (s *socket) start() {
	s.stream.Emit(events.NewOpened())
	go s.readMessages()
}

func (s *socket) Events() <-chan events.Event {
	return s.stream.Events()
}

func (s *socket) SendAudio(pcm []byte) error {
	if s.closing.Load() {
		return realtime.ErrTransportClosed
	}
	if err := s.writeJSON(newAppendMessage(pcm)); err != nil {
		return fmt.Errorf("failed to write audio to azure socket: %w", err)
	}
	return nil
}

func (s *socket) SendControl(_ context.Context, control realtime.Control) error {
	msg, err := controlMessage(control)
	if err != nil {
		return err
	}
	if s.closing.Load() {
		return realtime.ErrTransportClosed
	}
	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("failed to write %s to azure socket: %w", msg.Type, err)
	}
	return nil
}

// HandleInterruption clears uncommitted input on the server. Without server
// turn detection the buffer is managed by the caller and left alone.
func (s *socket) HandleInterruption(ctx context.Context) error {
	if s.options.TurnDetection == realtime.TurnDetectionNone {
		return nil
	}
	return s.SendControl(ctx, realtime.ControlClearInputBuffer)
}

func (s *socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.stream.Abandon()

		s.connMu.Lock()
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if writeErr := s.conn.WriteMessage(websocket.CloseMessage, closeMsg); writeErr != nil &&
			!errors.Is(writeErr, websocket.ErrCloseSent) {
			logger.Debug("failed to send close frame to azure", "error", writeErr)
		}
		err = s.conn.Close()
		s.connMu.Unlock()

		<-s.readDone
	})
	return err
}

func (s *socket) writeJSON(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *socket) readMessages() {
	defer close(s.readDone)
	ctx := context.Background()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		translated, err := translateMessage(msg)
		if err != nil {
			logger.Warn("skipping azure message", "error", err)
			if s.skippedMessages != nil {
				s.skippedMessages.Add(ctx, 1)
			}
			continue
		}
		for _, event := range translated {
			s.stream.Emit(event)
		}
	}
}

const connectionFailedMessage = "Azure Connection Failed."

func (s *socket) finish(err error) {
	var closeErr *websocket.CloseError
	switch {
	case s.closing.Load():
		s.stream.Finish("closed by client")
	case errors.As(err, &closeErr) && realtime.IsGracefulClose(closeErr.Code):
		s.stream.Finish(realtime.CloseReason(closeErr))
	case errors.As(err, &closeErr) && closeErr.Code == websocket.CloseAbnormalClosure:
		logger.Error("azure socket dropped", "error", err)
		s.stream.Emit(events.NewFatalError(connectionFailedMessage))
		s.stream.Finish(realtime.CloseReason(closeErr))
	case errors.As(err, &closeErr):
		s.stream.Emit(events.NewFatalError(fmt.Sprintf("Connection closed: %s", realtime.CloseReason(closeErr))))
		s.stream.Finish(realtime.CloseReason(closeErr))
	default:
		logger.Error("failed to read azure socket message", "error", err)
		s.stream.Emit(events.NewFatalError(connectionFailedMessage))
		s.stream.Finish("connection lost")
	}
	_ = s.conn.Close()
}
