package orchestration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrProviderNotConfigured = errors.New("no realtime provider configured")
	ErrDevicesNotConfigured  = errors.New("no audio devices configured")
	ErrMicrophoneUnavailable = errors.New("microphone access denied or unavailable")
	ErrNotConnected          = errors.New("session not connected")
	ErrInvalidState          = errors.New("operation not allowed in current state")
	ErrUploadTooLarge        = errors.New("uploaded document exceeds size limit")
)

// MaxUploadSize is the largest document accepted as uploaded context.
const MaxUploadSize = 5 << 20

// Session drives one live voice conversation: it owns the connection, the
// capture and playback paths and the transcript.
type Session struct {
	provider        realtime.Provider
	devices         audio.Devices
	encodingInfo    audio.EncodingInfo
	turnDetection   realtime.TurnDetection
	providerOptions []realtime.Option
	meter           *audio.Meter

	baseInstructions string

	// connectMu serializes Connect so only one connection is ever adopted.
	connectMu sync.Mutex

	mu              sync.Mutex
	state           State
	errMessage      string
	conn            *connection
	uploadedContext string

	level      atomic.Uint64
	transcript *TranscriptLog
	turns      turnAggregator
	callbacks  sessionCallbacks
}

type sessionCallbacks struct {
	onStateChange       func(State)
	onAudioLevel        func(float64)
	onTranscriptSegment func(Segment)
	onError             func(string)
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		encodingInfo:  audio.GetDefaultEncodingInfo(),
		turnDetection: realtime.TurnDetectionServerVAD,
		meter:         audio.NewMeter(),
		transcript:    NewTranscriptLog(""),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the current user-visible error message, if any.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMessage
}

func (s *Session) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.id.String()
}

func (s *Session) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

func (s *Session) AudioLevel() float64 {
	return math.Float64frombits(s.level.Load())
}

// Transcript returns the full transcript, including any prior transcript.
func (s *Session) Transcript() string {
	return s.transcript.String()
}

func (s *Session) Segments() []Segment {
	return s.transcript.Segments()
}

func (s *Session) UploadedContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadedContext
}

// SetUploadedContext replaces the uploaded context used by the next connect.
func (s *Session) SetUploadedContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadedContext = text
}

// AppendUploadedContext adds a named document to the uploaded context.
func (s *Session) AppendUploadedContext(name, text string) error {
	if len(text) > MaxUploadSize {
		return fmt.Errorf("%s is %d bytes: %w", name, len(text), ErrUploadTooLarge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadedContext += "\n\n=== UPLOADED DOCUMENT: " + name + " ===\n" + text
	return nil
}

// SetPriorTranscript replaces the transcript with an earlier conversation.
// It is only allowed while no connection is live.
func (s *Session) SetPriorTranscript(transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsLive() {
		return ErrInvalidState
	}
	s.transcript.Reset(transcript)
	return nil
}

// Reset clears transcript, uploaded context and error, starting a new
// conversation. It is only allowed while no connection is live.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.state.IsLive() {
		s.mu.Unlock()
		return ErrInvalidState
	}
	s.transcript.Reset("")
	s.uploadedContext = ""
	hadError := s.errMessage != ""
	s.errMessage = ""
	changed := s.state != StateDisconnected
	s.state = StateDisconnected
	s.mu.Unlock()

	s.turns.reset()
	if hadError {
		s.notifyError("")
	}
	if changed {
		s.notifyState(StateDisconnected)
	}
	return nil
}

// Connect opens a new connection, replacing any live one. It returns once
// the transport is open; the session becomes Connected when the provider
// reports it is ready.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	ctx, span := tracer.Start(ctx, "connect session")
	defer span.End()

	if s.provider == nil {
		return ErrProviderNotConfigured
	}
	if s.devices == nil {
		return ErrDevicesNotConfigured
	}
	span.SetAttributes(attribute.String("provider", s.provider.Name()))

	if err := s.Disconnect(); err != nil {
		logger.Warn("failed to release previous connection", "error", err)
	}

	if err := s.provider.Validate(); err != nil {
		s.failBeforeConnect(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c := newConnection()
	s.mu.Lock()
	s.conn = c
	s.state = StateConnecting
	hadError := s.errMessage != ""
	s.errMessage = ""
	uploadedContext := s.uploadedContext
	s.mu.Unlock()

	if hadError {
		s.notifyError("")
	}
	s.notifyState(StateConnecting)
	s.meter.Reset()
	span.SetAttributes(attribute.String("connection.id", c.id.String()))

	if err := s.openConnection(ctx, c, uploadedContext); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, errConnectionAbandoned) {
			return fmt.Errorf("connect cancelled: %w", ErrNotConnected)
		}
		_ = s.teardown(ctx, c, StateError, err.Error())
		return err
	}

	go s.consume(c)
	return nil
}

var errConnectionAbandoned = errors.New("connection abandoned during connect")

func (s *Session) openConnection(ctx context.Context, c *connection, uploadedContext string) error {
	output, err := s.devices.OpenOutput(ctx, s.encodingInfo)
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	if !c.adopt(func() {
		c.output = output
		c.playback = newPlaybackScheduler(output, s.encodingInfo)
	}) {
		_ = output.Close()
		return errConnectionAbandoned
	}

	input, err := s.devices.OpenInput(ctx, s.encodingInfo)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
	}
	if !c.adopt(func() { c.input = input }) {
		_ = input.Close()
		return errConnectionAbandoned
	}

	opts := append([]realtime.Option{
		realtime.WithInstructions(composeInstructions(s.baseInstructions, uploadedContext, s.transcript.String())),
		realtime.WithTurnDetection(s.turnDetection),
		realtime.WithEncodingInfo(s.encodingInfo),
	}, s.providerOptions...)

	transport, err := s.provider.Open(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to open %s transport: %w", s.provider.Name(), err)
	}
	if !c.adopt(func() {
		c.transport = transport
		c.capture = newCapturePipeline(s.meter, transport.SendAudio, c.capturing, s.setLevel)
	}) {
		_ = transport.Close()
		return errConnectionAbandoned
	}

	return nil
}

// Pause suspends capture and playback clocks. The transport stays open.
func (s *Session) Pause() error {
	c, err := s.transition(StateConnected, StatePaused)
	if err != nil {
		return err
	}
	c.paused.Store(true)

	var errs error
	if suspender, ok := c.input.(audio.Suspender); ok {
		if err := suspender.Suspend(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to suspend audio input: %w", err))
		}
	}
	if err := c.output.Suspend(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to suspend audio output: %w", err))
	}
	if errs != nil {
		logger.Warn("pause incomplete", "error", errs)
	}
	return errs
}

func (s *Session) Resume() error {
	c, err := s.transition(StatePaused, StateConnected)
	if err != nil {
		return err
	}

	var errs error
	if err := c.output.Resume(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to resume audio output: %w", err))
	}
	if suspender, ok := c.input.(audio.Suspender); ok {
		if err := suspender.Resume(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to resume audio input: %w", err))
		}
	}
	c.paused.Store(false)
	if errs != nil {
		logger.Warn("resume incomplete", "error", errs)
	}
	return errs
}

func (s *Session) transition(from, to State) (*connection, error) {
	s.mu.Lock()
	c := s.conn
	if c == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	if s.state != from {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot move from %s to %s: %w", state, to, ErrInvalidState)
	}
	s.state = to
	s.mu.Unlock()

	s.notifyState(to)
	return c, nil
}

// Commit ends the user's turn and asks for a response. It is meant for
// sessions without server-side turn detection.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	c := s.conn
	state := s.state
	s.mu.Unlock()
	if c == nil || state != StateConnected {
		return ErrNotConnected
	}

	if err := c.transport.SendControl(ctx, realtime.ControlCommitInputBuffer); err != nil {
		return err
	}
	return c.transport.SendControl(ctx, realtime.ControlCreateResponse)
}

// Disconnect releases every connection resource. It is safe to call in any
// state and more than once.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	return s.teardown(context.Background(), c, StateDisconnected, "")
}

func (s *Session) failBeforeConnect(err error) {
	s.mu.Lock()
	s.state = StateError
	s.errMessage = err.Error()
	s.mu.Unlock()

	s.notifyState(StateError)
	s.notifyError(err.Error())
}

func (s *Session) setLevel(level float64) {
	s.level.Store(math.Float64bits(level))
	if s.callbacks.onAudioLevel != nil {
		s.callbacks.onAudioLevel(level)
	}
}

func (s *Session) notifyState(state State) {
	if s.callbacks.onStateChange != nil {
		s.callbacks.onStateChange(state)
	}
}

func (s *Session) notifyError(message string) {
	if s.callbacks.onError != nil {
		s.callbacks.onError(message)
	}
}

// reportError surfaces a message without changing state.
func (s *Session) reportError(message string) {
	s.mu.Lock()
	s.errMessage = message
	s.mu.Unlock()
	s.notifyError(message)
}
