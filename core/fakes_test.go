package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/realtime"
)

type testTransport struct {
	mu     sync.Mutex
	ch     chan events.Event
	closed bool
	sent   [][]byte

	controls      []realtime.Control
	closeCalls    atomic.Int32
	interruptions atomic.Int32
	closeErr      error
}

func newTestTransport() *testTransport {
	return &testTransport{ch: make(chan events.Event, 32)}
}

func (t *testTransport) emit(event events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.ch <- event
	}
}

func (t *testTransport) SendAudio(pcm []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return realtime.ErrTransportClosed
	}
	t.sent = append(t.sent, pcm)
	return nil
}

func (t *testTransport) SendControl(_ context.Context, control realtime.Control) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.controls = append(t.controls, control)
	return nil
}

func (t *testTransport) HandleInterruption(context.Context) error {
	t.interruptions.Add(1)
	return nil
}

func (t *testTransport) Events() <-chan events.Event { return t.ch }

func (t *testTransport) Close() error {
	t.closeCalls.Add(1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
	return t.closeErr
}

func (t *testTransport) sentChunks() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.sent...)
}

type testProvider struct {
	transport   *testTransport
	validateErr error
	openErr     error
	openCalls   atomic.Int32

	mu      sync.Mutex
	options realtime.Options
}

func (p *testProvider) Name() string    { return "test" }
func (p *testProvider) Validate() error { return p.validateErr }

func (p *testProvider) Open(_ context.Context, opts ...realtime.Option) (realtime.Transport, error) {
	p.openCalls.Add(1)
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.mu.Lock()
	p.options = realtime.NewOptions(opts...)
	p.mu.Unlock()
	return p.transport, nil
}

func (p *testProvider) instructions() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.options.Instructions
}

type testInput struct {
	mu      sync.Mutex
	onFrame func(audio.Frame)

	startCalls   atomic.Int32
	stopCalls    atomic.Int32
	closeCalls   atomic.Int32
	suspendCalls atomic.Int32
	resumeCalls  atomic.Int32
}

func (i *testInput) StartCapture(_ context.Context, onFrame func(audio.Frame)) error {
	i.startCalls.Add(1)
	i.mu.Lock()
	i.onFrame = onFrame
	i.mu.Unlock()
	return nil
}

func (i *testInput) StopCapture() error { i.stopCalls.Add(1); return nil }
func (i *testInput) Close() error       { i.closeCalls.Add(1); return nil }
func (i *testInput) Suspend() error     { i.suspendCalls.Add(1); return nil }
func (i *testInput) Resume() error      { i.resumeCalls.Add(1); return nil }

func (i *testInput) deliver(samples []float32) {
	i.mu.Lock()
	onFrame := i.onFrame
	i.mu.Unlock()
	if onFrame != nil {
		onFrame(audio.Frame{Samples: samples, SampleRate: audio.DefaultSampleRate, Channels: 1})
	}
}

type testStopper struct {
	stopCalls atomic.Int32
}

func (s *testStopper) Stop() { s.stopCalls.Add(1) }

type testPlay struct {
	start   time.Duration
	samples int
	stopper *testStopper
	onEnded func()
}

type testOutput struct {
	mu    sync.Mutex
	now   time.Duration
	plays []testPlay

	closeCalls   atomic.Int32
	suspendCalls atomic.Int32
	resumeCalls  atomic.Int32
}

func (o *testOutput) Play(samples []float32, at time.Duration, onEnded func()) (audio.Stopper, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	stopper := &testStopper{}
	o.plays = append(o.plays, testPlay{start: at, samples: len(samples), stopper: stopper, onEnded: onEnded})
	return stopper, nil
}

func (o *testOutput) CurrentTime() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *testOutput) setNow(now time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
}

func (o *testOutput) played() []testPlay {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]testPlay(nil), o.plays...)
}

func (o *testOutput) Suspend() error { o.suspendCalls.Add(1); return nil }
func (o *testOutput) Resume() error  { o.resumeCalls.Add(1); return nil }
func (o *testOutput) Close() error   { o.closeCalls.Add(1); return nil }

type testDevices struct {
	input    *testInput
	output   *testOutput
	inputErr error
}

func (d *testDevices) OpenInput(context.Context, audio.EncodingInfo) (audio.Input, error) {
	if d.inputErr != nil {
		return nil, d.inputErr
	}
	return d.input, nil
}

func (d *testDevices) OpenOutput(context.Context, audio.EncodingInfo) (audio.Output, error) {
	return d.output, nil
}

var errTestPermission = errors.New("permission denied")

type testHarness struct {
	session   *Session
	provider  *testProvider
	transport *testTransport
	devices   *testDevices

	mu       sync.Mutex
	states   []State
	segments []Segment
	errors   []string
	levels   []float64
}

func newTestHarness(t *testing.T, opts ...SessionOption) *testHarness {
	t.Helper()
	h := &testHarness{
		transport: newTestTransport(),
		devices:   &testDevices{input: &testInput{}, output: &testOutput{}},
	}
	h.provider = &testProvider{transport: h.transport}

	base := []SessionOption{
		WithProvider(h.provider),
		WithAudioDevices(h.devices),
		WithInstructions("You are a business analyst."),
		WithOnStateChange(func(state State) {
			h.mu.Lock()
			h.states = append(h.states, state)
			h.mu.Unlock()
		}),
		WithOnTranscriptSegment(func(segment Segment) {
			h.mu.Lock()
			h.segments = append(h.segments, segment)
			h.mu.Unlock()
		}),
		WithOnError(func(message string) {
			h.mu.Lock()
			h.errors = append(h.errors, message)
			h.mu.Unlock()
		}),
		WithOnAudioLevel(func(level float64) {
			h.mu.Lock()
			h.levels = append(h.levels, level)
			h.mu.Unlock()
		}),
	}
	h.session = NewSession(append(base, opts...)...)
	t.Cleanup(func() { _ = h.session.Disconnect() })
	return h
}

func (h *testHarness) connect(t *testing.T) {
	t.Helper()
	if err := h.session.Connect(context.Background()); err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}
	h.transport.emit(events.NewOpened())
	waitFor(t, "session connected", func() bool { return h.session.State() == StateConnected })
}

func (h *testHarness) segmentsSeen() []Segment {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Segment(nil), h.segments...)
}

func (h *testHarness) errorsSeen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.errors...)
}

func (h *testHarness) levelsSeen() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.levels...)
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %s before deadline", what)
}

// gatedProvider opens a fresh transport per call and holds every Open until
// release is closed.
type gatedProvider struct {
	release chan struct{}

	mu         sync.Mutex
	transports []*testTransport
	openCalls  atomic.Int32
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
}

func (p *gatedProvider) Name() string    { return "gated" }
func (p *gatedProvider) Validate() error { return nil }

func (p *gatedProvider) Open(ctx context.Context, _ ...realtime.Option) (realtime.Transport, error) {
	p.openCalls.Add(1)
	flight := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		current := p.maxFlight.Load()
		if flight <= current || p.maxFlight.CompareAndSwap(current, flight) {
			break
		}
	}

	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	transport := newTestTransport()
	p.mu.Lock()
	p.transports = append(p.transports, transport)
	p.mu.Unlock()
	return transport, nil
}

func (p *gatedProvider) opened() []*testTransport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*testTransport(nil), p.transports...)
}
