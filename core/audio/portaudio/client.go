package portaudio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-live/core/audio"
)

// Client opens callback streams on the default PortAudio devices.
type Client struct {
	framesPerBuffer int

	mu     sync.Mutex
	closed bool
}

func NewClient(framesPerBuffer int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = 480
	}
	return &Client{framesPerBuffer: framesPerBuffer}, nil
}

func (c *Client) OpenInput(_ context.Context, info audio.EncodingInfo) (audio.Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("%w: PortAudio terminated", audio.ErrInputUnavailable)
	}

	in := &inputStream{framer: audio.NewFramer(info, audio.DefaultFrameSize)}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(info.SampleRate), c.framesPerBuffer, in.process)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrInputUnavailable, err)
	}
	in.stream = stream
	return in, nil
}

func (c *Client) OpenOutput(_ context.Context, info audio.EncodingInfo) (audio.Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("PortAudio terminated")
	}

	out := &outputStream{mixer: audio.NewMixer(info)}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(info.SampleRate), c.framesPerBuffer, out.mixer.Render)
	if err != nil {
		return nil, fmt.Errorf("failed to open PortAudio output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start PortAudio output stream: %w", err)
	}
	out.stream = stream
	out.running = true
	return out, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return portaudio.Terminate()
}

type inputStream struct {
	stream *portaudio.Stream
	framer *audio.Framer

	// onFrame is read on the stream callback, which Stop waits for, so it
	// must not share mu.
	onFrame atomic.Pointer[func(audio.Frame)]

	mu      sync.Mutex
	running bool
}

func (s *inputStream) process(in []float32) {
	if onFrame := s.onFrame.Load(); onFrame != nil {
		s.framer.Write(in, *onFrame)
	}
}

func (s *inputStream) StartCapture(_ context.Context, onFrame func(audio.Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame.Store(&onFrame)
	if s.running {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		s.onFrame.Store(nil)
		return fmt.Errorf("failed to start PortAudio input stream: %w", err)
	}
	s.running = true
	return nil
}

func (s *inputStream) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame.Store(nil)
	if !s.running {
		return nil
	}
	s.running = false
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop PortAudio input stream: %w", err)
	}
	s.framer.Reset()
	return nil
}

func (s *inputStream) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.stream.Stop()
}

func (s *inputStream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.onFrame.Load() == nil {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.running = true
	return nil
}

func (s *inputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame.Store(nil)
	return s.stream.Close()
}

type outputStream struct {
	stream *portaudio.Stream
	mixer  *audio.Mixer

	mu      sync.Mutex
	running bool
}

func (s *outputStream) Play(samples []float32, at time.Duration, onEnded func()) (audio.Stopper, error) {
	return s.mixer.Schedule(samples, at, onEnded), nil
}

func (s *outputStream) CurrentTime() time.Duration {
	return s.mixer.CurrentTime()
}

func (s *outputStream) Suspend() error {
	s.mixer.Suspend()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.stream.Stop()
}

func (s *outputStream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		if err := s.stream.Start(); err != nil {
			return err
		}
		s.running = true
	}
	s.mixer.Resume()
	return nil
}

func (s *outputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mixer.StopAll()
	if s.running {
		s.running = false
		_ = s.stream.Stop()
	}
	return s.stream.Close()
}
