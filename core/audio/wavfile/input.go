package wavfile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
)

// input emits one frame per frame duration, replaying its samples once and
// then silence.
type input struct {
	info      audio.EncodingInfo
	samples   []float32
	frameSize int

	suspended atomic.Bool

	mu       sync.Mutex
	position int
	cancel   context.CancelFunc
	done     chan struct{}
}

func newInput(info audio.EncodingInfo, samples []float32, frameSize int) *input {
	return &input{info: info, samples: samples, frameSize: frameSize}
}

func (in *input) StartCapture(ctx context.Context, onFrame func(audio.Frame)) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	in.done = make(chan struct{})
	go in.run(ctx, onFrame, in.done)
	return nil
}

func (in *input) run(ctx context.Context, onFrame func(audio.Frame), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(in.info.Duration(in.frameSize))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if in.suspended.Load() {
				continue
			}
			onFrame(in.next())
		}
	}
}

func (in *input) next() audio.Frame {
	in.mu.Lock()
	defer in.mu.Unlock()

	frame := make([]float32, in.frameSize)
	if in.position < len(in.samples) {
		in.position += copy(frame, in.samples[in.position:])
	}
	return audio.Frame{Samples: frame, SampleRate: in.info.SampleRate, Channels: in.info.Channels}
}

func (in *input) StopCapture() error {
	in.mu.Lock()
	cancel, done := in.cancel, in.done
	in.cancel, in.done = nil, nil
	in.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (in *input) Suspend() error {
	in.suspended.Store(true)
	return nil
}

func (in *input) Resume() error {
	in.suspended.Store(false)
	return nil
}

func (in *input) Close() error {
	return in.StopCapture()
}
