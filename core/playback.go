package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
	"go.opentelemetry.io/otel/metric"
)

// playbackScheduler chains assistant audio back to back on the output clock.
type playbackScheduler struct {
	info audio.EncodingInfo

	mu        sync.Mutex
	output    audio.Output
	nextStart time.Duration
	handles   map[uint64]audio.Stopper
	nextID    uint64

	scheduledChunks metric.Int64Counter
}

func newPlaybackScheduler(output audio.Output, info audio.EncodingInfo) *playbackScheduler {
	scheduled, err := meter.Int64Counter("playback.chunks.scheduled")
	if err != nil {
		logger.Warn("failed to create scheduled chunks counter", "error", err)
	}

	return &playbackScheduler{
		info:            info,
		output:          output,
		handles:         map[uint64]audio.Stopper{},
		scheduledChunks: scheduled,
	}
}

// Schedule decodes a PCM16 chunk and queues it at
// max(virtual clock, output clock), then advances the virtual clock by the
// chunk duration. It returns the start offset used.
func (p *playbackScheduler) Schedule(pcm []byte) (time.Duration, error) {
	samples := audio.DecodePCM16(pcm)
	if len(samples) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output == nil {
		return 0, ErrNotConnected
	}

	start := max(p.nextStart, p.output.CurrentTime())
	id := p.nextID
	p.nextID++

	stopper, err := p.output.Play(samples, start, func() { p.release(id) })
	if err != nil {
		return 0, fmt.Errorf("failed to schedule playback: %w", err)
	}
	p.handles[id] = stopper
	p.nextStart = start + p.info.Duration(len(samples))

	if p.scheduledChunks != nil {
		p.scheduledChunks.Add(context.Background(), 1)
	}
	return start, nil
}

func (p *playbackScheduler) release(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handles, id)
}

// Interrupt stops every pending source before returning and rewinds the
// virtual clock to zero.
func (p *playbackScheduler) Interrupt() int {
	p.mu.Lock()
	handles := p.handles
	p.handles = map[uint64]audio.Stopper{}
	p.nextStart = 0
	p.mu.Unlock()

	for _, handle := range handles {
		handle.Stop()
	}
	return len(handles)
}

// Release stops all sources and detaches the output. Later chunks fail.
func (p *playbackScheduler) Release() {
	p.Interrupt()
	p.mu.Lock()
	p.output = nil
	p.mu.Unlock()
}

func (p *playbackScheduler) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

func (p *playbackScheduler) VirtualClock() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextStart
}
