package orchestration

import (
	"context"

	"github.com/koscakluka/ema-live/core/audio"
	"go.opentelemetry.io/otel/metric"
)

// capturePipeline turns microphone frames into outbound PCM16 chunks. It
// runs on the device callback and never blocks on anything but the send.
type capturePipeline struct {
	meter   *audio.Meter
	send    func(pcm []byte) error
	active  func() bool
	onLevel func(level float64)

	droppedFrames metric.Int64Counter
}

func newCapturePipeline(m *audio.Meter, send func([]byte) error, active func() bool, onLevel func(float64)) *capturePipeline {
	dropped, err := meter.Int64Counter("capture.frames.dropped")
	if err != nil {
		logger.Warn("failed to create dropped frames counter", "error", err)
	}
	if onLevel == nil {
		onLevel = func(float64) {}
	}

	return &capturePipeline{
		meter:         m,
		send:          send,
		active:        active,
		onLevel:       onLevel,
		droppedFrames: dropped,
	}
}

func (p *capturePipeline) onFrame(frame audio.Frame) {
	if !p.active() {
		return
	}

	if level, ok := p.meter.Observe(frame.Samples); ok {
		p.onLevel(level)
	}

	if err := p.send(audio.EncodePCM16(frame.Samples)); err != nil {
		if p.droppedFrames != nil {
			p.droppedFrames.Add(context.Background(), 1)
		}
		logger.Debug("dropped capture frame", "error", err)
	}
}
