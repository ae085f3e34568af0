package miniaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

// playbackDevice renders a mixer into the device callback. The mixer clock
// is the output clock: it only advances while the device pulls samples.
type playbackDevice struct {
	mixer *audio.Mixer

	mu     sync.Mutex
	device *malgo.Device

	// scratch is only touched from the data callback
	scratch []float32
}

func (c *playbackDevice) init(audioContext *malgo.AllocatedContext, info audio.EncodingInfo) error {
	channels := 1
	format := malgo.FormatF32
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(info.SampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(info.SampleRate / 50) // ~20ms of audio
	config.Periods = 4

	var err error
	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (c *playbackDevice) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount)
		if len(pOutput) < need*bytesPerFrame {
			return
		}
		if cap(c.scratch) < need {
			c.scratch = make([]float32, need)
		}
		out := c.scratch[:need]
		c.mixer.Render(out)
		audio.PutFloat32(pOutput, out)
	}
}

func (c *playbackDevice) start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

// Play only touches the mixer; it must not wait on mu, which Close holds
// while the data callback drains.
func (c *playbackDevice) Play(samples []float32, at time.Duration, onEnded func()) (audio.Stopper, error) {
	return c.mixer.Schedule(samples, at, onEnded), nil
}

func (c *playbackDevice) CurrentTime() time.Duration {
	return c.mixer.CurrentTime()
}

func (c *playbackDevice) Suspend() error {
	c.mixer.Suspend()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to suspend playback device: %w", err)
	}
	return nil
}

func (c *playbackDevice) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil && !c.device.IsStarted() {
		if err := c.device.Start(); err != nil {
			return fmt.Errorf("failed to resume playback device: %w", err)
		}
	}
	c.mixer.Resume()
	return nil
}

func (c *playbackDevice) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}
	c.device.Uninit()
	c.device = nil
	c.mixer.StopAll()
	return nil
}
