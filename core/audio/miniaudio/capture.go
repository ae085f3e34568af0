package miniaudio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

type captureDevice struct {
	device *malgo.Device
	framer *audio.Framer

	// onFrame is read on the data callback, which Stop waits for, so it
	// must not share mu.
	onFrame atomic.Pointer[func(audio.Frame)]

	mu sync.Mutex
}

func (c *captureDevice) init(audioContext *malgo.AllocatedContext, info audio.EncodingInfo) error {
	channels := 1
	format := malgo.FormatF32
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(info.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	var err error
	c.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			if onFrame := c.onFrame.Load(); onFrame != nil {
				c.framer.Write(audio.Float32FromBytes(pInput[:n]), *onFrame)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return nil
}

func (c *captureDevice) StartCapture(_ context.Context, onFrame func(audio.Frame)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.onFrame.Store(&onFrame)
	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		c.onFrame.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureDevice) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame.Store(nil)
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	c.framer.Reset()
	return nil
}

// Suspend stops the device but keeps the frame callback, so Resume picks up
// where capture left off.
func (c *captureDevice) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to suspend capture device: %w", err)
	}
	return nil
}

func (c *captureDevice) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil || c.onFrame.Load() == nil || c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to resume capture device: %w", err)
	}
	return nil
}

func (c *captureDevice) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onFrame.Store(nil)
	return nil
}
