package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

// Client opens capture and playback devices through miniaudio. One client
// owns the audio context; every OpenInput/OpenOutput call initializes a fresh
// device on it.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	frameSize    int

	mu     sync.Mutex
	closed bool
}

type ClientOption func(*Client)

// WithFrameSize sets the number of samples delivered per capture frame.
func WithFrameSize(samples int) ClientOption {
	return func(c *Client) {
		if samples > 0 {
			c.frameSize = samples
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := &Client{audioContext: audioCtx, frameSize: audio.DefaultFrameSize}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) OpenInput(_ context.Context, info audio.EncodingInfo) (audio.Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("%w: audio context closed", audio.ErrInputUnavailable)
	}

	capture := &captureDevice{framer: audio.NewFramer(info, c.frameSize)}
	if err := capture.init(c.audioContext, info); err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrInputUnavailable, err)
	}
	return capture, nil
}

func (c *Client) OpenOutput(_ context.Context, info audio.EncodingInfo) (audio.Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("audio context closed")
	}

	playback := &playbackDevice{mixer: audio.NewMixer(info)}
	if err := playback.init(c.audioContext, info); err != nil {
		return nil, err
	}
	if err := playback.start(); err != nil {
		_ = playback.Close()
		return nil, err
	}
	return playback, nil
}

// Close releases the audio context. Devices opened from it must be closed
// first.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.audioContext.Uninit()
	c.audioContext.Free()
	if err != nil {
		return fmt.Errorf("failed to uninitialize audio context: %w", err)
	}
	return nil
}
