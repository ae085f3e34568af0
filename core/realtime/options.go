package realtime

import "github.com/koscakluka/ema-live/core/audio"

type TurnDetection string

const (
	// TurnDetectionServerVAD lets the provider detect turn boundaries and
	// barge-in from the audio stream.
	TurnDetectionServerVAD TurnDetection = "server_vad"
	// TurnDetectionNone leaves turn-taking to the caller through controls.
	TurnDetectionNone TurnDetection = "none"
)

const DefaultEventBufferSize = 64

type Options struct {
	Instructions  string
	Voice         string
	Model         string
	TurnDetection TurnDetection
	EncodingInfo  audio.EncodingInfo

	// EventBufferSize bounds the number of undelivered events. A full buffer
	// blocks the reader rather than dropping events.
	EventBufferSize int
}

type Option func(*Options)

func NewOptions(opts ...Option) Options {
	options := Options{
		TurnDetection:   TurnDetectionServerVAD,
		EncodingInfo:    audio.GetDefaultEncodingInfo(),
		EventBufferSize: DefaultEventBufferSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.EventBufferSize <= 0 {
		options.EventBufferSize = DefaultEventBufferSize
	}
	if options.EncodingInfo.IsZero() {
		options.EncodingInfo = audio.GetDefaultEncodingInfo()
	}
	return options
}

func WithInstructions(instructions string) Option {
	return func(o *Options) {
		o.Instructions = instructions
	}
}

func WithVoice(voice string) Option {
	return func(o *Options) {
		o.Voice = voice
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithTurnDetection(turnDetection TurnDetection) Option {
	return func(o *Options) {
		o.TurnDetection = turnDetection
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) Option {
	return func(o *Options) {
		o.EncodingInfo = encodingInfo
	}
}

func WithEventBufferSize(size int) Option {
	return func(o *Options) {
		o.EventBufferSize = size
	}
}
