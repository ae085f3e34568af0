package orchestration

import (
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/realtime"
)

type SessionOption func(*Session)

func WithProvider(provider realtime.Provider) SessionOption {
	return func(s *Session) {
		if isNil(provider) {
			provider = nil
		}
		s.provider = provider
	}
}

func WithAudioDevices(devices audio.Devices) SessionOption {
	return func(s *Session) {
		if isNil(devices) {
			devices = nil
		}
		s.devices = devices
	}
}

// WithInstructions sets the base agent instructions sent on every connect.
func WithInstructions(instructions string) SessionOption {
	return func(s *Session) {
		s.baseInstructions = instructions
	}
}

func WithUploadedContext(text string) SessionOption {
	return func(s *Session) {
		s.uploadedContext = text
	}
}

// WithPriorTranscript seeds the transcript with an earlier conversation so
// the next connect resumes it.
func WithPriorTranscript(transcript string) SessionOption {
	return func(s *Session) {
		s.transcript.Reset(transcript)
	}
}

// WithResumedConversation restores a stored conversation, keeping both its
// transcript text and its segments.
func WithResumedConversation(transcript string, segments []Segment) SessionOption {
	return func(s *Session) {
		s.transcript.Restore(transcript, segments)
	}
}

func WithTurnDetection(turnDetection realtime.TurnDetection) SessionOption {
	return func(s *Session) {
		s.turnDetection = turnDetection
	}
}

func WithEncodingInfo(info audio.EncodingInfo) SessionOption {
	return func(s *Session) {
		if !info.IsZero() {
			s.encodingInfo = info
		}
	}
}

func WithMeter(m *audio.Meter) SessionOption {
	return func(s *Session) {
		if m != nil {
			s.meter = m
		}
	}
}

// WithProviderOptions appends options passed to every provider Open.
func WithProviderOptions(opts ...realtime.Option) SessionOption {
	return func(s *Session) {
		s.providerOptions = append(s.providerOptions, opts...)
	}
}

func WithOnStateChange(callback func(state State)) SessionOption {
	return func(s *Session) {
		s.callbacks.onStateChange = callback
	}
}

// WithOnAudioLevel receives throttled microphone levels in [0, 1].
func WithOnAudioLevel(callback func(level float64)) SessionOption {
	return func(s *Session) {
		s.callbacks.onAudioLevel = callback
	}
}

func WithOnTranscriptSegment(callback func(segment Segment)) SessionOption {
	return func(s *Session) {
		s.callbacks.onTranscriptSegment = callback
	}
}

// WithOnError receives the user-visible error message. An empty message
// means the previous error was cleared.
func WithOnError(callback func(message string)) SessionOption {
	return func(s *Session) {
		s.callbacks.onError = callback
	}
}
