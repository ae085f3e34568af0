package audio

import (
	"fmt"
	"time"
)

const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
	DefaultFormat     = "linear16"

	// DefaultFrameSize is the number of samples per capture frame.
	DefaultFrameSize = 4096
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Format:     encodingFormat(DefaultFormat),
	}
}

type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	return 0
}

// MIMEType describes raw PCM at the configured rate, e.g. "audio/pcm;rate=24000".
func (e EncodingInfo) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", e.SampleRate)
}

func (e EncodingInfo) channels() int {
	if e.Channels <= 0 {
		return 1
	}
	return e.Channels
}

// Duration returns how long n samples (per channel) play at this sample rate.
func (e EncodingInfo) Duration(samples int) time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(e.SampleRate)
}

// Samples converts a duration into a sample offset, rounding down.
func (e EncodingInfo) Samples(d time.Duration) int64 {
	if e.SampleRate <= 0 || d <= 0 {
		return 0
	}
	return int64(d) * int64(e.SampleRate) / int64(time.Second)
}

func (e EncodingInfo) BytesPerFrame() int {
	return e.Format.ByteSize() * e.channels()
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingLinear16:
		return 2
	case EncodingFloat32:
		return 4
	}
	return -1
}

const (
	EncodingLinear16 encodingFormat = "linear16"
	EncodingFloat32  encodingFormat = "float32"
)
