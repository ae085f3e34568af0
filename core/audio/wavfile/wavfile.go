// Package wavfile provides file-backed audio devices. Input replays a WAV
// file in real time and output records the mixed assistant audio to a WAV
// file, so sessions can run without sound hardware.
package wavfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/youpy/go-wav"
)

const DefaultTickInterval = 20 * time.Millisecond

type Devices struct {
	inputPath    string
	outputPath   string
	frameSize    int
	tickInterval time.Duration
}

type Option func(*Devices)

// WithInputFile replays the given WAV file as microphone input. Without it
// the input produces silence.
func WithInputFile(path string) Option {
	return func(d *Devices) { d.inputPath = path }
}

// WithOutputFile records everything played to the given WAV file on Close.
func WithOutputFile(path string) Option {
	return func(d *Devices) { d.outputPath = path }
}

func WithFrameSize(samples int) Option {
	return func(d *Devices) {
		if samples > 0 {
			d.frameSize = samples
		}
	}
}

// WithTickInterval sets how much audio the output renders per step.
func WithTickInterval(interval time.Duration) Option {
	return func(d *Devices) {
		if interval > 0 {
			d.tickInterval = interval
		}
	}
}

func New(opts ...Option) *Devices {
	d := &Devices{frameSize: audio.DefaultFrameSize, tickInterval: DefaultTickInterval}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Devices) OpenInput(_ context.Context, info audio.EncodingInfo) (audio.Input, error) {
	var samples []float32
	if d.inputPath != "" {
		var err error
		if samples, err = loadWAV(d.inputPath, info.SampleRate); err != nil {
			return nil, fmt.Errorf("%w: %w", audio.ErrInputUnavailable, err)
		}
	}
	return newInput(info, samples, d.frameSize), nil
}

func (d *Devices) OpenOutput(_ context.Context, info audio.EncodingInfo) (audio.Output, error) {
	return newOutput(info, d.outputPath, d.tickInterval), nil
}

func loadWAV(path string, sampleRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wavReader := wav.NewReader(f)
	format, err := wavReader.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV format: %w", err)
	}
	if int(format.SampleRate) != sampleRate {
		return nil, fmt.Errorf("WAV sample rate is %d, expected %d", format.SampleRate, sampleRate)
	}
	numChannels := int(format.NumChannels)
	if numChannels < 1 || numChannels > 2 {
		return nil, fmt.Errorf("only mono or stereo WAV supported, got %d channels", numChannels)
	}

	var out []float32
	for {
		readSamples, err := wavReader.ReadSamples()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read WAV samples: %w", err)
		}
		for _, s := range readSamples {
			v := wavReader.FloatValue(s, 0)
			if numChannels == 2 {
				v = (v + wavReader.FloatValue(s, 1)) / 2
			}
			out = append(out, float32(v))
		}
	}
	return out, nil
}

func saveWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	wavSamples := make([]wav.Sample, len(samples))
	for i, v := range samples {
		wavSamples[i] = wav.Sample{Values: [2]int{int(audio.ToInt16(v)), 0}}
	}
	writer := wav.NewWriter(f, uint32(len(wavSamples)), 1, uint32(sampleRate), 16)
	if err := writer.WriteSamples(wavSamples); err != nil {
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}
	return nil
}
