package wavfile

import (
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
)

// output renders its mixer in real time and keeps what was rendered for the
// recording.
type output struct {
	info  audio.EncodingInfo
	mixer *audio.Mixer
	path  string

	mu       sync.Mutex
	recorded []float32
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

func newOutput(info audio.EncodingInfo, path string, tick time.Duration) *output {
	o := &output{
		info:  info,
		mixer: audio.NewMixer(info),
		path:  path,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go o.run(tick)
	return o
}

func (o *output) run(tick time.Duration) {
	defer close(o.done)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	buf := make([]float32, o.info.Samples(tick))

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			if o.mixer.Suspended() {
				continue
			}
			o.mixer.Render(buf)
			if o.path != "" {
				o.mu.Lock()
				o.recorded = append(o.recorded, buf...)
				o.mu.Unlock()
			}
		}
	}
}

func (o *output) Play(samples []float32, at time.Duration, onEnded func()) (audio.Stopper, error) {
	return o.mixer.Schedule(samples, at, onEnded), nil
}

func (o *output) CurrentTime() time.Duration {
	return o.mixer.CurrentTime()
}

func (o *output) Suspend() error {
	o.mixer.Suspend()
	return nil
}

func (o *output) Resume() error {
	o.mixer.Resume()
	return nil
}

// Close stops rendering and writes the recording, if one was requested.
func (o *output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	close(o.stop)
	<-o.done
	o.mixer.StopAll()

	if o.path == "" {
		return nil
	}
	o.mu.Lock()
	recorded := o.recorded
	o.mu.Unlock()
	if err := saveWAV(o.path, recorded, o.info.SampleRate); err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}
	return nil
}
