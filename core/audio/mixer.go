package audio

import (
	"sync"
	"time"
)

// Stopper halts a scheduled source. Stop is idempotent.
type Stopper interface {
	Stop()
}

// Mixer renders scheduled buffers at sample-accurate offsets on a single
// output clock. The clock only advances while rendering, so a suspended
// mixer has a frozen clock.
type Mixer struct {
	info EncodingInfo

	mu        sync.Mutex
	rendered  int64
	voices    []*voice
	suspended bool
}

type voice struct {
	mixer   *Mixer
	samples []float32
	start   int64
	onEnded func()
	stopped bool
}

func NewMixer(info EncodingInfo) *Mixer {
	if info.IsZero() {
		info = GetDefaultEncodingInfo()
	}
	return &Mixer{info: info}
}

func (m *Mixer) EncodingInfo() EncodingInfo {
	return m.info
}

// CurrentTime is the amount of audio rendered so far.
func (m *Mixer) CurrentTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.Duration(int(m.rendered))
}

// Schedule queues samples to start at the given clock offset. Offsets in the
// past start immediately. onEnded runs once the last sample was rendered,
// never after Stop.
func (m *Mixer) Schedule(samples []float32, at time.Duration, onEnded func()) Stopper {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := &voice{
		mixer:   m,
		samples: samples,
		start:   max(m.info.Samples(at), m.rendered),
		onEnded: onEnded,
	}
	m.voices = append(m.voices, v)
	return v
}

func (v *voice) Stop() {
	v.mixer.remove(v)
}

func (m *Mixer) remove(v *voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.stopped {
		return
	}
	v.stopped = true
	for i, candidate := range m.voices {
		if candidate == v {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			break
		}
	}
}

// Active returns the number of sources not yet finished or stopped.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Render fills out with the next len(out) mono samples and advances the
// clock. While suspended it writes silence and the clock stays put.
func (m *Mixer) Render(out []float32) {
	clear(out)

	m.mu.Lock()
	if m.suspended {
		m.mu.Unlock()
		return
	}

	from := m.rendered
	to := from + int64(len(out))
	var ended []func()
	remaining := m.voices[:0]
	for _, v := range m.voices {
		end := v.start + int64(len(v.samples))
		if v.start < to && end > from {
			lo := max(v.start, from)
			hi := min(end, to)
			for i := lo; i < hi; i++ {
				out[i-from] += v.samples[i-v.start]
			}
		}
		if end <= to {
			v.stopped = true
			if v.onEnded != nil {
				ended = append(ended, v.onEnded)
			}
			continue
		}
		remaining = append(remaining, v)
	}
	clear(m.voices[len(remaining):])
	m.voices = remaining
	m.rendered = to
	m.mu.Unlock()

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	for _, onEnded := range ended {
		onEnded()
	}
}

func (m *Mixer) Suspend() {
	m.mu.Lock()
	m.suspended = true
	m.mu.Unlock()
}

func (m *Mixer) Resume() {
	m.mu.Lock()
	m.suspended = false
	m.mu.Unlock()
}

func (m *Mixer) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// StopAll drops every scheduled source without running callbacks.
func (m *Mixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voices {
		v.stopped = true
	}
	m.voices = nil
}
