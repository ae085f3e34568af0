package audio

import (
	"math"
	"sync"
	"time"
)

const (
	DefaultMeterInterval = 100 * time.Millisecond
	DefaultMeterStride   = 4
)

// Meter computes a throttled input level for visualization. It is advisory:
// a skipped or stale reading never affects the audio path.
type Meter struct {
	interval time.Duration
	stride   int
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

type MeterOption func(*Meter)

func WithMeterInterval(interval time.Duration) MeterOption {
	return func(m *Meter) { m.interval = interval }
}

// WithMeterStride sets the decimation stride; every stride-th sample is used.
func WithMeterStride(stride int) MeterOption {
	return func(m *Meter) {
		if stride > 0 {
			m.stride = stride
		}
	}
}

func WithMeterClock(now func() time.Time) MeterOption {
	return func(m *Meter) { m.now = now }
}

func NewMeter(opts ...MeterOption) *Meter {
	m := &Meter{
		interval: DefaultMeterInterval,
		stride:   DefaultMeterStride,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe returns the level of samples when at least one interval has passed
// since the previous reading, and false otherwise.
func (m *Meter) Observe(samples []float32) (float64, bool) {
	now := m.now()

	m.mu.Lock()
	if !m.last.IsZero() && now.Sub(m.last) <= m.interval {
		m.mu.Unlock()
		return 0, false
	}
	m.last = now
	m.mu.Unlock()

	return Level(samples, m.stride), true
}

func (m *Meter) Reset() {
	m.mu.Lock()
	m.last = time.Time{}
	m.mu.Unlock()
}

// Level is the RMS of every stride-th sample, clamped to [0, 1].
func Level(samples []float32, stride int) float64 {
	if stride <= 0 {
		stride = 1
	}

	var sum float64
	var n int
	for i := 0; i < len(samples); i += stride {
		s := float64(samples[i])
		if math.IsNaN(s) {
			s = 0
		}
		sum += s * s
		n++
	}
	if n == 0 {
		return 0
	}

	return min(math.Sqrt(sum/float64(n)), 1)
}
