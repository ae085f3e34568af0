package audio

import (
	"sync/atomic"
	"testing"
	"time"
)

func testInfo() EncodingInfo {
	return EncodingInfo{SampleRate: 1000, Channels: 1, Format: EncodingLinear16}
}

func TestMixerRendersAtScheduledOffset(t *testing.T) {
	m := NewMixer(testInfo())
	m.Schedule([]float32{0.5, 0.5}, 3*time.Millisecond, nil)

	out := make([]float32, 6)
	m.Render(out)

	want := []float32{0, 0, 0, 0.5, 0.5, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("expected sample %d to be %f, got %f", i, want[i], out[i])
		}
	}
	if got := m.CurrentTime(); got != 6*time.Millisecond {
		t.Fatalf("expected clock at 6ms, got %v", got)
	}
}

func TestMixerChainsBackToBackWithoutGap(t *testing.T) {
	m := NewMixer(testInfo())
	var ended atomic.Int32
	m.Schedule([]float32{0.1, 0.1, 0.1}, 0, func() { ended.Add(1) })
	m.Schedule([]float32{0.2, 0.2}, 3*time.Millisecond, func() { ended.Add(1) })

	out := make([]float32, 5)
	m.Render(out)

	want := []float32{0.1, 0.1, 0.1, 0.2, 0.2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("expected sample %d to be %f, got %f", i, want[i], out[i])
		}
	}
	if ended.Load() != 2 {
		t.Fatalf("expected 2 ended callbacks, got %d", ended.Load())
	}
	if m.Active() != 0 {
		t.Fatalf("expected no active sources, got %d", m.Active())
	}
}

func TestMixerStopSkipsCallback(t *testing.T) {
	m := NewMixer(testInfo())
	var ended atomic.Int32
	source := m.Schedule([]float32{0.5, 0.5}, 0, func() { ended.Add(1) })
	source.Stop()
	source.Stop()

	out := make([]float32, 4)
	m.Render(out)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("expected silence at %d after stop, got %f", i, s)
		}
	}
	if ended.Load() != 0 {
		t.Fatalf("expected no ended callback for stopped source, got %d", ended.Load())
	}
}

func TestMixerSuspendFreezesClock(t *testing.T) {
	m := NewMixer(testInfo())
	m.Schedule([]float32{0.5}, 0, nil)
	m.Suspend()

	out := make([]float32, 10)
	m.Render(out)
	if got := m.CurrentTime(); got != 0 {
		t.Fatalf("expected frozen clock while suspended, got %v", got)
	}
	if m.Active() != 1 {
		t.Fatalf("expected source to remain scheduled while suspended")
	}

	m.Resume()
	m.Render(out)
	if out[0] != 0.5 {
		t.Fatalf("expected scheduled sample after resume, got %f", out[0])
	}
}

func TestMixerClampsMixedOutput(t *testing.T) {
	m := NewMixer(testInfo())
	m.Schedule([]float32{0.8}, 0, nil)
	m.Schedule([]float32{0.8}, 0, nil)

	out := make([]float32, 1)
	m.Render(out)
	if out[0] != 1 {
		t.Fatalf("expected clamped sum 1, got %f", out[0])
	}
}
