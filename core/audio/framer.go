package audio

// Framer slices a continuous sample stream into fixed-size frames. It is not
// safe for concurrent use; device callbacks are serialized by the driver.
type Framer struct {
	info EncodingInfo
	size int
	buf  []float32
}

func NewFramer(info EncodingInfo, size int) *Framer {
	if size <= 0 {
		size = DefaultFrameSize
	}
	return &Framer{info: info, size: size, buf: make([]float32, 0, size)}
}

// Write buffers samples and calls emit for every full frame. Emitted frames
// own their samples.
func (f *Framer) Write(samples []float32, emit func(Frame)) {
	for len(samples) > 0 {
		n := min(f.size-len(f.buf), len(samples))
		f.buf = append(f.buf, samples[:n]...)
		samples = samples[n:]

		if len(f.buf) == f.size {
			emit(Frame{Samples: f.buf, SampleRate: f.info.SampleRate, Channels: f.info.Channels})
			f.buf = make([]float32, 0, f.size)
		}
	}
}

// Reset drops any partial frame.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
