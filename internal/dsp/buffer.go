package dsp

// Buffer holds interleaved PCM samples in the range [-1, 1]
type Buffer struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (one sample per channel)
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return len(b.Samples)
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Mono returns the channel average of the buffer
func (b Buffer) Mono() []float64 {
	return Downmix(b.Samples, b.Channels)
}

// WithSamples returns a buffer with the same format and new samples
func (b Buffer) WithSamples(samples []float64) Buffer {
	return Buffer{Samples: samples, SampleRate: b.SampleRate, Channels: b.Channels}
}

// FitLength truncates or zero-pads samples to exactly n entries.
// The input is never modified.
func FitLength(samples []float64, n int) []float64 {
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	copy(out, samples)
	return out
}

// FitMask truncates or pads mask with false to exactly n entries
func FitMask(mask []bool, n int) []bool {
	if n < 0 {
		n = 0
	}
	out := make([]bool, n)
	copy(out, mask)
	return out
}
