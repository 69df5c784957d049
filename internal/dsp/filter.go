package dsp

import (
	"fmt"
	"math"
)

// Biquad is a second-order IIR section in normalised form (a0 = 1)
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// HighPassBiquad designs an RBJ high-pass section
func HighPassBiquad(cutoff float64, sampleRate int, q float64) Biquad {
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha

	return Biquad{
		B0: (1 + cosW) / 2 / a0,
		B1: -(1 + cosW) / a0,
		B2: (1 + cosW) / 2 / a0,
		A1: -2 * cosW / a0,
		A2: (1 - alpha) / a0,
	}
}

// ButterworthHighPass returns the cascade of biquads implementing an
// even-order Butterworth high-pass filter.
func ButterworthHighPass(order int, cutoff float64, sampleRate int) ([]Biquad, error) {
	if order <= 0 || order%2 != 0 {
		return nil, fmt.Errorf("butterworth order must be positive and even, got %d", order)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if cutoff <= 0 || cutoff >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff %.1f Hz outside (0, %d)", cutoff, sampleRate/2)
	}

	sections := make([]Biquad, 0, order/2)
	for k := 0; k < order/2; k++ {
		theta := float64(2*k+1) * math.Pi / float64(2*order)
		q := 1 / (2 * math.Sin(theta))
		sections = append(sections, HighPassBiquad(cutoff, sampleRate, q))
	}
	return sections, nil
}

// FilterInterleaved runs the cascade over each channel of an interleaved
// buffer independently and returns a new slice.
func FilterInterleaved(sections []Biquad, samples []float64, channels int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	out := make([]float64, len(samples))
	copy(out, samples)

	for c := 0; c < channels; c++ {
		for _, s := range sections {
			// transposed direct form II state
			var z1, z2 float64
			for i := c; i < len(out); i += channels {
				x := out[i]
				y := s.B0*x + z1
				z1 = s.B1*x - s.A1*y + z2
				z2 = s.B2*x - s.A2*y
				out[i] = y
			}
		}
	}
	return out
}

// HighPassOrder is the Butterworth order used for rumble removal
const HighPassOrder = 10

// HighPass applies a 10th-order Butterworth high-pass to the buffer
func HighPass(buf Buffer, cutoff float64) (Buffer, error) {
	sections, err := ButterworthHighPass(HighPassOrder, cutoff, buf.SampleRate)
	if err != nil {
		return Buffer{}, err
	}
	return buf.WithSamples(FilterInterleaved(sections, buf.Samples, buf.Channels)), nil
}
