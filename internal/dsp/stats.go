package dsp

import (
	"math"
)

// loudnessFloor keeps log10 finite on digital silence
const loudnessFloor = 1e-9

// RMS returns the root mean square of samples, 0 for an empty slice
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// LoudnessDB returns 20*log10(rms + 1e-9). Silence yields about -180 dB.
func LoudnessDB(samples []float64) float64 {
	return 20 * math.Log10(RMS(samples)+loudnessFloor)
}

// Peak returns the maximum absolute amplitude
func Peak(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Downmix averages interleaved channels into a mono signal
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += interleaved[base+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Correlation returns the Pearson correlation of two equally sized vectors.
// Constant vectors have no variance and are reported as fully correlated.
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 1
	}

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var num, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		varA += da * da
		varB += db * db
	}

	denom := math.Sqrt(varA * varB)
	if denom == 0 {
		return 1
	}
	return num / denom
}

// DefaultSilenceThreshold is the amplitude under which a sample counts as silent
const DefaultSilenceThreshold = 0.01

// SilenceRatio returns the fraction of mono samples whose magnitude is below threshold
func SilenceRatio(mono []float64, threshold float64) float64 {
	if len(mono) == 0 {
		return 0
	}
	silent := 0
	for _, s := range mono {
		if math.Abs(s) < threshold {
			silent++
		}
	}
	return float64(silent) / float64(len(mono))
}
