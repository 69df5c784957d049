package dsp

// Peak targets used by the gain transforms
const (
	NormalizePeak = 0.9
	ReducedPeak   = 0.5
	EnhancedPeak  = 0.95
)

// Scale multiplies every sample by factor into a new slice
func Scale(samples []float64, factor float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s * factor
	}
	return out
}

// NormalizePeakTo scales samples so the peak equals target. It reports
// false and returns nil when the signal has no energy.
func NormalizePeakTo(samples []float64, target float64) ([]float64, bool) {
	peak := Peak(samples)
	if peak == 0 {
		return nil, false
	}
	return Scale(samples, target/peak), true
}
