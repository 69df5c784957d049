package dsp

// Energy gate framing
const (
	GateFrameSeconds = 0.025
	GateHopSeconds   = 0.010
	GateThreshold    = 0.1
)

// KeepMask computes the per-frame keep flags of the energy gate for a
// mono signal. Windows start every hop and may run short at the end.
// A window is kept when its energy exceeds 10% of the mean window energy.
// The result always has exactly len(mono) entries.
func KeepMask(mono []float64, sampleRate int) []bool {
	frameLen := int(float64(sampleRate) * GateFrameSeconds)
	hop := int(float64(sampleRate) * GateHopSeconds)
	if frameLen < 1 {
		frameLen = 1
	}
	if hop < 1 {
		hop = 1
	}
	if len(mono) == 0 {
		return []bool{}
	}

	energies := make([]float64, 0, len(mono)/hop+1)
	var total float64
	for i := 0; i < len(mono); i += hop {
		end := i + frameLen
		if end > len(mono) {
			end = len(mono)
		}
		var e float64
		for _, s := range mono[i:end] {
			e += s * s
		}
		energies = append(energies, e)
		total += e
	}
	threshold := total / float64(len(energies)) * GateThreshold

	mask := make([]bool, 0, len(energies)*hop)
	for _, e := range energies {
		keep := e > threshold
		for j := 0; j < hop; j++ {
			mask = append(mask, keep)
		}
	}
	return FitMask(mask, len(mono))
}

// ApplyMask keeps the frames of buf flagged in mask. All channels of a
// frame are kept or dropped together. The mask is reconciled to the
// frame count first.
func ApplyMask(buf Buffer, mask []bool) Buffer {
	channels := buf.Channels
	if channels <= 0 {
		channels = 1
	}
	frames := buf.Frames()
	mask = FitMask(mask, frames)

	out := make([]float64, 0, len(buf.Samples))
	for i := 0; i < frames; i++ {
		if mask[i] {
			out = append(out, buf.Samples[i*channels:(i+1)*channels]...)
		}
	}
	return buf.WithSamples(out)
}

// Span is a kept time range in seconds
type Span struct {
	Start float64
	End   float64
}

// MaskSpans converts a keep mask into contiguous kept time ranges
func MaskSpans(mask []bool, sampleRate int) []Span {
	var spans []Span
	start := -1
	for i, keep := range mask {
		switch {
		case keep && start < 0:
			start = i
		case !keep && start >= 0:
			spans = append(spans, Span{
				Start: float64(start) / float64(sampleRate),
				End:   float64(i) / float64(sampleRate),
			})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{
			Start: float64(start) / float64(sampleRate),
			End:   float64(len(mask)) / float64(sampleRate),
		})
	}
	return spans
}
