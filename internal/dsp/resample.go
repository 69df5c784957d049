package dsp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
)

// Resample strategy names
const (
	StrategyFFT      = "fft"
	StrategyExternal = "external"
	StrategyLinear   = "linear"
)

// FFT capability limits. Lengths with large prime factors degrade the
// mixed-radix transform towards quadratic time.
const (
	MaxFFTLength      = 1 << 23
	MaxFFTPrimeFactor = 127
)

// ErrUnsupported is returned by a strategy that cannot handle the input
var ErrUnsupported = errors.New("resample strategy does not support input")

// Strategy is one way of converting a mono signal between sample rates
type Strategy interface {
	Name() string
	Supports(n, fromRate, toRate int) bool
	Resample(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, error)
}

// PCMConverter converts mono float PCM between sample rates out of process
type PCMConverter interface {
	ConvertRate(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, error)
}

// TargetLength returns round(n * toRate / fromRate)
func TargetLength(n, fromRate, toRate int) int {
	if fromRate <= 0 {
		return n
	}
	return int(math.Round(float64(n) * float64(toRate) / float64(fromRate)))
}

// Resampler tries its strategies in order and falls back to linear
// interpolation, so Resample always returns a buffer.
type Resampler struct {
	strategies []Strategy
	fallback   LinearStrategy
	logger     zerolog.Logger
}

// NewResampler creates the default FFT, external, linear chain. The
// external strategy is skipped when converter is nil.
func NewResampler(converter PCMConverter, logger zerolog.Logger) *Resampler {
	strategies := []Strategy{FFTStrategy{}}
	if converter != nil {
		strategies = append(strategies, ExternalStrategy{Converter: converter})
	}
	strategies = append(strategies, LinearStrategy{})
	return NewResamplerWithStrategies(logger, strategies...)
}

// NewResamplerWithStrategies creates a resampler with an explicit chain
func NewResamplerWithStrategies(logger zerolog.Logger, strategies ...Strategy) *Resampler {
	return &Resampler{
		strategies: strategies,
		logger:     logger.With().Str("component", "resampler").Logger(),
	}
}

// Resample converts a mono signal from fromRate to toRate. Equal rates
// return samples unchanged.
func (r *Resampler) Resample(ctx context.Context, samples []float64, fromRate, toRate int) []float64 {
	out, _ := r.ResampleWithStrategy(ctx, samples, fromRate, toRate)
	return out
}

// ResampleWithStrategy is Resample that also reports which strategy produced the output
func (r *Resampler) ResampleWithStrategy(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, string) {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return samples, ""
	}

	want := TargetLength(len(samples), fromRate, toRate)
	for _, s := range r.strategies {
		if !s.Supports(len(samples), fromRate, toRate) {
			continue
		}
		out, err := runStrategy(ctx, s, samples, fromRate, toRate)
		if err != nil {
			r.logger.Warn().Err(err).Str("strategy", s.Name()).Msg("Resample strategy failed")
			continue
		}
		r.record(s.Name(), len(samples), fromRate, toRate)
		return FitLength(out, want), s.Name()
	}

	out, _ := r.fallback.Resample(ctx, samples, fromRate, toRate)
	r.record(r.fallback.Name(), len(samples), fromRate, toRate)
	return FitLength(out, want), r.fallback.Name()
}

func (r *Resampler) record(strategy string, n, fromRate, toRate int) {
	metrics.RecordResample(strategy)
	r.logger.Debug().
		Str("strategy", strategy).
		Int("samples", n).
		Int("from_rate", fromRate).
		Int("to_rate", toRate).
		Msg("Resampled")
}

func runStrategy(ctx context.Context, s Strategy, samples []float64, fromRate, toRate int) (out []float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)
		}
	}()
	return s.Resample(ctx, samples, fromRate, toRate)
}

// FFTStrategy resamples with a band-limited Fourier method
type FFTStrategy struct{}

// Name implements Strategy
func (FFTStrategy) Name() string { return StrategyFFT }

// Supports implements Strategy
func (FFTStrategy) Supports(n, fromRate, toRate int) bool {
	if n == 0 || n > MaxFFTLength {
		return false
	}
	m := TargetLength(n, fromRate, toRate)
	if m == 0 || m > MaxFFTLength {
		return false
	}
	return largestPrimeFactor(n) <= MaxFFTPrimeFactor && largestPrimeFactor(m) <= MaxFFTPrimeFactor
}

// Resample implements Strategy. The spectrum is truncated or zero-padded
// to the target length, splitting or merging the Nyquist bin for even
// lengths, and rescaled by 1/n.
func (FFTStrategy) Resample(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, error) {
	nx := len(samples)
	num := TargetLength(nx, fromRate, toRate)
	if nx == 0 || num == 0 {
		return make([]float64, num), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coeffs := fourier.NewFFT(nx).Coefficients(nil, samples)

	y := make([]complex128, num/2+1)
	n := num
	if nx < n {
		n = nx
	}
	nyq := n/2 + 1
	if nyq > len(coeffs) {
		nyq = len(coeffs)
	}
	if nyq > len(y) {
		nyq = len(y)
	}
	copy(y[:nyq], coeffs[:nyq])

	if n%2 == 0 {
		switch {
		case num < nx:
			y[n/2] *= 2
		case nx < num:
			y[n/2] *= 0.5
		}
	}

	out := fourier.NewFFT(num).Sequence(nil, y)
	scale := 1 / float64(nx)
	for i := range out {
		out[i] *= scale
	}
	return out, nil
}

// ExternalStrategy delegates to an out-of-process converter
type ExternalStrategy struct {
	Converter PCMConverter
}

// Name implements Strategy
func (ExternalStrategy) Name() string { return StrategyExternal }

// Supports implements Strategy
func (s ExternalStrategy) Supports(n, fromRate, toRate int) bool {
	return s.Converter != nil && n > 0
}

// Resample implements Strategy
func (s ExternalStrategy) Resample(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, error) {
	if s.Converter == nil {
		return nil, ErrUnsupported
	}
	return s.Converter.ConvertRate(ctx, samples, fromRate, toRate)
}

// LinearStrategy interpolates linearly between neighbouring samples.
// It handles every input.
type LinearStrategy struct{}

// Name implements Strategy
func (LinearStrategy) Name() string { return StrategyLinear }

// Supports implements Strategy
func (LinearStrategy) Supports(n, fromRate, toRate int) bool { return true }

// Resample implements Strategy. Output points are spread evenly from the
// first to the last input sample.
func (LinearStrategy) Resample(_ context.Context, samples []float64, fromRate, toRate int) ([]float64, error) {
	n := len(samples)
	m := TargetLength(n, fromRate, toRate)
	out := make([]float64, m)
	if n == 0 || m == 0 {
		return out, nil
	}
	if n == 1 || m == 1 {
		for i := range out {
			out[i] = samples[0]
		}
		return out, nil
	}

	step := float64(n-1) / float64(m-1)
	for i := 0; i < m; i++ {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= n-1 {
			out[i] = samples[n-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = samples[lo]*(1-frac) + samples[lo+1]*frac
	}
	return out, nil
}

func largestPrimeFactor(n int) int {
	if n < 2 {
		return n
	}
	largest := 1
	for p := 2; p*p <= n; p++ {
		for n%p == 0 {
			largest = p
			n /= p
		}
	}
	if n > 1 {
		largest = n
	}
	return largest
}
