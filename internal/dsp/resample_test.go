package dsp

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) ConvertRate(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, error) {
	args := m.Called(ctx, samples, fromRate, toRate)
	out, _ := args.Get(0).([]float64)
	return out, args.Error(1)
}

type failingStrategy struct {
	name  string
	panic bool
}

func (f failingStrategy) Name() string                          { return f.name }
func (f failingStrategy) Supports(n, fromRate, toRate int) bool { return true }
func (f failingStrategy) Resample(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, error) {
	if f.panic {
		panic("index out of range")
	}
	return nil, errors.New("library unavailable")
}

func TestResampleIdentity(t *testing.T) {
	r := NewResampler(nil, zerolog.Nop())
	in := []float64{0.1, 0.2, 0.3}

	out := r.Resample(context.Background(), in, 16000, 16000)
	assert.Equal(t, in, out)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, in, "input must not be mutated")
}

func TestResampleLengthPerStrategy(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		n, from, to int
	}{
		{48000, 48000, 16000},
		{44100, 44100, 16000},
		{1000, 8000, 16000},
		{1001, 22050, 16000},
		{7, 44100, 48000},
	}

	strategies := []Strategy{FFTStrategy{}, LinearStrategy{}}
	for _, s := range strategies {
		for _, c := range cases {
			want := TargetLength(c.n, c.from, c.to)
			r := NewResamplerWithStrategies(zerolog.Nop(), s)
			out := r.Resample(ctx, sine(440, c.from, c.n, 0.5), c.from, c.to)
			assert.Len(t, out, want, "strategy=%s n=%d %d->%d", s.Name(), c.n, c.from, c.to)
		}
	}
}

func TestTargetLength(t *testing.T) {
	assert.Equal(t, 16000, TargetLength(48000, 48000, 16000))
	assert.Equal(t, 363, TargetLength(1000, 44100, 16000))
	assert.Equal(t, 2, TargetLength(3, 3, 2))
}

func TestResampleForcedFallback(t *testing.T) {
	r := NewResamplerWithStrategies(zerolog.Nop(),
		failingStrategy{name: "primary"},
		failingStrategy{name: "secondary", panic: true},
	)

	in := sine(440, 44100, 4410, 0.5)
	out, used := r.ResampleWithStrategy(context.Background(), in, 44100, 16000)
	assert.Equal(t, StrategyLinear, used)
	assert.Len(t, out, TargetLength(len(in), 44100, 16000))
}

func TestResampleUsesExternalWhenFFTUnsupported(t *testing.T) {
	conv := new(mockConverter)
	// 1009 is prime, above the FFT prime factor limit
	in := sine(440, 16000, 1009, 0.5)
	conv.On("ConvertRate", mock.Anything, in, 16000, 8000).Return(make([]float64, 500), nil)

	r := NewResampler(conv, zerolog.Nop())
	out, used := r.ResampleWithStrategy(context.Background(), in, 16000, 8000)

	assert.Equal(t, StrategyExternal, used)
	assert.Len(t, out, TargetLength(1009, 16000, 8000), "external output is reconciled to the target length")
	conv.AssertExpectations(t)
}

func TestResampleExternalFailureFallsBack(t *testing.T) {
	conv := new(mockConverter)
	in := sine(440, 16000, 1009, 0.5)
	conv.On("ConvertRate", mock.Anything, in, 16000, 8000).Return(nil, errors.New("ffmpeg not found"))

	r := NewResampler(conv, zerolog.Nop())
	out, used := r.ResampleWithStrategy(context.Background(), in, 16000, 8000)

	assert.Equal(t, StrategyLinear, used)
	assert.Len(t, out, TargetLength(1009, 16000, 8000))
}

func TestFFTStrategyPreservesTone(t *testing.T) {
	const from, to = 48000, 16000
	in := sine(440, from, 4800, 0.5)

	out, err := FFTStrategy{}.Resample(context.Background(), in, from, to)
	require.NoError(t, err)
	require.Len(t, out, 1600)

	want := sine(440, to, 1600, 0.5)
	for i := 100; i < 1500; i++ {
		assert.InDelta(t, want[i], out[i], 0.02, "sample %d", i)
	}
}

func TestFFTStrategyUpsample(t *testing.T) {
	in := sine(100, 8000, 800, 0.5)
	out, err := FFTStrategy{}.Resample(context.Background(), in, 8000, 16000)
	require.NoError(t, err)
	require.Len(t, out, 1600)
	assert.InDelta(t, RMS(in), RMS(out), 0.01)
}

func TestFFTSupports(t *testing.T) {
	s := FFTStrategy{}
	assert.True(t, s.Supports(48000, 48000, 16000))
	assert.False(t, s.Supports(0, 48000, 16000))
	assert.False(t, s.Supports(1009, 16000, 8000))
}

func TestLinearStrategyEndpoints(t *testing.T) {
	out, err := LinearStrategy{}.Resample(context.Background(), []float64{0, 1, 2, 3}, 4, 7)
	require.NoError(t, err)
	require.Len(t, out, 7)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 3.0, out[6])
	assert.InDelta(t, 0.5, out[1], 1e-12)
	for i := 1; i < len(out); i++ {
		assert.False(t, math.IsNaN(out[i]))
		assert.GreaterOrEqual(t, out[i], out[i-1])
	}
}

func TestLargestPrimeFactor(t *testing.T) {
	assert.Equal(t, 5, largestPrimeFactor(48000))
	assert.Equal(t, 7, largestPrimeFactor(44100))
	assert.Equal(t, 1009, largestPrimeFactor(1009))
	assert.Equal(t, 1, largestPrimeFactor(1))
}
