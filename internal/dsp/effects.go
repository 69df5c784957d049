package dsp

import (
	"math"
)

// Voice effect constants
const (
	RingModFrequency = 50.0
	EchoDelaySeconds = 0.3
	EchoDecay        = 0.5
	TremoloFrequency = 10.0
)

// Pitch shifts in semitones for the voice presets
const (
	ChipmunkSemitones = 4
	MonsterSemitones  = -4
	AlienSemitones    = 2
)

// PitchRatio converts a semitone shift to a frequency ratio
func PitchRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// RingModulate multiplies each frame by a sine carrier at freq Hz
func RingModulate(buf Buffer, freq float64) Buffer {
	channels := buf.Channels
	if channels <= 0 {
		channels = 1
	}
	out := make([]float64, len(buf.Samples))
	for i, s := range buf.Samples {
		t := float64(i/channels) / float64(buf.SampleRate)
		out[i] = s * math.Sin(2*math.Pi*freq*t)
	}
	return buf.WithSamples(out)
}

// Echo mixes a delayed, attenuated copy of the signal into itself
func Echo(buf Buffer, delaySeconds, decay float64) Buffer {
	channels := buf.Channels
	if channels <= 0 {
		channels = 1
	}
	delay := int(delaySeconds*float64(buf.SampleRate)) * channels

	out := make([]float64, len(buf.Samples))
	copy(out, buf.Samples)
	if delay <= 0 {
		return buf.WithSamples(out)
	}
	for i := delay; i < len(out); i++ {
		out[i] += buf.Samples[i-delay] * decay
	}
	return buf.WithSamples(out)
}

// Tremolo applies amplitude modulation of 0.5 + 0.5*sin(2*pi*freq*t)
func Tremolo(buf Buffer, freq float64) Buffer {
	channels := buf.Channels
	if channels <= 0 {
		channels = 1
	}
	out := make([]float64, len(buf.Samples))
	for i, s := range buf.Samples {
		t := float64(i/channels) / float64(buf.SampleRate)
		out[i] = s * (0.5 + 0.5*math.Sin(2*math.Pi*freq*t))
	}
	return buf.WithSamples(out)
}
