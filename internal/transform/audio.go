package transform

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// MessageNoSignal is reported when an input has no energy to work with
const MessageNoSignal = "no signal"

// High-pass cutoffs for the cleanup actions
const (
	EnhanceCutoffHz   = 80.0
	IsolationCutoffHz = 100.0
)

func registerAudio(d *Dispatcher, mio MediaIO, exec media.Executor, codec media.CodecOptions, tail int, logger zerolog.Logger) {
	d.Register(models.ActionNormalizeAudio, gainStrategy{io: mio, target: dsp.NormalizePeak})
	d.Register(models.ActionReduceGain, gainStrategy{io: mio, target: dsp.ReducedPeak})
	d.Register(models.ActionRemoveSilence, silenceStrategy{io: mio, exec: exec, codec: codec, tail: tail})
	d.Register(models.ActionEnhanceAudio, highPassStrategy{io: mio, cutoff: EnhanceCutoffHz, suffix: "_enhanced"})
	d.Register(models.ActionVoiceIsolation, highPassStrategy{io: mio, cutoff: IsolationCutoffHz, suffix: "_isolated"})
	d.Register(models.ActionVoiceChanger, voiceChanger{io: mio, exec: exec, tail: tail, logger: logger})
}

// writeAudio encodes buf next to the input. Video inputs get the new
// audio muxed back with their video stream copied.
func writeAudio(ctx context.Context, mio MediaIO, in Input, buf dsp.Buffer, out string) error {
	opts := media.EncodeAudioOptions{}
	if in.Kind == models.MediaKindVideo {
		opts.VideoSource = in.Path
	}
	return writeAtomic(out, func(tmp string) error {
		opts.OutputPath = tmp
		return mio.EncodeAudio(ctx, buf, opts)
	})
}

type gainStrategy struct {
	io     MediaIO
	target float64
}

func (s gainStrategy) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	buf, err := s.io.DecodeAudio(ctx, in.Path, 0)
	if err != nil {
		return models.TransformResult{}, err
	}

	samples, ok := dsp.NormalizePeakTo(buf.Samples, s.target)
	if !ok {
		return models.SuccessResult(in.Action, "", MessageNoSignal), nil
	}

	out := OutputPath(in.Path, "_norm")
	if err := writeAudio(ctx, s.io, in, buf.WithSamples(samples), out); err != nil {
		return models.TransformResult{}, err
	}
	return models.SuccessResult(in.Action, out, fmt.Sprintf("Audio peak set to %.2f", s.target)), nil
}

type silenceStrategy struct {
	io    MediaIO
	exec  media.Executor
	codec media.CodecOptions
	tail  int
}

func (s silenceStrategy) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	buf, err := s.io.DecodeAudio(ctx, in.Path, 0)
	if err != nil {
		return models.TransformResult{}, err
	}

	mask := dsp.KeepMask(buf.Mono(), buf.SampleRate)
	out := OutputPath(in.Path, "_nosilence")

	if in.Kind == models.MediaKindVideo {
		spans := dsp.MaskSpans(mask, buf.SampleRate)
		if len(spans) == 0 {
			return models.SuccessResult(in.Action, "", MessageNoSignal), nil
		}
		var kept float64
		for _, sp := range spans {
			kept += sp.End - sp.Start
		}
		err := writeAtomic(out, func(tmp string) error {
			return runSpec(ctx, s.exec, silenceSpec(in.Path, tmp, spans, s.codec), s.tail)
		})
		if err != nil {
			return models.TransformResult{}, err
		}
		return models.SuccessResult(in.Action, out, fmt.Sprintf("Removed %.1fs of silence", buf.Duration()-kept)), nil
	}

	trimmed := dsp.ApplyMask(buf, mask)
	if trimmed.Frames() == 0 {
		return models.SuccessResult(in.Action, "", MessageNoSignal), nil
	}
	if err := writeAudio(ctx, s.io, in, trimmed, out); err != nil {
		return models.TransformResult{}, err
	}
	return models.SuccessResult(in.Action, out, fmt.Sprintf("Removed %.1fs of silence", buf.Duration()-trimmed.Duration())), nil
}

// silenceSpec keeps only the given time spans of both streams
func silenceSpec(input, output string, spans []dsp.Span, codec media.CodecOptions) media.CommandSpec {
	terms := make([]string, len(spans))
	for i, sp := range spans {
		terms[i] = fmt.Sprintf("between(t,%.3f,%.3f)", sp.Start, sp.End)
	}
	expr := strings.Join(terms, "+")

	return media.CommandSpec{
		Inputs:       []string{input},
		VideoFilters: []string{fmt.Sprintf("select='%s'", expr), "setpts=N/FRAME_RATE/TB"},
		AudioFilters: []string{fmt.Sprintf("aselect='%s'", expr), "asetpts=N/SR/TB"},
		Codec:        codec,
		Output:       output,
	}
}

type highPassStrategy struct {
	io     MediaIO
	cutoff float64
	suffix string
}

func (s highPassStrategy) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	buf, err := s.io.DecodeAudio(ctx, in.Path, 0)
	if err != nil {
		return models.TransformResult{}, err
	}

	filtered, err := dsp.HighPass(buf, s.cutoff)
	if err != nil {
		return models.TransformResult{}, err
	}
	samples, ok := dsp.NormalizePeakTo(filtered.Samples, dsp.EnhancedPeak)
	if !ok {
		return models.SuccessResult(in.Action, "", MessageNoSignal), nil
	}

	out := OutputPath(in.Path, s.suffix)
	if err := writeAudio(ctx, s.io, in, filtered.WithSamples(samples), out); err != nil {
		return models.TransformResult{}, err
	}
	return models.SuccessResult(in.Action, out, "Audio enhanced (High-pass + Norm)"), nil
}

// Voice changer presets
const (
	EffectRobot    = "robot"
	EffectEcho     = "echo"
	EffectChipmunk = "chipmunk"
	EffectMonster  = "monster"
	EffectAlien    = "alien"
)

type voiceChanger struct {
	io     MediaIO
	exec   media.Executor
	tail   int
	logger zerolog.Logger
}

func (s voiceChanger) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	effect := sanitizeEffect(in.Params.String("effect", EffectRobot))

	buf, err := s.io.DecodeAudio(ctx, in.Path, 0)
	if err != nil {
		return models.TransformResult{}, err
	}
	mono := dsp.Buffer{Samples: buf.Mono(), SampleRate: buf.SampleRate, Channels: 1}

	var processed dsp.Buffer
	switch effect {
	case EffectRobot:
		processed = dsp.RingModulate(mono, dsp.RingModFrequency)
	case EffectEcho:
		processed = dsp.Echo(mono, dsp.EchoDelaySeconds, dsp.EchoDecay)
	case EffectChipmunk:
		processed, err = s.pitchShift(ctx, in.Path, mono.SampleRate, dsp.ChipmunkSemitones)
	case EffectMonster:
		processed, err = s.pitchShift(ctx, in.Path, mono.SampleRate, dsp.MonsterSemitones)
	case EffectAlien:
		processed, err = s.pitchShift(ctx, in.Path, mono.SampleRate, dsp.AlienSemitones)
		if err == nil {
			processed = dsp.Tremolo(processed, dsp.TremoloFrequency)
		}
	default:
		s.logger.Warn().Str("effect", effect).Msg("unknown voice effect, normalizing only")
		processed = mono
	}
	if err != nil {
		return models.TransformResult{}, err
	}

	samples, ok := dsp.NormalizePeakTo(processed.Samples, dsp.NormalizePeak)
	if !ok {
		return models.SuccessResult(in.Action, "", MessageNoSignal), nil
	}

	out := OutputPath(in.Path, "_"+effect)
	if err := writeAudio(ctx, s.io, in, processed.WithSamples(samples), out); err != nil {
		return models.TransformResult{}, err
	}
	return models.SuccessResult(in.Action, out, fmt.Sprintf("Applied %s voice effect", effect)), nil
}

// pitchShift renders a mono pitch-shifted copy of the first audio stream
// through ffmpeg and decodes it back
func (s voiceChanger) pitchShift(ctx context.Context, input string, sampleRate int, semitones float64) (dsp.Buffer, error) {
	tmp, err := os.CreateTemp("", "aiva-pitch-*.wav")
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	spec := media.CommandSpec{
		Inputs:       []string{input},
		Maps:         []string{"0:a:0"},
		AudioFilters: pitchFilters(sampleRate, semitones),
		ExtraArgs:    []string{"-ac", "1"},
		Output:       tmpPath,
	}
	if err := runSpec(ctx, s.exec, spec, s.tail); err != nil {
		return dsp.Buffer{}, err
	}

	shifted, err := s.io.DecodeAudio(ctx, tmpPath, 0)
	if err != nil {
		return dsp.Buffer{}, err
	}
	return dsp.Buffer{Samples: shifted.Mono(), SampleRate: shifted.SampleRate, Channels: 1}, nil
}

// pitchFilters shifts pitch while keeping duration and sample rate
func pitchFilters(sampleRate int, semitones float64) []string {
	ratio := dsp.PitchRatio(semitones)
	return []string{
		fmt.Sprintf("asetrate=%d", int(math.Round(float64(sampleRate)*ratio))),
		fmt.Sprintf("aresample=%d", sampleRate),
		fmt.Sprintf("atempo=%.6f", 1/ratio),
	}
}

// sanitizeEffect lowercases the effect name and keeps it filename-safe
func sanitizeEffect(effect string) string {
	effect = strings.ToLower(strings.TrimSpace(effect))
	var b strings.Builder
	for _, r := range effect {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return EffectRobot
	}
	return b.String()
}
