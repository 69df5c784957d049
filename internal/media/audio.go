package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"

	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// EncodeAudioOptions holds options for writing a PCM buffer to a file
type EncodeAudioOptions struct {
	OutputPath string
	// VideoSource, when set, is muxed in with its video stream copied
	VideoSource string
}

// DecodeAudio decodes the first audio stream of a file to interleaved
// float PCM at its native rate and channel count. When maxFrames is
// positive decoding stops after that many frames.
func (f *FFmpeg) DecodeAudio(ctx context.Context, inputPath string, maxFrames int) (dsp.Buffer, error) {
	info, err := f.ExtractMediaInfo(ctx, inputPath)
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	if !info.HasAudio || info.SampleRate <= 0 {
		return dsp.Buffer{}, fmt.Errorf("%w: no audio stream in %s", models.ErrDecode, inputPath)
	}
	channels := info.Channels
	if channels <= 0 {
		channels = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-v", "error",
		"-i", inputPath,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(info.SampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return dsp.Buffer{}, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var reader io.Reader = stdout
	limited := maxFrames > 0
	if limited {
		reader = io.LimitReader(stdout, int64(maxFrames)*int64(channels)*4)
	}
	raw, readErr := io.ReadAll(reader)

	// Stop the decoder once enough frames have been read
	if limited {
		cancel()
	}
	waitErr := cmd.Wait()
	metrics.RecordExternalToolRun("ffmpeg", waitErr == nil || limited)

	if readErr != nil {
		return dsp.Buffer{}, fmt.Errorf("%w: reading pcm: %v", models.ErrDecode, readErr)
	}
	if waitErr != nil && !limited {
		return dsp.Buffer{}, fmt.Errorf("%w: ffmpeg failed: %v, stderr: %s", models.ErrDecode, waitErr, tail(stderr.String(), f.cfg.StderrTail))
	}
	if len(raw) == 0 && waitErr != nil {
		return dsp.Buffer{}, fmt.Errorf("%w: ffmpeg failed: %v, stderr: %s", models.ErrDecode, waitErr, tail(stderr.String(), f.cfg.StderrTail))
	}

	samples := decodeF32LE(raw)
	// drop a trailing partial frame
	samples = samples[:len(samples)-len(samples)%channels]

	return dsp.Buffer{Samples: samples, SampleRate: info.SampleRate, Channels: channels}, nil
}

// EncodeAudio writes buf to opts.OutputPath, choosing the codec from the
// output extension.
func (f *FFmpeg) EncodeAudio(ctx context.Context, buf dsp.Buffer, opts EncodeAudioOptions) error {
	channels := buf.Channels
	if channels <= 0 {
		channels = 1
	}

	args := []string{
		"-hide_banner",
		"-v", "error",
		"-y",
		"-f", "f32le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "pipe:0",
	}
	if opts.VideoSource != "" {
		args = append(args,
			"-i", opts.VideoSource,
			"-map", "1:v:0",
			"-map", "0:a:0",
			"-c:v", "copy",
			"-c:a", f.audioCodec(),
			"-shortest",
		)
	}
	args = append(args, opts.OutputPath)

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(encodeF32LE(buf.Samples))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.RecordExternalToolRun("ffmpeg", err == nil)
	if err != nil {
		return fmt.Errorf("%w: audio encode failed: %v, stderr: %s", models.ErrExternalTool, err, tail(stderr.String(), f.cfg.StderrTail))
	}
	return nil
}

// ConvertRate resamples mono PCM with ffmpeg's aresample filter
func (f *FFmpeg) ConvertRate(ctx context.Context, samples []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, errors.New("invalid sample rate")
	}

	args := []string{
		"-hide_banner",
		"-v", "error",
		"-f", "f32le",
		"-ar", strconv.Itoa(fromRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-af", fmt.Sprintf("aresample=%d", toRate),
		"-f", "f32le",
		"-ar", strconv.Itoa(toRate),
		"-ac", "1",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(encodeF32LE(samples))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.RecordExternalToolRun("ffmpeg", err == nil)
	if err != nil {
		return nil, fmt.Errorf("aresample failed: %w, stderr: %s", err, tail(stderr.String(), f.cfg.StderrTail))
	}
	return decodeF32LE(stdout.Bytes()), nil
}

func (f *FFmpeg) audioCodec() string {
	if f.cfg.AudioCodec != "" {
		return f.cfg.AudioCodec
	}
	return "aac"
}

func decodeF32LE(raw []byte) []float64 {
	n := len(raw) / 4
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return out
}

func encodeF32LE(samples []float64) []byte {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(float32(s)))
	}
	return raw
}
