package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
)

// CodecOptions selects encoders for a command spec
type CodecOptions struct {
	Video  string
	Audio  string
	Copy   bool
	Preset string
	CRF    int
}

// CommandSpec describes one ffmpeg invocation
type CommandSpec struct {
	Inputs        []string
	PreInputArgs  []string
	VideoFilters  []string
	AudioFilters  []string
	FilterComplex string
	Maps          []string
	Codec         CodecOptions
	ExtraArgs     []string
	// Output is the destination file; empty means the null muxer
	Output string
	Format string
}

// Args renders the spec as an ffmpeg argument list
func (s CommandSpec) Args() []string {
	args := []string{"-y", "-hide_banner"}
	args = append(args, s.PreInputArgs...)
	for _, in := range s.Inputs {
		args = append(args, "-i", in)
	}

	if s.FilterComplex != "" {
		args = append(args, "-filter_complex", s.FilterComplex)
	}
	if len(s.VideoFilters) > 0 {
		args = append(args, "-vf", strings.Join(s.VideoFilters, ","))
	}
	if len(s.AudioFilters) > 0 {
		args = append(args, "-af", strings.Join(s.AudioFilters, ","))
	}
	for _, m := range s.Maps {
		args = append(args, "-map", m)
	}

	switch {
	case s.Codec.Copy:
		args = append(args, "-c", "copy")
	default:
		if s.Codec.Video != "" {
			args = append(args, "-c:v", s.Codec.Video)
		}
		if s.Codec.Preset != "" {
			args = append(args, "-preset", s.Codec.Preset)
		}
		if s.Codec.CRF > 0 {
			args = append(args, "-crf", strconv.Itoa(s.Codec.CRF))
		}
		if s.Codec.Audio != "" {
			args = append(args, "-c:a", s.Codec.Audio)
		}
	}

	args = append(args, s.ExtraArgs...)

	if s.Output == "" {
		return append(args, "-f", "null", "-")
	}
	if s.Format != "" {
		args = append(args, "-f", s.Format)
	}
	return append(args, s.Output)
}

// RunResult is the outcome of an ffmpeg invocation
type RunResult struct {
	Success  bool
	Stderr   string
	ExitCode int
}

// Tail returns at most n trailing bytes of the captured stderr
func (r RunResult) Tail(n int) string {
	return tail(r.Stderr, n)
}

// Executor runs ffmpeg command specs
type Executor interface {
	Run(ctx context.Context, spec CommandSpec) (RunResult, error)
}

// CodecFromConfig returns the configured default encoders
func CodecFromConfig(cfg config.MediaConfig) CodecOptions {
	return CodecOptions{
		Video:  cfg.VideoCodec,
		Audio:  cfg.AudioCodec,
		Preset: cfg.Preset,
		CRF:    cfg.CRF,
	}
}

// Run executes the spec. A non-zero exit yields Success=false with the
// captured stderr; the error is reserved for failures to start ffmpeg.
func (f *FFmpeg) Run(ctx context.Context, spec CommandSpec) (RunResult, error) {
	if len(spec.Inputs) == 0 {
		return RunResult{}, errors.New("no inputs provided")
	}

	args := spec.Args()
	f.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := RunResult{Success: err == nil, Stderr: stderr.String()}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		metrics.RecordExternalToolRun("ffmpeg", false)
		return result, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	if exitErr != nil {
		result.ExitCode = exitErr.ExitCode()
	}

	metrics.RecordExternalToolRun("ffmpeg", result.Success)
	if !result.Success {
		f.logger.Warn().Int("exit_code", result.ExitCode).Str("stderr", f.StderrTail(result.Stderr)).Msg("ffmpeg exited with error")
		return result, nil
	}

	f.logger.Debug().Msg("ffmpeg execution completed")
	return result, nil
}

// StderrTail trims captured ffmpeg output to the configured tail length
func (f *FFmpeg) StderrTail(stderr string) string {
	return tail(stderr, f.cfg.StderrTail)
}

// ParseSceneTimes extracts pts_time values from showinfo output
func ParseSceneTimes(output string) []float64 {
	var times []float64
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "pts_time:") {
			continue
		}
		parts := strings.Split(line, "pts_time:")
		if len(parts) < 2 {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) == 0 {
			continue
		}
		var t float64
		if _, err := fmt.Sscanf(fields[0], "%f", &t); err == nil {
			times = append(times, t)
		}
	}
	return times
}
