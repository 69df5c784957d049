package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
)

// FFmpeg wraps ffmpeg and ffprobe invocations
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	cfg         config.MediaConfig
	logger      zerolog.Logger
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(cfg config.MediaConfig, logger zerolog.Logger) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.StderrTail <= 0 {
		cfg.StderrTail = 500
	}
	return &FFmpeg{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		cfg:         cfg,
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
	}
}

// Available reports whether both binaries resolve on this host
func (f *FFmpeg) Available() bool {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(f.ffprobePath)
	return err == nil
}

// ProbeResult holds metadata extracted from ffprobe
type ProbeResult struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

// FormatInfo holds format information
type FormatInfo struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// StreamInfo holds stream information
type StreamInfo struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FrameRate    string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	NbFrames     string `json:"nb_frames"`
}

// MediaInfo is the subset of container metadata the engine uses
type MediaInfo struct {
	Width      int
	Height     int
	FrameRate  float64
	Duration   float64
	SampleRate int
	Channels   int
	HasAudio   bool
	HasVideo   bool
}

// Probe extracts container metadata from a media file
func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (*ProbeResult, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.RecordExternalToolRun("ffprobe", err == nil)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &result, nil
}

// ExtractMediaInfo probes a file and summarises its first audio and video streams
func (f *FFmpeg) ExtractMediaInfo(ctx context.Context, inputPath string) (*MediaInfo, error) {
	result, err := f.Probe(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	return result.Info(), nil
}

// Info summarises the probe result
func (p *ProbeResult) Info() *MediaInfo {
	info := &MediaInfo{}

	if duration, err := strconv.ParseFloat(p.Format.Duration, 64); err == nil {
		info.Duration = duration
	}

	for _, stream := range p.Streams {
		switch stream.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.FrameRate = parseFrameRate(stream.AvgFrameRate)
			if info.FrameRate == 0 {
				info.FrameRate = parseFrameRate(stream.FrameRate)
			}
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.Channels = stream.Channels
			if sr, err := strconv.Atoi(stream.SampleRate); err == nil {
				info.SampleRate = sr
			}
		}
	}

	return info
}

// parseFrameRate parses an ffprobe rational such as "30000/1001"
func parseFrameRate(rate string) float64 {
	if rate == "" {
		return 0
	}
	parts := strings.Split(rate, "/")
	if len(parts) == 2 {
		num, _ := strconv.ParseFloat(parts[0], 64)
		den, _ := strconv.ParseFloat(parts[1], 64)
		if den != 0 {
			return num / den
		}
		return 0
	}
	v, _ := strconv.ParseFloat(rate, 64)
	return v
}

// tail returns at most n trailing bytes of s
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
