package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// WhisperSampleRate is the rate whisper models are trained on
const WhisperSampleRate = 16000

// ErrNotInitialized is returned when a transcriber is used before Init succeeds
var ErrNotInitialized = errors.New("transcriber not initialized")

// Transcriber converts speech to text
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
	TranscribeFile(ctx context.Context, path string) (*models.Transcript, error)
}

// AudioWriter prepares WAV input for the transcriber
type AudioWriter interface {
	EncodeAudio(ctx context.Context, buf dsp.Buffer, opts media.EncodeAudioOptions) error
	Run(ctx context.Context, spec media.CommandSpec) (media.RunResult, error)
}

// WhisperCLI transcribes with the whisper.cpp command line tool
type WhisperCLI struct {
	cfg    config.VoiceConfig
	audio  AudioWriter
	logger zerolog.Logger

	mu    sync.RWMutex
	ready bool
}

// NewWhisperCLI creates a transcriber. Init must be called before use.
func NewWhisperCLI(cfg config.VoiceConfig, audio AudioWriter, logger zerolog.Logger) *WhisperCLI {
	if cfg.WhisperPath == "" {
		cfg.WhisperPath = "whisper-cli"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &WhisperCLI{
		cfg:    cfg,
		audio:  audio,
		logger: logger.With().Str("component", "whisper").Logger(),
	}
}

// Init verifies that the whisper binary and model are available
func (w *WhisperCLI) Init(ctx context.Context) error {
	path, err := exec.LookPath(w.cfg.WhisperPath)
	if err != nil {
		return fmt.Errorf("whisper binary not found: %w", err)
	}
	if _, err := os.Stat(w.cfg.ModelPath); err != nil {
		return fmt.Errorf("whisper model not found: %w", err)
	}

	w.mu.Lock()
	w.cfg.WhisperPath = path
	w.ready = true
	w.mu.Unlock()

	w.logger.Info().
		Str("binary", path).
		Str("model", w.cfg.ModelPath).
		Msg("Transcriber initialized")
	return nil
}

// Ready reports whether Init succeeded
func (w *WhisperCLI) Ready() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ready
}

// Transcribe writes samples to a temporary WAV and returns the recognised text
func (w *WhisperCLI) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if !w.Ready() {
		return "", ErrNotInitialized
	}

	dir, err := os.MkdirTemp("", "aiva-stt-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	buf := dsp.Buffer{Samples: make([]float64, len(samples)), SampleRate: sampleRate, Channels: 1}
	for i, s := range samples {
		buf.Samples[i] = float64(s)
	}
	wav := filepath.Join(dir, "input.wav")
	if err := w.audio.EncodeAudio(ctx, buf, media.EncodeAudioOptions{OutputPath: wav}); err != nil {
		return "", fmt.Errorf("failed to write wav: %w", err)
	}

	transcript, err := w.run(ctx, wav, dir)
	if err != nil {
		return "", err
	}
	return transcript.Text, nil
}

// TranscribeFile extracts 16kHz mono audio from path and transcribes it
func (w *WhisperCLI) TranscribeFile(ctx context.Context, path string) (*models.Transcript, error) {
	if !w.Ready() {
		return nil, ErrNotInitialized
	}

	dir, err := os.MkdirTemp("", "aiva-stt-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wav := filepath.Join(dir, "input.wav")
	res, err := w.audio.Run(ctx, media.CommandSpec{
		Inputs: []string{path},
		ExtraArgs: []string{
			"-vn",
			"-acodec", "pcm_s16le",
			"-ar", strconv.Itoa(WhisperSampleRate),
			"-ac", "1",
		},
		Output: wav,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalTool, err)
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: audio extraction failed: %s", models.ErrExternalTool, res.Tail(500))
	}

	return w.run(ctx, wav, dir)
}

func (w *WhisperCLI) run(ctx context.Context, wav, dir string) (*models.Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	w.mu.RLock()
	bin := w.cfg.WhisperPath
	w.mu.RUnlock()

	prefix := filepath.Join(dir, "transcript")
	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", wav,
		"-l", w.cfg.Language,
		"-oj",
		"-of", prefix,
		"-np",
	}

	start := time.Now()
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	metrics.RecordExternalToolRun("whisper", err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: whisper failed: %v, output: %s", models.ErrExternalTool, err, lastLines(string(out), 5))
	}

	data, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}
	transcript, err := parseWhisperJSON(data)
	if err != nil {
		return nil, err
	}

	w.logger.Debug().
		Int("segments", len(transcript.Segments)).
		Dur("duration", time.Since(start)).
		Msg("Transcription completed")
	return transcript, nil
}

type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseWhisperJSON converts whisper.cpp -oj output into a transcript
func parseWhisperJSON(data []byte) (*models.Transcript, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	transcript := &models.Transcript{Segments: []models.Segment{}}
	texts := make([]string, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		transcript.Segments = append(transcript.Segments, models.Segment{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  text,
		})
		texts = append(texts, text)
	}
	transcript.Text = strings.Join(texts, " ")
	return transcript, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
