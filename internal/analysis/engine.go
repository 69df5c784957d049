package analysis

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/frame"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/internal/tracing"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Source defines the decoding operations the engine needs
type Source interface {
	ExtractMediaInfo(ctx context.Context, path string) (*media.MediaInfo, error)
	DecodeAudio(ctx context.Context, path string, maxFrames int) (dsp.Buffer, error)
	ReadFrameAt(ctx context.Context, path string, info *media.MediaInfo, index int) (frame.Frame, error)
	OpenFrameReader(ctx context.Context, path string, info *media.MediaInfo) (media.FrameSource, error)
}

// Engine derives suggestions from signal statistics
type Engine struct {
	source Source
	cfg    config.AnalysisConfig
	logger zerolog.Logger
}

// NewEngine creates a new analysis engine
func NewEngine(source Source, cfg config.AnalysisConfig, logger zerolog.Logger) *Engine {
	if cfg.MaxAudioFrames <= 0 {
		cfg.MaxAudioFrames = 30 * 48000
	}
	if cfg.SampleFrameIndex < 0 {
		cfg.SampleFrameIndex = 10
	}
	if cfg.SceneThreshold <= 0 {
		cfg.SceneThreshold = 0.6
	}
	if cfg.MaxSceneFrames <= 0 {
		cfg.MaxSceneFrames = 5000
	}
	return &Engine{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "analysis").Logger(),
	}
}

// Analyze returns the ordered suggestion list for a file. It never
// returns an empty list.
func (e *Engine) Analyze(ctx context.Context, path string) []models.Suggestion {
	span, ctx := tracing.StartSpan(ctx, "analysis.analyze")
	defer tracing.FinishSpan(span)

	start := time.Now()
	stats := e.Stats(ctx, path)
	suggestions := Suggest(stats)

	ids := make([]string, len(suggestions))
	for i, s := range suggestions {
		ids[i] = s.ID
	}
	tracing.SetTag(span, "media.kind", string(stats.Kind))
	tracing.SetTag(span, "suggestions", len(suggestions))
	metrics.RecordAnalysis(string(stats.Kind), time.Since(start).Seconds(), ids)

	e.logger.Info().
		Str("path", path).
		Str("kind", string(stats.Kind)).
		Strs("suggestions", ids).
		Dur("duration", time.Since(start)).
		Msg("analysis completed")

	return suggestions
}

// Stats gathers the signal statistics for a file. Measurements that fail
// are left nil.
func (e *Engine) Stats(ctx context.Context, path string) models.MediaStats {
	stats := models.MediaStats{
		Path: path,
		Kind: models.ClassifyKind(path),
	}

	if _, err := os.Stat(path); err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("input not readable, skipping measurements")
		return stats
	}

	e.isolate("audio_level", func() error {
		level, err := e.audioLevel(ctx, path)
		if err != nil {
			return err
		}
		stats.AudioLevelDB = &level
		return nil
	})

	if stats.Kind != models.MediaKindVideo {
		return stats
	}

	var info *media.MediaInfo
	e.isolate("video_metadata", func() error {
		i, err := e.source.ExtractMediaInfo(ctx, path)
		if err != nil {
			return err
		}
		if !i.HasVideo {
			return fmt.Errorf("%w: no video stream", models.ErrDecode)
		}
		info = i
		width, height, fps := i.Width, i.Height, i.FrameRate
		stats.Width = &width
		stats.Height = &height
		stats.FrameRate = &fps
		return nil
	})

	if info == nil {
		return stats
	}

	e.isolate("video_brightness", func() error {
		f, err := e.source.ReadFrameAt(ctx, path, info, e.cfg.SampleFrameIndex)
		if err != nil {
			return err
		}
		brightness := frame.MeanLuminance(f)
		stats.MeanBrightness = &brightness
		return nil
	})

	return stats
}

func (e *Engine) audioLevel(ctx context.Context, path string) (float64, error) {
	buf, err := e.source.DecodeAudio(ctx, path, e.cfg.MaxAudioFrames)
	if err != nil {
		return 0, err
	}
	mono := buf.Mono()
	if len(mono) == 0 {
		return 0, fmt.Errorf("%w: empty audio stream", models.ErrDecode)
	}
	return dsp.LoudnessDB(mono), nil
}

// isolate runs one measurement, converting errors and panics into a warning
func (e *Engine) isolate(name string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}

	metrics.RecordHeuristicFailure(name)
	e.logger.Warn().Err(err).Str("heuristic", name).Msg("measurement failed, continuing with partial stats")
}
