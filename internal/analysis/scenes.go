package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/frame"
	"github.com/therealutkarshpriyadarshi/aiva/internal/tracing"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// DetectScenes streams the video and records a cut wherever the hue
// histogram correlation with the previous frame drops below the threshold,
// at most once per second of footage.
func (e *Engine) DetectScenes(ctx context.Context, path string) ([]models.Scene, error) {
	span, ctx := tracing.StartSpan(ctx, "analysis.detect_scenes")
	defer tracing.FinishSpan(span)

	if _, err := os.Stat(path); err != nil {
		return nil, models.ErrNotFound
	}

	info, err := e.source.ExtractMediaInfo(ctx, path)
	if err != nil {
		tracing.LogError(span, err)
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}
	if info.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: unknown frame rate", models.ErrDecode)
	}

	src, err := e.source.OpenFrameReader(ctx, path, info)
	if err != nil {
		tracing.LogError(span, err)
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer src.Close()

	detector := newSceneDetector(info.FrameRate, e.cfg.SceneThreshold)
	for frameIdx := 0; frameIdx <= e.cfg.MaxSceneFrames; frameIdx++ {
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			tracing.LogError(span, err)
			return nil, fmt.Errorf("failed to read frame %d: %w", frameIdx, err)
		}
		detector.observe(frameIdx, frame.HueHistogram(f))
	}

	tracing.SetTag(span, "scenes", len(detector.scenes))
	e.logger.Info().Str("path", path).Int("scenes", len(detector.scenes)).Msg("scene detection completed")
	return detector.scenes, nil
}

type sceneDetector struct {
	fps       float64
	threshold float64
	prev      []float64
	lastCut   int
	scenes    []models.Scene
}

func newSceneDetector(fps, threshold float64) *sceneDetector {
	return &sceneDetector{fps: fps, threshold: threshold, scenes: []models.Scene{}}
}

func (d *sceneDetector) observe(frameIdx int, hist []float64) {
	if d.prev != nil {
		score := dsp.Correlation(d.prev, hist)
		if score < d.threshold && float64(frameIdx-d.lastCut) > d.fps {
			d.scenes = append(d.scenes, models.Scene{
				Time:  float64(frameIdx) / d.fps,
				Frame: frameIdx,
			})
			d.lastCut = frameIdx
		}
	}
	d.prev = hist
}
