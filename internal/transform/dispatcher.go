package transform

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/internal/tracing"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Input is the validated request handed to a strategy
type Input struct {
	Action string
	Path   string
	Kind   models.MediaKind
	Params models.Parameters
}

// Strategy applies one action to an input file
type Strategy interface {
	Apply(ctx context.Context, in Input) (models.TransformResult, error)
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc func(ctx context.Context, in Input) (models.TransformResult, error)

// Apply calls f
func (f StrategyFunc) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	return f(ctx, in)
}

// MediaIO defines the decode and encode operations the strategies need
type MediaIO interface {
	ExtractMediaInfo(ctx context.Context, path string) (*media.MediaInfo, error)
	DecodeAudio(ctx context.Context, path string, maxFrames int) (dsp.Buffer, error)
	EncodeAudio(ctx context.Context, buf dsp.Buffer, opts media.EncodeAudioOptions) error
	OpenFrameReader(ctx context.Context, path string, info *media.MediaInfo) (media.FrameSource, error)
	OpenFrameWriter(ctx context.Context, opts media.VideoWriterOptions) (media.FrameSink, error)
}

// Transcriber produces timed transcripts for caption generation
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (*models.Transcript, error)
}

// Deps holds the collaborators of the dispatcher
type Deps struct {
	Media       MediaIO
	Executor    media.Executor
	Transcriber Transcriber
}

// Dispatcher maps action identifiers to strategies
type Dispatcher struct {
	strategies map[string]Strategy
	fallback   Strategy
	logger     zerolog.Logger
}

// NewDispatcher creates a dispatcher with every built-in action registered
func NewDispatcher(deps Deps, cfg config.MediaConfig, logger zerolog.Logger) *Dispatcher {
	logger = logger.With().Str("component", "transform").Logger()
	if cfg.StderrTail <= 0 {
		cfg.StderrTail = 500
	}

	d := &Dispatcher{
		strategies: make(map[string]Strategy),
		logger:     logger,
	}

	codec := media.CodecFromConfig(cfg)

	registerAudio(d, deps.Media, deps.Executor, codec, cfg.StderrTail, logger)
	registerVideo(d, deps.Media)
	registerCommands(d, deps.Executor, codec, cfg.StderrTail)
	d.Register(models.ActionTranscribe, &captionStrategy{transcriber: deps.Transcriber})

	d.fallback = commandStrategy{
		exec:   deps.Executor,
		suffix: "_processed",
		tail:   cfg.StderrTail,
		build:  passthroughSpec(codec),
	}
	d.Register(models.ActionPassthrough, d.fallback)
	return d
}

// Register binds a strategy to an action, replacing any existing entry
func (d *Dispatcher) Register(action string, s Strategy) {
	d.strategies[action] = s
}

// Actions lists the registered action identifiers
func (d *Dispatcher) Actions() []string {
	actions := make([]string, 0, len(d.strategies))
	for a := range d.strategies {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

// Apply runs the strategy registered for req.Action, falling back to a
// passthrough re-encode for unknown actions. It always returns a result.
func (d *Dispatcher) Apply(ctx context.Context, req models.TransformRequest) (result models.TransformResult) {
	span, ctx := tracing.StartSpan(ctx, "transform.apply")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "action", req.Action)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = models.ErrorResult(req.Action, fmt.Errorf("transform panicked: %v", r))
		}
		if result.Action == "" {
			result.Action = req.Action
		}
		if !result.Succeeded() {
			tracing.SetTag(span, "error", true)
		}
		duration := time.Since(start)
		metrics.RecordTransform(req.Action, result.Status, duration.Seconds())

		event := d.logger.Info()
		if !result.Succeeded() {
			event = d.logger.Error()
		}
		event.
			Str("action", req.Action).
			Str("input", req.InputPath).
			Str("output", result.OutputPath).
			Str("status", result.Status).
			Str("message", result.Message).
			Dur("duration", duration).
			Msg("transform finished")
	}()

	if req.InputPath == "" {
		return models.ErrorResult(req.Action, models.ErrNotFound)
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return models.ErrorResult(req.Action, models.ErrNotFound)
	}

	strategy, ok := d.strategies[req.Action]
	if !ok {
		d.logger.Warn().Str("action", req.Action).Msg("unknown action, using passthrough")
		strategy = d.fallback
	}

	in := Input{
		Action: req.Action,
		Path:   req.InputPath,
		Kind:   models.ClassifyKind(req.InputPath),
		Params: req.Parameters,
	}
	if in.Params == nil {
		in.Params = models.Parameters{}
	}

	res, err := strategy.Apply(ctx, in)
	if err != nil {
		tracing.LogError(span, err)
		return models.ErrorResult(req.Action, err)
	}
	return res
}
