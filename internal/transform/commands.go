package transform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// specBuilder renders the command for one request; output is the path
// ffmpeg must write to
type specBuilder func(in Input, output string) (media.CommandSpec, error)

type commandStrategy struct {
	exec    media.Executor
	suffix  string
	tail    int
	build   specBuilder
	message string
}

func (s commandStrategy) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	if s.exec == nil {
		return models.TransformResult{}, errors.New("command executor not configured")
	}

	out := OutputPath(in.Path, s.suffix)
	err := writeAtomic(out, func(tmp string) error {
		spec, err := s.build(in, tmp)
		if err != nil {
			return err
		}
		return runSpec(ctx, s.exec, spec, s.tail)
	})
	if err != nil {
		return models.TransformResult{}, err
	}

	msg := s.message
	if msg == "" {
		msg = fmt.Sprintf("Applied %s", in.Action)
	}
	return models.SuccessResult(in.Action, out, msg), nil
}

// runSpec executes spec and turns a non-zero exit into an error carrying
// the stderr tail
func runSpec(ctx context.Context, exec media.Executor, spec media.CommandSpec, tail int) error {
	if exec == nil {
		return errors.New("command executor not configured")
	}
	res, err := exec.Run(ctx, spec)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrExternalTool, err)
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", models.ErrExternalTool, res.Tail(tail))
	}
	return nil
}

func registerCommands(d *Dispatcher, exec media.Executor, codec media.CodecOptions, tail int) {
	add := func(action, suffix, message string, build specBuilder) {
		d.Register(action, commandStrategy{exec: exec, suffix: suffix, tail: tail, build: build, message: message})
	}

	add(models.ActionColorGrade, "_graded", "Color grade applied", colorGradeSpec(codec))
	add(models.ActionMagicMask, "_masked", "Background masked", magicMaskSpec(codec))
	add(models.ActionSuperScale, "_superscale", "Super-resolution applied", superScaleSpec(codec))
	add(models.ActionSmartRelight, "_relit", "Relighting applied", smartRelightSpec(codec))
	add(models.ActionFaceRefinement, "_refined", "Face refinement applied", faceRefinementSpec(codec))
	add(models.ActionAIReframe, "_reframed", "Reframed", reframeSpec(codec))
	add(models.ActionCutClip, "_cut", "Clip extracted", cutClipSpec)
	add(models.ActionExtendScene, "_extended", "Scene extended", extendSceneSpec(codec))

	d.Register(models.ActionSceneCut, sceneCutStrategy{exec: exec, tail: tail})
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func filterSpec(codec media.CodecOptions, filters func(p models.Parameters) []string) specBuilder {
	return func(in Input, output string) (media.CommandSpec, error) {
		return media.CommandSpec{
			Inputs:       []string{in.Path},
			VideoFilters: filters(in.Params),
			Codec:        codec,
			Output:       output,
		}, nil
	}
}

func colorGradeSpec(codec media.CodecOptions) specBuilder {
	return filterSpec(codec, func(p models.Parameters) []string {
		return []string{
			fmt.Sprintf("eq=contrast=%s:saturation=%s:gamma=%s",
				num(p.Float("contrast", 1.1)),
				num(p.Float("saturation", 1.2)),
				num(p.Float("gamma", 1.0))),
			"curves=preset=medium_contrast",
		}
	})
}

func magicMaskSpec(codec media.CodecOptions) specBuilder {
	return func(in Input, output string) (media.CommandSpec, error) {
		blur := in.Params.Float("blur", 20)
		subject := in.Params.Float("subject", 0.6)
		if subject <= 0 || subject > 1 {
			return media.CommandSpec{}, fmt.Errorf("subject must be in (0, 1], got %s", num(subject))
		}
		graph := fmt.Sprintf(
			"[0:v]split[fg][bg];[bg]boxblur=%s:2[blur];[fg]crop=iw*%s:ih*0.8[subj];[blur][subj]overlay=(W-w)/2:(H-h)/2[v]",
			num(blur), num(subject))
		return media.CommandSpec{
			Inputs:        []string{in.Path},
			FilterComplex: graph,
			Maps:          []string{"[v]", "0:a?"},
			Codec:         codec,
			Output:        output,
		}, nil
	}
}

func superScaleSpec(codec media.CodecOptions) specBuilder {
	return filterSpec(codec, func(p models.Parameters) []string {
		scale := num(p.Float("scale", 2))
		return []string{
			fmt.Sprintf("scale=iw*%s:ih*%s:flags=lanczos", scale, scale),
			"unsharp=5:5:1.0",
		}
	})
}

func smartRelightSpec(codec media.CodecOptions) specBuilder {
	return filterSpec(codec, func(p models.Parameters) []string {
		return []string{
			fmt.Sprintf("eq=brightness=%s", num(p.Float("brightness", 0.08))),
			fmt.Sprintf("curves=all='0/0 0.25/%s 1/1'", num(p.Float("shadows", 0.35))),
		}
	})
}

func faceRefinementSpec(codec media.CodecOptions) specBuilder {
	return filterSpec(codec, func(p models.Parameters) []string {
		return []string{
			"smartblur=1.5:-0.35:-3.5",
			fmt.Sprintf("unsharp=3:3:%s", num(p.Float("strength", 0.6))),
		}
	})
}

func reframeSpec(codec media.CodecOptions) specBuilder {
	return func(in Input, output string) (media.CommandSpec, error) {
		aw, ah, err := parseAspect(in.Params.String("aspect", "9:16"))
		if err != nil {
			return media.CommandSpec{}, err
		}
		crop := fmt.Sprintf("crop=ih*%d/%d:ih:(iw-ow)/2:0", aw, ah)
		if aw >= ah {
			crop = fmt.Sprintf("crop=iw:iw*%d/%d:0:(ih-oh)/2", ah, aw)
		}
		return media.CommandSpec{
			Inputs:       []string{in.Path},
			VideoFilters: []string{crop},
			Codec:        codec,
			Output:       output,
		}, nil
	}
}

// parseAspect parses "W:H" with positive integer terms
func parseAspect(aspect string) (int, int, error) {
	parts := strings.Split(aspect, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid aspect %q", aspect)
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid aspect %q", aspect)
	}
	return w, h, nil
}

func cutClipSpec(in Input, output string) (media.CommandSpec, error) {
	start := in.Params.Float("start", 0)
	duration := in.Params.Float("duration", 5)
	if start < 0 || duration <= 0 {
		return media.CommandSpec{}, fmt.Errorf("invalid clip range start=%s duration=%s", num(start), num(duration))
	}
	return media.CommandSpec{
		PreInputArgs: []string{"-ss", num(start)},
		Inputs:       []string{in.Path},
		Codec:        media.CodecOptions{Copy: true},
		ExtraArgs:    []string{"-t", num(duration)},
		Output:       output,
	}, nil
}

func extendSceneSpec(codec media.CodecOptions) specBuilder {
	return func(in Input, output string) (media.CommandSpec, error) {
		seconds := in.Params.Float("seconds", 2)
		if seconds <= 0 {
			return media.CommandSpec{}, fmt.Errorf("invalid extension %s", num(seconds))
		}
		spec := media.CommandSpec{
			Inputs:       []string{in.Path},
			VideoFilters: []string{fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", num(seconds))},
			Codec:        codec,
			Output:       output,
		}
		if in.Kind == models.MediaKindAudio {
			spec.VideoFilters = nil
		}
		spec.AudioFilters = []string{fmt.Sprintf("apad=pad_dur=%s", num(seconds))}
		return spec, nil
	}
}

func passthroughSpec(codec media.CodecOptions) specBuilder {
	return func(in Input, output string) (media.CommandSpec, error) {
		spec := media.CommandSpec{
			Inputs: []string{in.Path},
			Codec:  codec,
			Output: output,
		}
		if in.Kind == models.MediaKindAudio {
			spec.Codec = media.CodecOptions{Audio: codec.Audio}
		}
		return spec, nil
	}
}

// SceneCutThreshold is the default ffmpeg scene score for a cut
const SceneCutThreshold = 0.4

type sceneCutStrategy struct {
	exec media.Executor
	tail int
}

func (s sceneCutStrategy) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	if s.exec == nil {
		return models.TransformResult{}, errors.New("command executor not configured")
	}
	threshold := in.Params.Float("threshold", SceneCutThreshold)

	res, err := s.exec.Run(ctx, media.CommandSpec{
		Inputs:       []string{in.Path},
		VideoFilters: []string{fmt.Sprintf("select='gt(scene,%s)'", num(threshold)), "showinfo"},
	})
	if err != nil {
		return models.TransformResult{}, fmt.Errorf("%w: %v", models.ErrExternalTool, err)
	}
	if !res.Success {
		return models.TransformResult{}, fmt.Errorf("%w: %s", models.ErrExternalTool, res.Tail(s.tail))
	}

	return models.SuccessResult(in.Action, "", formatCuts(media.ParseSceneTimes(res.Stderr))), nil
}

func formatCuts(times []float64) string {
	if len(times) == 0 {
		return "No scene changes detected"
	}
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = fmt.Sprintf("%.2fs", t)
	}
	return fmt.Sprintf("Detected %d scene cuts: %s", len(times), strings.Join(parts, ", "))
}
