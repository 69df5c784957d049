package transform

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/therealutkarshpriyadarshi/aiva/internal/frame"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// Frame pipeline tuning
const (
	StabilizeMargin = 0.05
	BoostAlpha      = 1.2
	BoostBeta       = 30.0
	EnhanceAlpha    = 1.1
	EnhanceBeta     = 5.0
)

// frameOp transforms one decoded frame
type frameOp func(f frame.Frame) frame.Frame

// sizeFunc derives the output frame size and per-frame op from the source size
type sizeFunc func(w, h int) (outW, outH int, op frameOp, err error)

func sameSize(op frameOp) sizeFunc {
	return func(w, h int) (int, int, frameOp, error) {
		return w, h, op, nil
	}
}

func registerVideo(d *Dispatcher, mio MediaIO) {
	d.Register(models.ActionStabilizeVideo, frameStrategy{io: mio, suffix: "_stable", plan: stabilizePlan, message: "Stabilized (5% zoom)"})
	d.Register(models.ActionSmartCrop, frameStrategy{io: mio, suffix: "_9x16", plan: smartCropPlan, message: "Center cropped to 9:16"})
	d.Register(models.ActionColorBoost, frameStrategy{io: mio, suffix: "_bright", plan: sameSize(colorBoost), message: "Brightness boosted"})
	d.Register(models.ActionSmartEnhance, frameStrategy{io: mio, suffix: "_enhanced", plan: sameSize(smartEnhance), message: "Detail and contrast enhanced"})
	d.Register(models.ActionCinematicGrade, frameStrategy{io: mio, suffix: "_cine", plan: sameSize(cinematicGrade), message: "Cinematic grade applied"})
	d.Register(models.ActionUpscaleAI, frameStrategy{io: mio, suffix: "_2x", plan: upscalePlan, message: "Upscaled 2x"})
}

type frameStrategy struct {
	io      MediaIO
	suffix  string
	plan    sizeFunc
	message string
}

func (s frameStrategy) Apply(ctx context.Context, in Input) (models.TransformResult, error) {
	info, err := s.io.ExtractMediaInfo(ctx, in.Path)
	if err != nil {
		return models.TransformResult{}, err
	}
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return models.TransformResult{}, fmt.Errorf("%w: no video stream", models.ErrDecode)
	}

	outW, outH, op, err := s.plan(info.Width, info.Height)
	if err != nil {
		return models.TransformResult{}, err
	}

	out := OutputPath(in.Path, s.suffix)
	frames := 0
	err = writeAtomic(out, func(tmp string) error {
		n, err := s.process(ctx, in.Path, tmp, info, outW, outH, op)
		frames = n
		return err
	})
	if err != nil {
		return models.TransformResult{}, err
	}
	return models.SuccessResult(in.Action, out, fmt.Sprintf("%s (%d frames)", s.message, frames)), nil
}

func (s frameStrategy) process(ctx context.Context, input, output string, info *media.MediaInfo, outW, outH int, op frameOp) (int, error) {
	src, err := s.io.OpenFrameReader(ctx, input, info)
	if err != nil {
		return 0, err
	}
	srcClosed := false
	defer func() {
		if !srcClosed {
			_ = src.Close()
		}
	}()

	sink, err := s.io.OpenFrameWriter(ctx, media.VideoWriterOptions{
		OutputPath:  output,
		Width:       outW,
		Height:      outH,
		FrameRate:   info.FrameRate,
		AudioSource: input,
	})
	if err != nil {
		return 0, err
	}

	frames := 0
	for {
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sink.Abort()
			if errors.Is(err, models.ErrDecode) {
				return frames, fmt.Errorf("reading frame %d: %w", frames, err)
			}
			return frames, fmt.Errorf("%w: reading frame %d: %v", models.ErrDecode, frames, err)
		}
		if err := sink.Write(op(f)); err != nil {
			sink.Abort()
			return frames, err
		}
		frames++
	}

	srcClosed = true
	if err := src.Close(); err != nil {
		sink.Abort()
		return frames, fmt.Errorf("closing decoder: %w", err)
	}
	if frames == 0 {
		sink.Abort()
		return 0, fmt.Errorf("%w: no frames decoded", models.ErrDecode)
	}
	return frames, sink.Close()
}

func stabilizePlan(w, h int) (int, int, frameOp, error) {
	mw := int(float64(w) * StabilizeMargin)
	mh := int(float64(h) * StabilizeMargin)
	return w, h, func(f frame.Frame) frame.Frame {
		crop := frame.Crop(f, mw, mh, f.Width-2*mw, f.Height-2*mh)
		return frame.Resize(crop, w, h, frame.Bilinear)
	}, nil
}

func smartCropPlan(w, h int) (int, int, frameOp, error) {
	targetW := h * 9 / 16
	if targetW <= 0 {
		return 0, 0, nil, fmt.Errorf("frame height %d too small to crop", h)
	}
	x1 := w/2 - targetW/2
	if x1 < 0 {
		x1 = 0
	}
	return targetW, h, func(f frame.Frame) frame.Frame {
		crop := frame.Crop(f, x1, 0, targetW, f.Height)
		if crop.Width != targetW || crop.Height != h {
			crop = frame.Resize(crop, targetW, h, frame.Bilinear)
		}
		return crop
	}, nil
}

func upscalePlan(w, h int) (int, int, frameOp, error) {
	return w * 2, h * 2, func(f frame.Frame) frame.Frame {
		return frame.Sharpen(frame.Resize(f, w*2, h*2, frame.Bicubic))
	}, nil
}

func colorBoost(f frame.Frame) frame.Frame {
	return frame.ConvertScaleAbs(f, BoostAlpha, BoostBeta)
}

func smartEnhance(f frame.Frame) frame.Frame {
	return frame.ConvertScaleAbs(frame.Sharpen(f), EnhanceAlpha, EnhanceBeta)
}

func cinematicGrade(f frame.Frame) frame.Frame {
	return frame.ShiftChannels(f, 30, -10, 20)
}
