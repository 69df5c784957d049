package transform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input  string
		suffix string
		want   string
	}{
		{"clip.mp4", "_stable", "clip_stable.mp4"},
		{"/data/my.video.mov", "_9x16", "/data/my.video_9x16.mov"},
		{"/data/noext", "_norm", "/data/noext_norm"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.input, tt.suffix))
		})
	}

	assert.Equal(t, "/data/talk_captions.srt", OutputPathWithExt("/data/talk.mp4", "_captions", ".srt"))
	assert.Equal(t, "/data/talk_norm.partial.wav", partialPath("/data/talk_norm.wav"))
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.wav")

	err := writeAtomic(final, func(tmp string) error {
		return os.WriteFile(tmp, []byte("ok"), 0o644)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"out.wav"}, dirEntries(t, dir))

	failed := filepath.Join(dir, "bad.wav")
	err = writeAtomic(failed, func(tmp string) error {
		_ = os.WriteFile(tmp, []byte("half"), 0o644)
		return errors.New("encoder died")
	})
	assert.EqualError(t, err, "encoder died")
	assert.Equal(t, []string{"out.wav"}, dirEntries(t, dir))
}

func TestApplyFileNotFound(t *testing.T) {
	dir := t.TempDir()
	d := newTestDispatcher(newFakeMedia(), &fakeExecutor{}, nil)

	for _, action := range []string{models.ActionNormalizeAudio, models.ActionStabilizeVideo, models.ActionColorGrade, "unknown"} {
		t.Run(action, func(t *testing.T) {
			res := d.Apply(context.Background(), models.TransformRequest{
				Action:    action,
				InputPath: filepath.Join(dir, "missing.mp4"),
			})
			assert.Equal(t, models.TransformStatusError, res.Status)
			assert.Equal(t, "File not found", res.Message)
			assert.Empty(t, res.OutputPath)
			assert.Equal(t, action, res.Action)
		})
	}

	res := d.Apply(context.Background(), models.TransformRequest{Action: models.ActionCutClip})
	assert.Equal(t, "File not found", res.Message)
	assert.Empty(t, dirEntries(t, dir))
}

func TestApplyRecoversPanics(t *testing.T) {
	d := newTestDispatcher(newFakeMedia(), &fakeExecutor{}, nil)
	d.Register("boom", StrategyFunc(func(ctx context.Context, in Input) (models.TransformResult, error) {
		panic("index out of range")
	}))

	res := d.Apply(context.Background(), models.TransformRequest{Action: "boom", InputPath: touch(t, "clip.mp4")})
	assert.Equal(t, models.TransformStatusError, res.Status)
	assert.Contains(t, res.Message, "index out of range")
	assert.Equal(t, "boom", res.Action)
}

func TestApplyStrategyErrorBecomesResult(t *testing.T) {
	m := newFakeMedia()
	m.audioErr = models.ErrDecode
	d := newTestDispatcher(m, &fakeExecutor{}, nil)

	res := d.Apply(context.Background(), models.TransformRequest{Action: models.ActionNormalizeAudio, InputPath: touch(t, "a.wav")})
	assert.Equal(t, models.TransformStatusError, res.Status)
	assert.Equal(t, "decode failed", res.Message)
}

func TestActionsRegistered(t *testing.T) {
	d := newTestDispatcher(newFakeMedia(), &fakeExecutor{}, nil)
	actions := d.Actions()

	for _, a := range []string{
		models.ActionNormalizeAudio, models.ActionReduceGain, models.ActionRemoveSilence,
		models.ActionEnhanceAudio, models.ActionVoiceIsolation, models.ActionVoiceChanger,
		models.ActionTranscribe, models.ActionStabilizeVideo, models.ActionSmartCrop,
		models.ActionColorBoost, models.ActionSmartEnhance, models.ActionCinematicGrade,
		models.ActionUpscaleAI, models.ActionColorGrade, models.ActionMagicMask,
		models.ActionSuperScale, models.ActionSmartRelight, models.ActionFaceRefinement,
		models.ActionAIReframe, models.ActionSceneCut, models.ActionCutClip,
		models.ActionExtendScene, models.ActionPassthrough,
	} {
		assert.Contains(t, actions, a)
	}
}

func TestUnknownActionPassthrough(t *testing.T) {
	exec := &fakeExecutor{result: media.RunResult{Success: true}}
	d := newTestDispatcher(newFakeMedia(), exec, nil)
	in := touch(t, "clip.mp4")

	res := d.Apply(context.Background(), models.TransformRequest{Action: "sparkle", InputPath: in})
	require.Equal(t, models.TransformStatusSuccess, res.Status, res.Message)
	assert.Equal(t, OutputPath(in, "_processed"), res.OutputPath)
	assert.Equal(t, "sparkle", res.Action)
	assert.FileExists(t, res.OutputPath)

	require.Len(t, exec.specs, 1)
	assert.Empty(t, exec.specs[0].VideoFilters)
	assert.Equal(t, "libx264", exec.specs[0].Codec.Video)
}

func TestNormalizeZeroPeakWritesNothing(t *testing.T) {
	for _, action := range []string{models.ActionNormalizeAudio, models.ActionReduceGain, models.ActionEnhanceAudio} {
		t.Run(action, func(t *testing.T) {
			m := newFakeMedia()
			in := touch(t, "quiet.wav")
			m.audio[in] = mono(0, 0, 0, 0)
			d := newTestDispatcher(m, &fakeExecutor{}, nil)

			res := d.Apply(context.Background(), models.TransformRequest{Action: action, InputPath: in})
			assert.Equal(t, models.TransformStatusSuccess, res.Status)
			assert.Empty(t, res.OutputPath)
			assert.Equal(t, MessageNoSignal, res.Message)
			assert.Empty(t, m.encoded)
			assert.Equal(t, []string{"quiet.wav"}, dirEntries(t, filepath.Dir(in)))
		})
	}
}

func TestGainTargets(t *testing.T) {
	tests := []struct {
		action string
		peak   float64
	}{
		{models.ActionNormalizeAudio, 0.9},
		{models.ActionReduceGain, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			m := newFakeMedia()
			in := touch(t, "voice.wav")
			m.audio[in] = mono(0.1, -0.2, 0.05)
			d := newTestDispatcher(m, &fakeExecutor{}, nil)

			res := d.Apply(context.Background(), models.TransformRequest{Action: tt.action, InputPath: in})
			require.Equal(t, models.TransformStatusSuccess, res.Status, res.Message)
			assert.Equal(t, OutputPath(in, "_norm"), res.OutputPath)
			assert.FileExists(t, res.OutputPath)
			assert.NoFileExists(t, partialPath(res.OutputPath))

			require.Len(t, m.encoded, 1)
			assert.InDelta(t, tt.peak, dsp.Peak(m.encoded[0].buf.Samples), 1e-12)
			assert.Empty(t, m.encoded[0].opts.VideoSource)
		})
	}
}

func TestAudioOnVideoIsMuxedBack(t *testing.T) {
	m := newFakeMedia()
	in := touch(t, "clip.mp4")
	m.audio[in] = mono(0.2, 0.4)
	d := newTestDispatcher(m, &fakeExecutor{}, nil)

	res := d.Apply(context.Background(), models.TransformRequest{Action: models.ActionNormalizeAudio, InputPath: in})
	require.True(t, res.Succeeded(), res.Message)
	require.Len(t, m.encoded, 1)
	assert.Equal(t, in, m.encoded[0].opts.VideoSource)
}

func TestEncodeFailureLeavesNoOutput(t *testing.T) {
	m := newFakeMedia()
	in := touch(t, "voice.wav")
	m.audio[in] = mono(0.3, 0.1)
	m.encodeErr = models.ErrExternalTool
	d := newTestDispatcher(m, &fakeExecutor{}, nil)

	res := d.Apply(context.Background(), models.TransformRequest{Action: models.ActionNormalizeAudio, InputPath: in})
	assert.Equal(t, models.TransformStatusError, res.Status)
	assert.Equal(t, []string{"voice.wav"}, dirEntries(t, filepath.Dir(in)))
}
