package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/aiva/internal/frame"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

func colorFrame(b, g, r uint8) frame.Frame {
	f := frame.New(8, 8)
	f.Fill(b, g, r)
	return f
}

func repeat(f frame.Frame, n int) []frame.Frame {
	out := make([]frame.Frame, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func TestDetectScenes(t *testing.T) {
	red := colorFrame(0, 0, 255)
	green := colorFrame(0, 255, 0)
	blue := colorFrame(255, 0, 0)

	var frames []frame.Frame
	frames = append(frames, repeat(red, 15)...)
	frames = append(frames, repeat(green, 3)...) // too soon after the cut at 15
	frames = append(frames, repeat(blue, 20)...)

	src := &fakeSource{
		info:   &media.MediaInfo{Width: 8, Height: 8, FrameRate: 10, HasVideo: true},
		frames: frames,
	}
	scenes, err := newTestEngine(src).DetectScenes(context.Background(), touch(t, "clip.mp4"))
	require.NoError(t, err)

	assert.Equal(t, []models.Scene{{Time: 1.5, Frame: 15}}, scenes)
}

func TestDetectScenesNoCuts(t *testing.T) {
	src := &fakeSource{
		info:   &media.MediaInfo{Width: 8, Height: 8, FrameRate: 30, HasVideo: true},
		frames: repeat(colorFrame(0, 0, 255), 40),
	}
	scenes, err := newTestEngine(src).DetectScenes(context.Background(), touch(t, "clip.mp4"))
	require.NoError(t, err)
	assert.NotNil(t, scenes)
	assert.Empty(t, scenes)
}

func TestDetectScenesMissingFile(t *testing.T) {
	_, err := newTestEngine(&fakeSource{}).DetectScenes(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDetectScenesRequiresFrameRate(t *testing.T) {
	src := &fakeSource{info: &media.MediaInfo{Width: 8, Height: 8, HasVideo: true}}
	_, err := newTestEngine(src).DetectScenes(context.Background(), touch(t, "clip.mp4"))
	assert.ErrorIs(t, err, models.ErrDecode)
}
