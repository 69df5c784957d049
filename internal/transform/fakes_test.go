package transform

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/dsp"
	"github.com/therealutkarshpriyadarshi/aiva/internal/frame"
	"github.com/therealutkarshpriyadarshi/aiva/internal/media"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

type encodeCall struct {
	buf  dsp.Buffer
	opts media.EncodeAudioOptions
}

type fakeMedia struct {
	mu sync.Mutex

	audio     map[string]dsp.Buffer
	audioErr  error
	encodeErr error
	encoded   []encodeCall

	info      *media.MediaInfo
	frames    []frame.Frame
	writeErr  error
	written   []frame.Frame
	writerOpt media.VideoWriterOptions
	aborted   bool
	closed    bool
	readerOut bool
	// readerErr replaces io.EOF once the frames run out
	readerErr error
	// readerCloseErr is what the frame source reports on Close
	readerCloseErr error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{audio: map[string]dsp.Buffer{}}
}

func (m *fakeMedia) ExtractMediaInfo(ctx context.Context, path string) (*media.MediaInfo, error) {
	if m.info == nil {
		return nil, errors.New("no info")
	}
	return m.info, nil
}

func (m *fakeMedia) DecodeAudio(ctx context.Context, path string, maxFrames int) (dsp.Buffer, error) {
	if m.audioErr != nil {
		return dsp.Buffer{}, m.audioErr
	}
	buf, ok := m.audio[path]
	if !ok {
		return dsp.Buffer{}, models.ErrDecode
	}
	return buf, nil
}

func (m *fakeMedia) EncodeAudio(ctx context.Context, buf dsp.Buffer, opts media.EncodeAudioOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoded = append(m.encoded, encodeCall{buf: buf, opts: opts})
	if m.encodeErr != nil {
		_ = os.WriteFile(opts.OutputPath, []byte("partial"), 0o644)
		return m.encodeErr
	}
	return os.WriteFile(opts.OutputPath, []byte("audio"), 0o644)
}

func (m *fakeMedia) OpenFrameReader(ctx context.Context, path string, info *media.MediaInfo) (media.FrameSource, error) {
	m.readerOut = true
	return &fakeReader{frames: m.frames, owner: m}, nil
}

func (m *fakeMedia) OpenFrameWriter(ctx context.Context, opts media.VideoWriterOptions) (media.FrameSink, error) {
	m.writerOpt = opts
	if err := os.WriteFile(opts.OutputPath, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	return &fakeWriter{owner: m}, nil
}

type fakeReader struct {
	frames []frame.Frame
	pos    int
	owner  *fakeMedia
}

func (r *fakeReader) Next() (frame.Frame, error) {
	if r.pos >= len(r.frames) {
		if r.owner.readerErr != nil {
			return frame.Frame{}, r.owner.readerErr
		}
		return frame.Frame{}, io.EOF
	}
	f := r.frames[r.pos]
	r.pos++
	return f, nil
}

func (r *fakeReader) Close() error {
	r.owner.readerOut = false
	return r.owner.readerCloseErr
}

type fakeWriter struct {
	owner *fakeMedia
}

func (w *fakeWriter) Write(f frame.Frame) error {
	if w.owner.writeErr != nil {
		return w.owner.writeErr
	}
	w.owner.written = append(w.owner.written, f)
	return nil
}

func (w *fakeWriter) Close() error {
	w.owner.closed = true
	return nil
}

func (w *fakeWriter) Abort() {
	w.owner.aborted = true
}

// fakeExecutor records specs and writes a placeholder output on success
type fakeExecutor struct {
	mu     sync.Mutex
	specs  []media.CommandSpec
	result media.RunResult
	err    error
	onRun  func(spec media.CommandSpec)
}

func (e *fakeExecutor) Run(ctx context.Context, spec media.CommandSpec) (media.RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.specs = append(e.specs, spec)
	if e.err != nil {
		return media.RunResult{}, e.err
	}
	if e.onRun != nil {
		e.onRun(spec)
	}
	if e.result.Success && spec.Output != "" {
		if err := os.WriteFile(spec.Output, []byte("rendered"), 0o644); err != nil {
			return media.RunResult{}, err
		}
	}
	return e.result, nil
}

type fakeTranscriber struct {
	transcript *models.Transcript
	err        error
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, path string) (*models.Transcript, error) {
	return f.transcript, f.err
}

func newTestDispatcher(m *fakeMedia, e *fakeExecutor, tr Transcriber) *Dispatcher {
	deps := Deps{Media: m, Transcriber: tr}
	if e != nil {
		deps.Executor = e
	}
	return NewDispatcher(deps, config.Default().Media, zerolog.Nop())
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("input"), 0o644))
	return path
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func mono(samples ...float64) dsp.Buffer {
	return dsp.Buffer{Samples: samples, SampleRate: 1000, Channels: 1}
}

func solid(w, h int, v uint8) frame.Frame {
	f := frame.New(w, h)
	f.Fill(v, v, v)
	return f
}
