package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/therealutkarshpriyadarshi/aiva/internal/frame"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
	"github.com/therealutkarshpriyadarshi/aiva/pkg/models"
)

// FrameSource yields decoded BGR frames in display order
type FrameSource interface {
	// Next returns io.EOF once the stream is exhausted
	Next() (frame.Frame, error)
	Close() error
}

// FrameSink accepts BGR frames for encoding
type FrameSink interface {
	Write(f frame.Frame) error
	// Close flushes and finalises the output
	Close() error
	// Abort stops the encoder and leaves any partial output behind
	Abort()
}

// VideoWriterOptions holds options for encoding a frame stream
type VideoWriterOptions struct {
	OutputPath string
	Width      int
	Height     int
	FrameRate  float64
	// AudioSource, when set, contributes its first audio track if any
	AudioSource string
}

type frameReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr *bytes.Buffer
	width  int
	height int
	tail   int
	cancel context.CancelFunc
	done   bool
	waited bool
	// err is the decode failure seen at end of stream, if any
	err error
}

// OpenFrameReader starts decoding the video stream of inputPath as raw bgr24
func (f *FFmpeg) OpenFrameReader(ctx context.Context, inputPath string, info *MediaInfo) (FrameSource, error) {
	if info == nil || !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w: no video stream in %s", models.ErrDecode, inputPath)
	}

	ctx, cancel := context.WithCancel(ctx)
	args := []string{
		"-hide_banner",
		"-v", "error",
		"-i", inputPath,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &frameReader{
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, info.Width*info.Height*3),
		stderr: stderr,
		width:  info.Width,
		height: info.Height,
		tail:   f.cfg.StderrTail,
		cancel: cancel,
	}, nil
}

// Next returns io.EOF only when the decoder exited cleanly on a frame
// boundary. A non-zero exit or a partial trailing frame is an ErrDecode.
func (r *frameReader) Next() (frame.Frame, error) {
	if r.done {
		if r.err != nil {
			return frame.Frame{}, r.err
		}
		return frame.Frame{}, io.EOF
	}
	fr := frame.New(r.width, r.height)
	n, err := io.ReadFull(r.reader, fr.Pix)
	if err == nil {
		return fr, nil
	}

	r.done = true
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		r.err = fmt.Errorf("%w: reading frame: %v", models.ErrDecode, err)
		return frame.Frame{}, r.err
	}
	if werr := r.wait(); werr != nil {
		r.err = werr
		return frame.Frame{}, r.err
	}
	if n > 0 {
		r.err = fmt.Errorf("%w: truncated frame (%d of %d bytes)", models.ErrDecode, n, len(fr.Pix))
		return frame.Frame{}, r.err
	}
	return frame.Frame{}, io.EOF
}

// wait reaps the decoder once the stream has been drained
func (r *frameReader) wait() error {
	r.waited = true
	err := r.cmd.Wait()
	r.cancel()
	metrics.RecordExternalToolRun("ffmpeg", err == nil)
	if err != nil {
		return fmt.Errorf("%w: decoder failed: %v, stderr: %s", models.ErrDecode, err, tail(r.stderr.String(), r.tail))
	}
	return nil
}

// Close stops the decoder. After a drained stream it reports the decode
// failure, if any; a decoder stopped early is not an error.
func (r *frameReader) Close() error {
	r.done = true
	if r.waited {
		return r.err
	}
	r.waited = true
	r.cancel()
	_ = r.stdout.Close()
	err := r.cmd.Wait()
	metrics.RecordExternalToolRun("ffmpeg", true)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed on close before the stream ended
		return nil
	}
	return err
}

type frameWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	width  int
	height int
	tail   int
	cancel context.CancelFunc
}

// OpenFrameWriter starts an encoder that reads raw bgr24 frames on stdin
func (f *FFmpeg) OpenFrameWriter(ctx context.Context, opts VideoWriterOptions) (FrameSink, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("invalid frame size")
	}
	fps := opts.FrameRate
	if fps <= 0 {
		fps = 30
	}

	ctx, cancel := context.WithCancel(ctx)
	args := []string{
		"-hide_banner",
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
	}
	if opts.AudioSource != "" {
		args = append(args, "-i", opts.AudioSource, "-map", "0:v:0", "-map", "1:a?", "-c:a", f.audioCodec(), "-shortest")
	}
	args = append(args, f.videoEncodeArgs()...)
	args = append(args, opts.OutputPath)

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	f.logger.Debug().Str("output", opts.OutputPath).Int("width", opts.Width).Int("height", opts.Height).Msg("frame writer started")

	return &frameWriter{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		width:  opts.Width,
		height: opts.Height,
		tail:   f.cfg.StderrTail,
		cancel: cancel,
	}, nil
}

func (f *FFmpeg) videoEncodeArgs() []string {
	codec := f.cfg.VideoCodec
	if codec == "" {
		codec = "libx264"
	}
	preset := f.cfg.Preset
	if preset == "" {
		preset = "fast"
	}
	crf := f.cfg.CRF
	if crf <= 0 {
		crf = 23
	}
	return []string{
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", codec,
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
	}
}

func (w *frameWriter) Write(fr frame.Frame) error {
	if err := fr.Validate(); err != nil {
		return err
	}
	if fr.Width != w.width || fr.Height != w.height {
		return fmt.Errorf("frame size %dx%d does not match writer %dx%d", fr.Width, fr.Height, w.width, w.height)
	}
	if _, err := w.stdin.Write(fr.Pix); err != nil {
		return fmt.Errorf("%w: writing frame: %v, stderr: %s", models.ErrExternalTool, err, tail(w.stderr.String(), w.tail))
	}
	return nil
}

func (w *frameWriter) Close() error {
	defer w.cancel()
	if err := w.stdin.Close(); err != nil {
		return fmt.Errorf("failed to close encoder input: %w", err)
	}
	err := w.cmd.Wait()
	metrics.RecordExternalToolRun("ffmpeg", err == nil)
	if err != nil {
		return fmt.Errorf("%w: encode failed: %v, stderr: %s", models.ErrExternalTool, err, tail(w.stderr.String(), w.tail))
	}
	return nil
}

func (w *frameWriter) Abort() {
	_ = w.stdin.Close()
	w.cancel()
	_ = w.cmd.Wait()
	metrics.RecordExternalToolRun("ffmpeg", false)
}

// ReadFrameAt decodes the single frame with the given 0-based index
func (f *FFmpeg) ReadFrameAt(ctx context.Context, inputPath string, info *MediaInfo, index int) (frame.Frame, error) {
	if info == nil || !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return frame.Frame{}, fmt.Errorf("%w: no video stream in %s", models.ErrDecode, inputPath)
	}

	args := []string{
		"-hide_banner",
		"-v", "error",
		"-i", inputPath,
		"-map", "0:v:0",
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", index),
		"-vsync", "0",
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.RecordExternalToolRun("ffmpeg", err == nil)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: frame read failed: %v, stderr: %s", models.ErrDecode, err, tail(stderr.String(), f.cfg.StderrTail))
	}

	size := info.Width * info.Height * 3
	if stdout.Len() < size {
		return frame.Frame{}, fmt.Errorf("%w: frame %d not available", models.ErrDecode, index)
	}
	fr := frame.New(info.Width, info.Height)
	copy(fr.Pix, stdout.Bytes()[:size])
	return fr, nil
}
