package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps the zerolog logger shared by the api and worker binaries
type Logger struct {
	logger zerolog.Logger
}

// Config mirrors the logging section of the service config
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr or a file path
	TimeFormat string // console only, defaults to RFC3339
}

// NewLogger builds the process logger and installs it as the global zerolog logger
func NewLogger(cfg Config) (*Logger, error) {
	w, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "console" {
		w = consoleWriter(w, cfg.TimeFormat)
	}

	l := New(w, cfg.Level)
	log.Logger = l.logger
	return l, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

func consoleWriter(w io.Writer, timeFormat string) io.Writer {
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}

// New returns a JSON logger on w. Unknown or empty levels fall back to info.
func New(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Caller().Logger()
	return &Logger{logger: zl}
}

// Zerolog exposes the underlying logger to packages that take a zerolog.Logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

// Component tags log lines with the subsystem that wrote them
func (l *Logger) Component(name string) zerolog.Logger {
	return l.logger.With().Str("component", name).Logger()
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// WithWorkerID stamps every line with worker_id
func (l *Logger) WithWorkerID(workerID string) *Logger {
	return &Logger{logger: l.logger.With().Str("worker_id", workerID).Logger()}
}

func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// ErrorWithErr logs msg at error level with err attached
func (l *Logger) ErrorWithErr(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// Fatalf logs at fatal level and exits the process
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal().Msgf(format, args...)
}
