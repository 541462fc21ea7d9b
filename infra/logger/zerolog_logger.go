package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the process wide log output.
type Options struct {
	// Level is a zerolog level name ("debug", "info", ...). Empty keeps info.
	Level string
	// Format forces "console" or "json". Empty falls back to APP_ENV.
	Format string
	// File, when set, sends logs to a rotating file instead of stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	outMu  sync.RWMutex
	output io.Writer = os.Stdout
	format string
)

// Configure applies opts to every logger created afterwards. It returns a
// closer for the file writer, if any.
func Configure(opts Options) (io.Closer, error) {
	lvl := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	zerolog.SetGlobalLevel(lvl)

	outMu.Lock()
	defer outMu.Unlock()
	format = strings.ToLower(opts.Format)
	if opts.File == "" {
		output = os.Stdout
		return nopCloser{}, nil
	}
	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	output = lj
	return lj, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger writing to the configured output.
// All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	return newZerolog(component, currentWriter())
}

func newZerolog(component string, w io.Writer) *ZerologLogger {
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func currentWriter() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	f := format
	if f == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		f = "console"
	}
	if f == "console" {
		return zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}
	return output
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
