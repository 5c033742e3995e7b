// Package logger provides structured logging for the coverage tool.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log levels.
type Level = zerolog.Level

// Log levels.
const (
	TraceLevel = zerolog.TraceLevel
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	zl zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      Level
	Pretty     bool // Use console writer (colored output)
	Output     io.Writer
	TimeFormat string
	Component  string // e.g. "coverage", "fetch", "parser"
}

// DefaultConfig returns a pretty info-level logger on stderr.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Pretty:     true,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// New creates a new logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
		}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		Logger().
		Level(cfg.Level)

	if cfg.Component != "" {
		zl = zl.With().Str("component", cfg.Component).Logger()
	}

	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) with(ctx zerolog.Context) *Logger {
	return &Logger{zl: ctx.Logger()}
}

// WithComponent returns a new logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with(l.zl.With().Str("component", component))
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(l.zl.With().Interface(key, value))
}

// WithSource returns a new logger tagged with an endpoint source name.
func (l *Logger) WithSource(source string) *Logger {
	return l.with(l.zl.With().Str("source", source))
}

// WithKey returns a new logger tagged with an endpoint key.
func (l *Logger) WithKey(key string) *Logger {
	return l.with(l.zl.With().Str("key", key))
}

// WithError returns a new logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return l.with(l.zl.With().Err(err))
}

// Trace logs a trace message.
func (l *Logger) Trace(msg string) {
	l.zl.Trace().Msg(msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// FetchEvent logs a source fetch or cache hit.
func (l *Logger) FetchEvent(source, url string, cached bool, size int, duration time.Duration) {
	l.zl.Info().
		Str("source", source).
		Str("url", url).
		Bool("cached", cached).
		Int("bytes", size).
		Dur("duration", duration).
		Msg("Fetched source")
}

// SourceEvent logs how many endpoints a source produced.
func (l *Logger) SourceEvent(source string, count int) {
	l.zl.Info().
		Str("source", source).
		Int("endpoints", count).
		Msg("Extracted endpoints")
}

// RenameEvent logs a key rename in one source.
func (l *Logger) RenameEvent(source, from, to, uri string) {
	l.zl.Info().
		Str("source", source).
		Str("from", from).
		Str("to", to).
		Str("uri", uri).
		Msg("Renamed endpoint")
}

// MismatchEvent logs one endpoint on which two sources disagree.
func (l *Logger) MismatchEvent(key, left, leftURI, right, rightURI string) {
	l.zl.Error().
		Str("key", key).
		Str(left, leftURI).
		Str(right, rightURI).
		Msg("Sources disagree")
}

// ErrorEvent logs a failed pipeline stage.
func (l *Logger) ErrorEvent(err error, source string, stage string) {
	event := l.WithError(err).zl.Error().Str("stage", stage)
	if source != "" {
		event = event.Str("source", source)
	}
	event.Msg("Stage failed")
}

// StatsEvent logs the run summary.
func (l *Logger) StatsEvent(stats map[string]interface{}) {
	event := l.zl.Info()
	for k, v := range stats {
		event = event.Interface(k, v)
	}
	event.Msg("Coverage statistics")
}
