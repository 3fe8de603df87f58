// Package logger provides structured logging for page automation.
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
	Pretty     bool // Colored console output instead of JSON lines
	Output     io.Writer
	TimeFormat string
	Component  string // e.g. "page", "browser", "ocr"
}

// DefaultConfig returns console logging at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Pretty:     true,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// New creates a logger.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).Level(cfg.Level).With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	return &Logger{zl: ctx.Logger()}
}

// NewDefault creates a logger with DefaultConfig.
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// NewJSON creates a logger writing JSON lines to stderr.
func NewJSON(level Level) *Logger {
	return New(Config{Level: level})
}

func (l *Logger) with(add func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: add(l.zl.With()).Logger()}
}

// WithComponent tags entries with the emitting component.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("component", component) })
}

// WithField adds one field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

// WithFields adds several fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

// WithURL adds the page address.
func (l *Logger) WithURL(url string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("url", url) })
}

// WithLocator adds an element locator.
func (l *Logger) WithLocator(by, value string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("by", by).Str("value", value) })
}

// WithOperation adds the page operation name.
func (l *Logger) WithOperation(op string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str("operation", op) })
}

// WithError adds an error.
func (l *Logger) WithError(err error) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Err(err) })
}

// WithDuration adds a duration.
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Dur("duration", d) })
}

func (l *Logger) Debug(msg string)                          { l.zl.Debug().Msg(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Info(msg string)                           { l.zl.Info().Msg(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warn(msg string)                           { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string)                          { l.zl.Error().Msg(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.zl.Error().Msgf(format, args...) }

// Event starts an entry at level for callers that add their own fields.
func (l *Logger) Event(level Level) *zerolog.Event {
	return l.zl.WithLevel(level)
}

// ActionEvent records a completed page action at debug level.
func (l *Logger) ActionEvent(operation, target string, duration time.Duration) {
	l.zl.Debug().
		Str("operation", operation).
		Str("target", target).
		Dur("duration", duration).
		Msg("Page action")
}

// ErrorEvent records a failed page action.
func (l *Logger) ErrorEvent(err error, target, operation string) {
	l.zl.Error().
		Err(err).
		Str("operation", operation).
		Str("target", target).
		Msg("Page action failed")
}

// CaptchaEvent records a captcha reading.
func (l *Logger) CaptchaEvent(kind string, result interface{}, dpi float64) {
	l.zl.Info().
		Str("kind", kind).
		Interface("result", result).
		Float64("dpi", dpi).
		Msg("Captcha read")
}

// StatsEvent records session statistics.
func (l *Logger) StatsEvent(stats map[string]interface{}) {
	l.zl.Info().Fields(stats).Msg("Session statistics")
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.zl = l.zl.Level(level)
}

// ParseLevel parses "debug", "info", "warn" or "error".
func ParseLevel(s string) (Level, error) {
	return zerolog.ParseLevel(s)
}

var global = NewDefault()

// Global returns the process-wide logger.
func Global() *Logger { return global }

// SetGlobal replaces the process-wide logger.
func SetGlobal(l *Logger) { global = l }

// Debug logs through the global logger.
func Debug(msg string) { global.Debug(msg) }

// Debugf logs through the global logger.
func Debugf(format string, args ...interface{}) { global.Debugf(format, args...) }

// Info logs through the global logger.
func Info(msg string) { global.Info(msg) }

// Infof logs through the global logger.
func Infof(format string, args ...interface{}) { global.Infof(format, args...) }

// Warn logs through the global logger.
func Warn(msg string) { global.Warn(msg) }

// Error logs through the global logger.
func Error(msg string) { global.Error(msg) }
