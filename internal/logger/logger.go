// Package logger provides structured logging for garagescan using zap.
//
// Logs go to stderr (or Config.Output) so JSON results on stdout stay
// machine readable. Provider adapters attach provider and call_id fields;
// image bytes and document text are never logged.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger with the fields garagescan attaches to every extraction
type Logger struct {
	*zap.SugaredLogger
	config *Config
	file   *os.File
}

// Config holds logger configuration options
type Config struct {
	// Level is the minimum log level to output (debug, info, warn, error)
	Level string

	// Format is "console" or "json"
	Format string

	// Output receives log entries; nil means stderr
	Output io.Writer

	// OutputPath is an additional file for log output
	OutputPath string

	EnableCaller     bool
	EnableStacktrace bool
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

func defaultConfig() *Config {
	return &Config{Level: "info", Format: "console", EnableStacktrace: true}
}

// New creates a logger from cfg; a nil cfg gives info-level console output on stderr
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		if cfg.Output == nil {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("invalid log format %q (must be console or json)", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(out)}

	l := &Logger{config: cfg}
	if cfg.OutputPath != "" {
		file, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.OutputPath, err)
		}
		l.file = file
		sinks = append(sinks, zapcore.AddSync(file))
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	l.SugaredLogger = zap.New(core, opts...).Sugar()
	return l, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{
		SugaredLogger: zap.NewNop().Sugar(),
		config:        &Config{Level: "error", Format: "console"},
	}
}

// Init replaces the global logger
func Init(cfg *Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	prev := defaultLogger
	defaultLogger = l
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Get returns the global logger, creating a default one on first use
func Get() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger, _ = New(nil)
	}
	return defaultLogger
}

// WithFields returns a logger with the key/value pairs attached
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.With(fields...), config: l.config}
}

// WithProvider attaches the provider name
func (l *Logger) WithProvider(provider string) *Logger {
	return l.WithFields("provider", provider)
}

// WithCallID attaches the extraction call id shared with debug events
func (l *Logger) WithCallID(callID string) *Logger {
	return l.WithFields("call_id", callID)
}

// WithTask attaches the extraction task kind (fuel or service)
func (l *Logger) WithTask(task string) *Logger {
	return l.WithFields("task", task)
}

func (l *Logger) WithOperation(operation string) *Logger {
	return l.WithFields("operation", operation)
}

func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}

// Sync flushes buffered entries. Syncing a terminal fails on some platforms, so that error is ignored.
func (l *Logger) Sync() error {
	err := l.SugaredLogger.Sync()
	if err != nil && l.config.Output == nil && l.file == nil {
		return nil
	}
	return err
}

// Close flushes and closes the log file, if any
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
}

// Package-level helpers on the global logger

func WithFields(fields ...interface{}) *Logger { return Get().WithFields(fields...) }
func WithProvider(provider string) *Logger     { return Get().WithProvider(provider) }
func WithCallID(callID string) *Logger         { return Get().WithCallID(callID) }
func WithTask(task string) *Logger             { return Get().WithTask(task) }
func WithOperation(operation string) *Logger   { return Get().WithOperation(operation) }
func WithError(err error) *Logger              { return Get().WithError(err) }

// Sync flushes the global logger
func Sync() error { return Get().Sync() }
