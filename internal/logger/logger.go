package logger

import (
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// Logger defines common logging interface for all services
type Logger interface {
    Info(msg string, keysAndValues ...interface{})
    Error(msg string, keysAndValues ...interface{})
    Debug(msg string, keysAndValues ...interface{})
    Warn(msg string, keysAndValues ...interface{})
}

// ZapLogger is the production Logger, a thin wrapper over a zap SugaredLogger.
type ZapLogger struct {
    sugar *zap.SugaredLogger
}

// New builds a logger for service. Production gets JSON output, everything
// else gets the human-readable console encoder.
func New(service string, production bool, level string) (*ZapLogger, error) {
    cfg := zap.NewDevelopmentConfig()
    if production {
        cfg = zap.NewProductionConfig()
    }
    cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

    z, err := cfg.Build()
    if err != nil {
        return nil, err
    }
    return &ZapLogger{sugar: z.Sugar().With("service", service)}, nil
}

// ParseLevel maps LOG_LEVEL values onto zap levels, defaulting to info.
func ParseLevel(level string) zapcore.Level {
    switch strings.ToUpper(strings.TrimSpace(level)) {
    case "DEBUG":
        return zapcore.DebugLevel
    case "WARN", "WARNING":
        return zapcore.WarnLevel
    case "ERROR":
        return zapcore.ErrorLevel
    default:
        return zapcore.InfoLevel
    }
}

func (l *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
    l.sugar.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
    l.sugar.Errorw(msg, keysAndValues...)
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
    l.sugar.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
    l.sugar.Warnw(msg, keysAndValues...)
}

// With returns a child logger carrying the given fields on every entry.
func (l *ZapLogger) With(keysAndValues ...interface{}) *ZapLogger {
    return &ZapLogger{sugar: l.sugar.With(keysAndValues...)}
}

// ForComponent tags every entry from l with the component name when l
// supports fields, and returns l unchanged otherwise.
func ForComponent(l Logger, component string) Logger {
    if zl, ok := l.(*ZapLogger); ok {
        return zl.With("component", component)
    }
    return l
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() {
    _ = l.sugar.Sync()
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
    return &NoOpLogger{}
}
