package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is the logging surface the render passes depend on.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// SlogLogger adapts a slog text handler to Logger. The debug level can be
// flipped at runtime through a shared LevelVar.
type SlogLogger struct {
	mu     sync.Mutex
	level  *slog.LevelVar
	logger *slog.Logger
}

func NewLogger(prefix string, debug bool) *SlogLogger {
	return NewLoggerTo(os.Stderr, prefix, debug)
}

func NewLoggerTo(w io.Writer, prefix string, debug bool) *SlogLogger {
	level := new(slog.LevelVar)
	if debug {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	if prefix != "" {
		logger = logger.With("component", prefix)
	}
	return &SlogLogger{level: level, logger: logger}
}

func (l *SlogLogger) DebugEnabled() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

func (l *SlogLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enabled {
		l.level.Set(slog.LevelDebug)
	} else {
		l.level.Set(slog.LevelInfo)
	}
}

func (l *SlogLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Warnf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func NewNopLogger() Logger                              { return nopLogger{} }
func (nopLogger) DebugEnabled() bool                    { return false }
func (nopLogger) SetDebug(enabled bool)                 {}
func (nopLogger) Debugf(format string, args ...any)     {}
func (nopLogger) Infof(format string, args ...any)      {}
func (nopLogger) Warnf(format string, args ...any)      {}
func (nopLogger) Errorf(format string, args ...any)     {}
