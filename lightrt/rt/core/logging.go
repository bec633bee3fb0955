package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger is the logging surface shared by the bake stages.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", uint8(lv))
}

// DefaultLogger writes debug and info lines to one sink and warnings and
// errors to another, each line tagged "[prefix] LEVEL: ".
type DefaultLogger struct {
	debug  atomic.Bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

// NewWriterLogger logs to out and errOut with no timestamp.
func NewWriterLogger(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	return newLogger(log.New(out, "", 0), log.New(errOut, "", 0), prefix, debug)
}

// NewDefaultLogger logs to stdout and stderr with microsecond timestamps.
func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return newLogger(log.New(os.Stdout, "", flags), log.New(os.Stderr, "", flags), prefix, debug)
}

func newLogger(out, errOut *log.Logger, prefix string, debug bool) *DefaultLogger {
	l := &DefaultLogger{prefix: prefix, out: out, err: errOut}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool { return l.debug.Load() }

func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) logf(lv Level, format string, args ...any) {
	if lv == LevelDebug && !l.DebugEnabled() {
		return
	}
	sink := l.out
	if lv >= LevelWarn {
		sink = l.err
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		sink.Printf("%s: %s", lv, msg)
		return
	}
	sink.Printf("[%s] %s: %s", l.prefix, lv, msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

func (l *DefaultLogger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

func (l *DefaultLogger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

func (l *DefaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
