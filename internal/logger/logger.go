// Package logger provides the logging interface shared by every radar
// component. Loggers are created once by the launching command and handed
// to constructors; library packages never reach for a global.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// writerLogger implements Logger on top of a standard library log.Logger.
// Debug messages are only printed when debug is enabled or RADAR_DEBUG is set.
type writerLogger struct {
	out    *log.Logger
	prefix string
	debug  bool
}

// New creates a logger writing timestamped lines to w.
// The prefix is prepended to all messages (e.g., "[server]" or "[engine]").
func New(w io.Writer, prefix string, debug bool) Logger {
	return &writerLogger{
		out:    log.New(w, "", log.LstdFlags),
		prefix: prefix,
		debug:  debug || os.Getenv("RADAR_DEBUG") != "",
	}
}

// NewEnvLogger creates a stderr logger that respects the RADAR_DEBUG
// environment variable.
func NewEnvLogger(prefix string) Logger {
	return New(os.Stderr, prefix, false)
}

// Open creates a logger appending to the file at path. An empty path logs
// to stderr. The returned closer must be called on shutdown.
func Open(path, prefix string, debug bool) (Logger, io.Closer, error) {
	if path == "" {
		return New(os.Stderr, prefix, debug), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return New(f, prefix, debug), f, nil
}

// With returns a logger that shares l's output but uses its own prefix.
// Loggers not created by this package are returned unchanged.
func With(l Logger, prefix string) Logger {
	if wl, ok := l.(*writerLogger); ok {
		return &writerLogger{out: wl.out, prefix: prefix, debug: wl.debug}
	}
	return l
}

func (l *writerLogger) printf(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = l.prefix + " " + level + msg
	} else {
		msg = level + msg
	}
	l.out.Print(msg)
}

func (l *writerLogger) Debug(format string, args ...interface{}) {
	if l.debug {
		l.printf("DEBUG: ", format, args...)
	}
}

func (l *writerLogger) Info(format string, args ...interface{}) {
	l.printf("", format, args...)
}

func (l *writerLogger) Warn(format string, args ...interface{}) {
	l.printf("WARN: ", format, args...)
}

func (l *writerLogger) Error(format string, args ...interface{}) {
	l.printf("ERROR: ", format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing. It is safe for use by
// several goroutines, which matters because the server and client loops log
// from their own goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// Messages returns a copy of the captured messages.
func (l *BufferLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains reports whether any captured message contains substr.
func (l *BufferLogger) Contains(substr string) bool {
	for _, m := range l.Messages() {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}
