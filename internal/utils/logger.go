// internal/utils/logger.go

// Package utils provides shared utilities for the crawl pipeline,
// currently the leveled logger used by the orchestrator, the stores
// and the HTTP server.
package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger defines the interface for logging throughout the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a level name ("debug", "info", "warn", "error")
// to a LogLevel. Unknown names fall back to InfoLevel.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// StdLogger is a plain text logger writing to a single io.Writer.
type StdLogger struct {
	level  LogLevel
	out    io.Writer
	fields map[string]interface{}
	mu     sync.Mutex
}

// NewLogger creates a logger at InfoLevel writing to stderr.
func NewLogger() Logger {
	return NewLoggerWithLevel(InfoLevel)
}

// NewLoggerWithLevel creates a stderr logger with the specified level.
func NewLoggerWithLevel(level LogLevel) Logger {
	return &StdLogger{
		level:  level,
		out:    os.Stderr,
		fields: make(map[string]interface{}),
	}
}

// NewLoggerWithWriter creates a logger writing to the given writer.
// Used by tests to capture output.
func NewLoggerWithWriter(level LogLevel, out io.Writer) Logger {
	return &StdLogger{
		level:  level,
		out:    out,
		fields: make(map[string]interface{}),
	}
}

func (l *StdLogger) Debug(msg string) { l.log(DebugLevel, msg) }
func (l *StdLogger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...))
}
func (l *StdLogger) Info(msg string) { l.log(InfoLevel, msg) }
func (l *StdLogger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...))
}
func (l *StdLogger) Warn(msg string) { l.log(WarnLevel, msg) }
func (l *StdLogger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...))
}
func (l *StdLogger) Error(msg string) { l.log(ErrorLevel, msg) }
func (l *StdLogger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...))
}

// WithField returns a copy of the logger carrying an extra field on
// every subsequent message.
func (l *StdLogger) WithField(key string, value interface{}) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	return &StdLogger{
		level:  l.level,
		out:    l.out,
		fields: fields,
	}
}

func (l *StdLogger) log(level LogLevel, msg string) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	levelStr := [...]string{"DEBUG", "INFO", "WARN", "ERROR"}[level]
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	line := fmt.Sprintf("[%s] [%s] %s", timestamp, levelStr, msg)
	if len(l.fields) > 0 {
		line += " " + formatFields(l.fields)
	}

	fmt.Fprintln(l.out, line)
}

// formatFields renders fields deterministically so log lines are
// stable across runs.
func formatFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// NopLogger discards all messages. Handy as a default when a caller
// does not care about logging.
type NopLogger struct{}

func (NopLogger) Debug(string)                         {}
func (NopLogger) Debugf(string, ...interface{})        {}
func (NopLogger) Info(string)                          {}
func (NopLogger) Infof(string, ...interface{})         {}
func (NopLogger) Warn(string)                          {}
func (NopLogger) Warnf(string, ...interface{})         {}
func (NopLogger) Error(string)                         {}
func (NopLogger) Errorf(string, ...interface{})        {}
func (NopLogger) WithField(string, interface{}) Logger { return NopLogger{} }
