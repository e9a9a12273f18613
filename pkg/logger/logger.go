// Package logger provides the logging interface shared by every autobright
// component. The daemon logs to the console by default and can additionally
// mirror messages to the Windows Event Log.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// DebugEnv enables Debug output when set to "1".
const DebugEnv = "AUTOBRIGHT_DEBUG"

// Logger defines the interface for leveled logging across autobright.
// Implementations must be safe for concurrent use: transitions and overlay
// workers log from their own goroutines.
type Logger interface {
	// Info logs an informational message (e.g., "schedule 08:00 triggered").
	Info(format string, args ...interface{})

	// Warning logs a recoverable failure (e.g., "save schedules: permission denied").
	Warning(format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})

	// Close releases resources held by the logger.
	// Safe to call multiple times.
	Close() error
}

// DebugEnabled reports whether AUTOBRIGHT_DEBUG=1.
func DebugEnabled() bool {
	return os.Getenv(DebugEnv) == "1"
}

// Debug logs through l with an [DEBUG] marker only when debug mode is on.
func Debug(l Logger, format string, args ...interface{}) {
	if l == nil || !DebugEnabled() {
		return
	}
	l.Info("[DEBUG] "+format, args...)
}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// StandardLogger wraps the stdlib *log.Logger for console/file output.
type StandardLogger struct {
	logger *log.Logger
}

// NewStandardLogger creates a logger that wraps the given *log.Logger.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l}
}

// Info logs an informational message with [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning message with [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error message with [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close is a no-op for StandardLogger.
func (s *StandardLogger) Close() error {
	return nil
}

// ComponentLogger prefixes every message with a component tag such as
// "[overlay]", so a single console stream stays readable.
type ComponentLogger struct {
	parent Logger
	prefix string
}

// WithComponent returns a Logger that tags messages with name.
func WithComponent(parent Logger, name string) *ComponentLogger {
	return &ComponentLogger{parent: OrNop(parent), prefix: "[" + name + "] "}
}

func (c *ComponentLogger) Info(format string, args ...interface{}) {
	c.parent.Info(c.prefix+format, args...)
}

func (c *ComponentLogger) Warning(format string, args ...interface{}) {
	c.parent.Warning(c.prefix+format, args...)
}

func (c *ComponentLogger) Error(format string, args ...interface{}) {
	c.parent.Error(c.prefix+format, args...)
}

// Close does not close the parent; the parent's owner does.
func (c *ComponentLogger) Close() error {
	return nil
}

// NopLogger is a logger that discards all messages.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

// MultiLogger broadcasts log messages to multiple Logger backends.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all provided backends in order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Info(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Info(format, args...)
	}
}

func (m *MultiLogger) Warning(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Warning(format, args...)
	}
}

func (m *MultiLogger) Error(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Error(format, args...)
	}
}

// Close closes all backends and returns the first error encountered.
func (m *MultiLogger) Close() error {
	var firstErr error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MockLogger records all log calls for verification in tests.
type MockLogger struct {
	mu       sync.Mutex
	infos    []string
	warnings []string
	errors   []string
	closed   bool
}

// NewMockLogger creates a new MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Infos returns a copy of the recorded Info messages.
func (m *MockLogger) Infos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.infos...)
}

// Warnings returns a copy of the recorded Warning messages.
func (m *MockLogger) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warnings...)
}

// Errors returns a copy of the recorded Error messages.
func (m *MockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

// Closed reports whether Close was called.
func (m *MockLogger) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*ComponentLogger)(nil)
	_ Logger = (*NopLogger)(nil)
	_ Logger = (*MultiLogger)(nil)
	_ Logger = (*MockLogger)(nil)
)
