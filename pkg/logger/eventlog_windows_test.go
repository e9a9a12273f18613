//go:build windows

package logger

import (
	"errors"
	"sync"
	"testing"
)

type mockEventLogWriter struct {
	mu       sync.Mutex
	calls    map[uint32][]string
	closeErr error
	closed   bool
}

func newMockEventLogWriter() *mockEventLogWriter {
	return &mockEventLogWriter{calls: make(map[uint32][]string)}
}

func (m *mockEventLogWriter) record(eid uint32, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[eid] = append(m.calls[eid], msg)
	return nil
}

func (m *mockEventLogWriter) Info(eid uint32, msg string) error    { return m.record(eid, msg) }
func (m *mockEventLogWriter) Warning(eid uint32, msg string) error { return m.record(eid, msg) }
func (m *mockEventLogWriter) Error(eid uint32, msg string) error   { return m.record(eid, msg) }
func (m *mockEventLogWriter) Close() error {
	m.closed = true
	return m.closeErr
}

func TestEventLogger_EventIDs(t *testing.T) {
	w := newMockEventLogWriter()
	l := NewEventLoggerWithWriter(w)

	l.Info("brightness %d%%", 40)
	l.Warning("save failed")
	l.Error("overlay: %s", "no displays")

	if got := w.calls[EventIDInfo]; len(got) != 1 || got[0] != "brightness 40%" {
		t.Errorf("unexpected info calls: %v", got)
	}
	if got := w.calls[EventIDWarning]; len(got) != 1 || got[0] != "save failed" {
		t.Errorf("unexpected warning calls: %v", got)
	}
	if got := w.calls[EventIDError]; len(got) != 1 || got[0] != "overlay: no displays" {
		t.Errorf("unexpected error calls: %v", got)
	}
}

func TestEventLogger_Close(t *testing.T) {
	w := newMockEventLogWriter()
	w.closeErr = errors.New("handle invalid")
	l := NewEventLoggerWithWriter(w)
	if err := l.Close(); err == nil {
		t.Fatal("expected close error to propagate")
	}
	if !w.closed {
		t.Error("writer should be closed")
	}
}
