package logger

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
)

func TestStandardLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		call   func(l Logger)
		prefix string
		msg    string
	}{
		{"info", func(l Logger) { l.Info("test message %d", 123) }, "[INFO]", "test message 123"},
		{"warning", func(l Logger) { l.Warning("warning message %s", "test") }, "[WARNING]", "warning message test"},
		{"error", func(l Logger) { l.Error("error message: %v", "failed") }, "[ERROR]", "error message: failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.call(NewStandardLogger(log.New(buf, "", 0)))
			out := buf.String()
			if !strings.Contains(out, tt.prefix) {
				t.Errorf("expected %s prefix, got: %s", tt.prefix, out)
			}
			if !strings.Contains(out, tt.msg) {
				t.Errorf("expected message content, got: %s", out)
			}
		})
	}
}

func TestComponentLogger_Prefix(t *testing.T) {
	mock := NewMockLogger()
	l := WithComponent(mock, "overlay")
	l.Info("started %d surfaces", 2)
	l.Warning("surface %s failed", "DISPLAY1")

	if got := mock.Infos(); len(got) != 1 || got[0] != "[overlay] started 2 surfaces" {
		t.Errorf("unexpected infos: %v", got)
	}
	if got := mock.Warnings(); len(got) != 1 || got[0] != "[overlay] surface DISPLAY1 failed" {
		t.Errorf("unexpected warnings: %v", got)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if mock.Closed() {
		t.Error("component logger must not close its parent")
	}
}

func TestDebug_GatedByEnv(t *testing.T) {
	mock := NewMockLogger()

	t.Setenv(DebugEnv, "")
	Debug(mock, "hidden")
	if len(mock.Infos()) != 0 {
		t.Fatalf("expected no debug output, got %v", mock.Infos())
	}

	t.Setenv(DebugEnv, "1")
	Debug(mock, "visible %d", 1)
	if got := mock.Infos(); len(got) != 1 || got[0] != "[DEBUG] visible 1" {
		t.Fatalf("unexpected infos: %v", got)
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(*NopLogger); !ok {
		t.Error("OrNop(nil) should return a NopLogger")
	}
	mock := NewMockLogger()
	if OrNop(mock) != Logger(mock) {
		t.Error("OrNop should return a non-nil logger unchanged")
	}
}

func TestMockLogger_ConcurrentUse(t *testing.T) {
	mock := NewMockLogger()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				mock.Info("worker %d step %d", n, j)
			}
		}(i)
	}
	wg.Wait()
	if got := len(mock.Infos()); got != 400 {
		t.Errorf("expected 400 info calls, got %d", got)
	}
}

func TestMultiLogger_BroadcastsToAll(t *testing.T) {
	mock1 := NewMockLogger()
	mock2 := NewMockLogger()
	multi := NewMultiLogger(mock1, mock2)

	multi.Info("info msg")
	multi.Warning("warn msg")
	multi.Error("error msg")

	for i, m := range []*MockLogger{mock1, mock2} {
		if got := m.Infos(); len(got) != 1 || got[0] != "info msg" {
			t.Errorf("logger %d: unexpected infos %v", i, got)
		}
		if got := m.Warnings(); len(got) != 1 || got[0] != "warn msg" {
			t.Errorf("logger %d: unexpected warnings %v", i, got)
		}
		if got := m.Errors(); len(got) != 1 || got[0] != "error msg" {
			t.Errorf("logger %d: unexpected errors %v", i, got)
		}
	}
}

type failingCloseLogger struct {
	NopLogger
	err error
}

func (f *failingCloseLogger) Close() error { return f.err }

func TestMultiLogger_CloseReturnsFirstError(t *testing.T) {
	first := errors.New("first")
	mock := NewMockLogger()
	multi := NewMultiLogger(&failingCloseLogger{err: first}, &failingCloseLogger{err: errors.New("second")}, mock)

	if err := multi.Close(); !errors.Is(err, first) {
		t.Fatalf("expected first error, got %v", err)
	}
	if !mock.Closed() {
		t.Error("all loggers should be closed even after an error")
	}
}

func TestMultiLogger_EmptyLoggers(t *testing.T) {
	multi := NewMultiLogger()
	multi.Info("test")
	multi.Warning("test")
	multi.Error("test")
	if err := multi.Close(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}
