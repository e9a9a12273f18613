package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/autobright/autobright/internal/schedule"
	"github.com/autobright/autobright/pkg/logger"
)

// fakeSource is a fixed list of entries.
type fakeSource []schedule.Entry

func (f fakeSource) Enabled() []schedule.Entry {
	out := make([]schedule.Entry, 0, len(f))
	for _, e := range f {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// fakeClock is a settable clock safe for use from the monitor goroutine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// recorder collects fired entries.
type recorder struct {
	mu    sync.Mutex
	fired []schedule.Entry
}

func (r *recorder) trigger(e schedule.Entry) {
	r.mu.Lock()
	r.fired = append(r.fired, e)
	r.mu.Unlock()
}

func (r *recorder) entries() []schedule.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schedule.Entry(nil), r.fired...)
}

func day(h, m, s int) time.Time {
	return time.Date(2024, 6, 1, h, m, s, 0, time.Local)
}

func entry(id int, tod schedule.TimeOfDay, b, o int) schedule.Entry {
	return schedule.Entry{ID: id, Time: tod, Brightness: b, OverlayBrightness: o, Enabled: true}
}

func TestMonitor_TwoEntriesOneMinuteApart(t *testing.T) {
	src := fakeSource{
		entry(1, schedule.At(8, 0, 0), 80, 100),
		entry(2, schedule.At(8, 1, 0), 50, 60),
	}
	clock := &fakeClock{}
	rec := &recorder{}
	m := New(src, rec.trigger, Options{Now: clock.Now})

	steps := []struct {
		at     time.Time
		wantID int
	}{
		{day(8, 0, 5), 1},
		{day(8, 0, 35), 0},
		{day(8, 1, 5), 2},
	}
	for _, s := range steps {
		clock.Set(s.at)
		e, ok := m.Tick()
		if s.wantID == 0 {
			if ok {
				t.Errorf("tick at %s: unexpected trigger of %d", s.at.Format("15:04:05"), e.ID)
			}
			continue
		}
		if !ok || e.ID != s.wantID {
			t.Errorf("tick at %s: got (%d, %v), want entry %d", s.at.Format("15:04:05"), e.ID, ok, s.wantID)
		}
	}

	fired := rec.entries()
	if len(fired) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(fired))
	}
	if fired[0].Brightness != 80 || fired[0].OverlayBrightness != 100 {
		t.Errorf("first trigger carried %+v", fired[0])
	}
	if fired[1].Brightness != 50 || fired[1].OverlayBrightness != 60 {
		t.Errorf("second trigger carried %+v", fired[1])
	}
	last, ok := m.LastTrigger()
	if !ok || !last.Equal(day(8, 1, 5)) {
		t.Errorf("LastTrigger = %v, %v", last, ok)
	}
}

func TestMonitor_MatchWindow(t *testing.T) {
	src := fakeSource{entry(1, schedule.At(12, 0, 0), 40, 100)}
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"exactly on time", day(12, 0, 0), true},
		{"inside window", day(12, 0, 29), true},
		{"window end is exclusive", day(12, 0, 30), false},
		{"before entry", day(11, 59, 59), false},
		{"long after", day(13, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(src, nil, Options{Now: func() time.Time { return tt.at }})
			if _, ok := m.Tick(); ok != tt.want {
				t.Errorf("Tick at %s = %v, want %v", tt.at.Format("15:04:05"), ok, tt.want)
			}
		})
	}
}

func TestMonitor_DebounceIsGlobal(t *testing.T) {
	src := fakeSource{
		entry(1, schedule.At(9, 0, 0), 70, 100),
		entry(2, schedule.At(9, 0, 20), 30, 50),
	}
	clock := &fakeClock{}
	rec := &recorder{}
	m := New(src, rec.trigger, Options{Now: clock.Now})

	clock.Set(day(9, 0, 1))
	m.Tick()
	for s := 20; s < 50; s++ {
		clock.Set(day(9, 0, s))
		m.Tick()
	}
	fired := rec.entries()
	if len(fired) != 1 || fired[0].ID != 1 {
		t.Fatalf("second entry inside the debounce must be suppressed, fired %+v", fired)
	}
}

func TestMonitor_OneEntryPerTick(t *testing.T) {
	src := fakeSource{
		entry(1, schedule.At(7, 0, 0), 60, 100),
		entry(2, schedule.At(7, 0, 10), 65, 100),
	}
	rec := &recorder{}
	m := New(src, rec.trigger, Options{Now: func() time.Time { return day(7, 0, 15) }})
	e, ok := m.Tick()
	if !ok || e.ID != 1 {
		t.Fatalf("expected the earliest matching entry, got %+v %v", e, ok)
	}
	if n := len(rec.entries()); n != 1 {
		t.Errorf("expected exactly one trigger, got %d", n)
	}
}

func TestMonitor_DisabledEntriesNeverFire(t *testing.T) {
	e := entry(1, schedule.At(6, 0, 0), 60, 100)
	e.Enabled = false
	if _, ok := Match([]schedule.Entry{e}, schedule.At(6, 0, 1), DefaultTriggerWindow); ok {
		t.Error("disabled entry matched")
	}
}

func TestMonitor_MidnightWrap(t *testing.T) {
	src := fakeSource{entry(1, schedule.At(23, 59, 50), 20, 40)}
	m := New(src, nil, Options{Now: func() time.Time { return day(0, 0, 5) }})
	if _, ok := m.Tick(); !ok {
		t.Error("entry at 23:59:50 should fire at 00:00:05")
	}
}

func TestMonitor_PanickingTriggerDoesNotStopLoop(t *testing.T) {
	src := fakeSource{entry(1, schedule.At(10, 0, 0), 50, 100)}
	mock := logger.NewMockLogger()
	m := New(src, func(schedule.Entry) { panic("boom") }, Options{
		Now:    func() time.Time { return day(10, 0, 1) },
		Logger: mock,
	})
	if _, ok := m.Tick(); !ok {
		t.Fatal("expected trigger")
	}
	if len(mock.Errors()) != 1 {
		t.Errorf("expected the panic to be logged, got %v", mock.Errors())
	}
}

func TestMonitor_LoopFiresAndStops(t *testing.T) {
	src := fakeSource{entry(1, schedule.At(18, 0, 0), 35, 80)}
	fired := make(chan schedule.Entry, 4)
	m := New(src, func(e schedule.Entry) { fired <- e }, Options{
		Now:          func() time.Time { return day(18, 0, 2) },
		PollInterval: 10 * time.Millisecond,
	})
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Initialize(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("second Initialize = %v, want ErrAlreadyRunning", err)
	}
	select {
	case e := <-fired:
		if e.ID != 1 {
			t.Errorf("fired %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("monitor loop never fired")
	}
	if !m.Stop() {
		t.Error("Stop did not join the loop")
	}
	if m.State() != Stopped {
		t.Errorf("state = %s after Stop", m.State())
	}
	// frozen clock + debounce: the entry fired exactly once
	if len(fired) != 0 {
		t.Errorf("entry refired inside the debounce window")
	}
}

func TestMonitor_RestartWaitsForStuckLoop(t *testing.T) {
	src := fakeSource{entry(1, schedule.At(7, 0, 0), 60, 100)}
	entered := make(chan struct{})
	release := make(chan struct{})
	m := New(src, func(schedule.Entry) {
		close(entered)
		<-release
	}, Options{
		Now:          func() time.Time { return day(7, 0, 1) },
		PollInterval: 5 * time.Millisecond,
		StopTimeout:  20 * time.Millisecond,
	})
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor loop never fired")
	}
	if m.Stop() {
		t.Fatal("Stop should time out while the trigger blocks")
	}
	if err := m.Initialize(context.Background()); err != ErrStillStopping {
		t.Fatalf("Initialize with a live loop = %v, want ErrStillStopping", err)
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := m.Initialize(context.Background())
		if err == nil {
			break
		}
		if err != ErrStillStopping || time.Now().After(deadline) {
			t.Fatalf("Initialize after the loop exited = %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if !m.Stop() {
		t.Error("Stop did not join the restarted loop")
	}
}

func TestMonitor_StopWhenStoppedIsNoop(t *testing.T) {
	m := New(fakeSource{}, nil, Options{})
	if !m.Stop() {
		t.Error("Stop on a stopped monitor should report success")
	}
}

func TestMonitor_ParentContextEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := New(fakeSource{}, nil, Options{PollInterval: 5 * time.Millisecond})
	if err := m.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if !m.Stop() {
		t.Error("loop should already have exited")
	}
}

func TestMonitor_Next(t *testing.T) {
	src := fakeSource{
		entry(1, schedule.At(7, 0, 0), 60, 100),
		entry(2, schedule.At(21, 0, 0), 30, 50),
	}
	m := New(src, nil, Options{})
	tests := []struct {
		now    time.Time
		wantID int
		want   time.Time
	}{
		{day(6, 0, 0), 1, day(7, 0, 0)},
		{day(12, 0, 0), 2, day(21, 0, 0)},
		{day(22, 0, 0), 1, day(7, 0, 0).AddDate(0, 0, 1)},
	}
	for _, tt := range tests {
		e, at, ok := m.Next(tt.now)
		if !ok || e.ID != tt.wantID || !at.Equal(tt.want) {
			t.Errorf("Next(%s) = %d at %v (%v), want %d at %v", tt.now.Format("15:04"), e.ID, at, ok, tt.wantID, tt.want)
		}
	}
	if _, _, ok := New(fakeSource{}, nil, Options{}).Next(day(1, 0, 0)); ok {
		t.Error("empty schedule has no next run")
	}
}
