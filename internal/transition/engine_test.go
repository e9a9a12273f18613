package transition

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/autobright/autobright/pkg/logger"
)

// recorder collects applied values tagged by source.
type recorder struct {
	mu     sync.Mutex
	values []tagged
}

type tagged struct {
	tag   string
	value float64
}

func (r *recorder) apply(tag string) ApplyFunc {
	return func(v float64) error {
		r.mu.Lock()
		r.values = append(r.values, tagged{tag, v})
		r.mu.Unlock()
		return nil
	}
}

func (r *recorder) snapshot() []tagged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tagged(nil), r.values...)
}

func fastEngine(opts Options) *Engine {
	opts.StepInterval = time.Millisecond
	opts.MinDuration = 2 * time.Millisecond
	return NewEngine(opts)
}

func TestEngine_Steps(t *testing.T) {
	e := NewEngine(Options{})
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 2},
		{50 * time.Millisecond, 2},
		{200 * time.Millisecond, 2},
		{250 * time.Millisecond, 2},
		{time.Second, 10},
		{3 * time.Second, 30},
	}
	for _, tt := range tests {
		if got := e.Steps(tt.d); got != tt.want {
			t.Errorf("Steps(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestEngine_FinalApplyIsExactTarget(t *testing.T) {
	tests := []struct {
		name     string
		from, to float64
		round    func(float64) float64
	}{
		{"up integer", 10, 73, math.Round},
		{"down integer", 90, 5, math.Round},
		{"fractional no rounding", 0, 1.0 / 3.0, nil},
		{"opacity alpha rounding", 0.7, 0.2, func(v float64) float64 { return math.Round(v*255) / 255 }},
		{"equal endpoints", 42, 42, math.Round},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := fastEngine(Options{})
			rec := &recorder{}
			err := e.Run(context.Background(), Request{
				Channel:  Brightness,
				From:     tt.from,
				To:       tt.to,
				Duration: 40 * time.Millisecond,
				Apply:    rec.apply("a"),
				Round:    tt.round,
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			got := rec.snapshot()
			if len(got) == 0 {
				t.Fatal("no values applied")
			}
			if last := got[len(got)-1].value; last != tt.to {
				t.Errorf("final apply = %v, want exactly %v", last, tt.to)
			}
			for i := 1; i < len(got); i++ {
				prev, cur := got[i-1].value, got[i].value
				if tt.to >= tt.from && cur < prev || tt.to < tt.from && cur > prev {
					t.Errorf("step %d not monotonic toward target: %v -> %v", i, prev, cur)
				}
			}
		})
	}
}

func TestEngine_SkipsUnchangedRoundedSteps(t *testing.T) {
	e := fastEngine(Options{})
	rec := &recorder{}
	// 10 steps from 50 to 52 round to 50,50,51,51,51,51,51,52,52,52.
	err := e.Run(context.Background(), Request{
		Channel:  Brightness,
		From:     50,
		To:       52,
		Duration: 10 * time.Millisecond,
		Apply:    rec.apply("a"),
		Round:    math.Round,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var vals []float64
	for _, v := range rec.snapshot() {
		vals = append(vals, v.value)
	}
	want := []float64{50, 51, 52, 52}
	if len(vals) != len(want) {
		t.Fatalf("applied %v, want %v", vals, want)
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("applied %v, want %v", vals, want)
		}
	}
}

func TestEngine_SupersededRunNeverAppliesAfterSuccessor(t *testing.T) {
	e := NewEngine(Options{StepInterval: 2 * time.Millisecond, MinDuration: 2 * time.Millisecond})
	rec := &recorder{}

	first := e.Start(context.Background(), Request{
		Channel:  Overlay,
		From:     0,
		To:       100,
		Duration: 400 * time.Millisecond,
		Apply:    rec.apply("first"),
	})
	time.Sleep(20 * time.Millisecond)

	second := e.Start(context.Background(), Request{
		Channel:  Overlay,
		From:     100,
		To:       0,
		Duration: 20 * time.Millisecond,
		Apply:    rec.apply("second"),
	})

	if err := first.Wait(); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first run: expected ErrSuperseded, got %v", err)
	}
	if err := second.Wait(); err != nil {
		t.Fatalf("second run: %v", err)
	}

	seenSecond := false
	for _, v := range rec.snapshot() {
		if v.tag == "second" {
			seenSecond = true
			continue
		}
		if seenSecond {
			t.Fatal("superseded run applied a value after its successor started applying")
		}
	}
	got := rec.snapshot()
	if last := got[len(got)-1]; last.tag != "second" || last.value != 0 {
		t.Errorf("last apply = %+v, want second/0", last)
	}
	for _, v := range got {
		if v.tag == "first" && v.value == 100 {
			t.Error("superseded run must not complete its final apply")
		}
	}
}

func TestEngine_ChannelsAreIndependent(t *testing.T) {
	e := fastEngine(Options{})
	rec := &recorder{}
	a := e.Start(context.Background(), Request{Channel: Brightness, From: 0, To: 10, Duration: 20 * time.Millisecond, Apply: rec.apply("b")})
	b := e.Start(context.Background(), Request{Channel: Overlay, From: 0, To: 10, Duration: 20 * time.Millisecond, Apply: rec.apply("o")})
	if err := a.Wait(); err != nil {
		t.Errorf("brightness run: %v", err)
	}
	if err := b.Wait(); err != nil {
		t.Errorf("overlay run: %v", err)
	}
}

func TestEngine_ApplyErrorsDoNotAbort(t *testing.T) {
	mock := logger.NewMockLogger()
	e := fastEngine(Options{Logger: mock})
	var calls atomic.Int32
	err := e.Run(context.Background(), Request{
		Channel:  Brightness,
		From:     0,
		To:       5,
		Duration: 5 * time.Millisecond,
		Apply: func(float64) error {
			calls.Add(1)
			return errors.New("hardware busy")
		},
	})
	if err != nil {
		t.Fatalf("Run should complete despite step failures, got %v", err)
	}
	if calls.Load() != 6 {
		t.Errorf("expected 5 steps + final apply = 6 calls, got %d", calls.Load())
	}
	if len(mock.Warnings()) != 6 {
		t.Errorf("expected each failure logged, got %d warnings", len(mock.Warnings()))
	}
}

func TestEngine_CancelSkipsFinalApplyAndOnComplete(t *testing.T) {
	e := NewEngine(Options{StepInterval: 5 * time.Millisecond, MinDuration: 5 * time.Millisecond})
	rec := &recorder{}
	var completed atomic.Bool
	h := e.Start(context.Background(), Request{
		Channel:    Overlay,
		From:       0,
		To:         1,
		Duration:   500 * time.Millisecond,
		Apply:      rec.apply("a"),
		OnComplete: func() { completed.Store(true) },
	})
	time.Sleep(15 * time.Millisecond)
	if !e.Active(Overlay) {
		t.Fatal("expected overlay channel to be active")
	}
	e.Cancel(Overlay)
	if err := h.Wait(); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if completed.Load() {
		t.Error("OnComplete must not run for a cancelled transition")
	}
	for _, v := range rec.snapshot() {
		if v.value == 1 {
			t.Error("cancelled run applied its target")
		}
	}
	if e.Active(Overlay) {
		t.Error("channel should be idle after cancel")
	}
}

func TestEngine_OnCompleteAfterFinalApply(t *testing.T) {
	e := fastEngine(Options{})
	rec := &recorder{}
	var finalSeen bool
	err := e.Run(context.Background(), Request{
		Channel:  Overlay,
		From:     0.5,
		To:       0,
		Duration: 5 * time.Millisecond,
		Apply:    rec.apply("a"),
		OnComplete: func() {
			got := rec.snapshot()
			finalSeen = len(got) > 0 && got[len(got)-1].value == 0
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !finalSeen {
		t.Error("OnComplete should run after the final apply")
	}
}

func TestEngine_ManualApplySupersedesRun(t *testing.T) {
	e := NewEngine(Options{StepInterval: 5 * time.Millisecond, MinDuration: 5 * time.Millisecond})
	rec := &recorder{}
	h := e.Start(context.Background(), Request{
		Channel:  Brightness,
		From:     0,
		To:       100,
		Duration: 500 * time.Millisecond,
		Apply:    rec.apply("ramp"),
	})
	time.Sleep(12 * time.Millisecond)

	if err := e.Apply(Brightness, 30, rec.apply("manual")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := h.Wait(); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ramp to be superseded, got %v", err)
	}
	got := rec.snapshot()
	if last := got[len(got)-1]; last.tag != "manual" || last.value != 30 {
		t.Errorf("last apply = %+v, want manual/30", last)
	}
}

func TestEngine_ParentContextCancel(t *testing.T) {
	e := NewEngine(Options{StepInterval: 5 * time.Millisecond, MinDuration: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	h := e.Start(ctx, Request{Channel: Brightness, From: 0, To: 100, Duration: time.Second, Apply: func(float64) error { return nil }})
	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("run did not observe parent cancellation")
	}
	if !errors.Is(h.Err(), ErrSuperseded) {
		t.Errorf("expected ErrSuperseded, got %v", h.Err())
	}
}

func TestEngine_OnStepReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var events []StepEvent
	e := fastEngine(Options{OnStep: func(ev StepEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}})
	if err := e.Run(context.Background(), Request{Channel: Brightness, From: 0, To: 4, Duration: 4 * time.Millisecond, Apply: func(float64) error { return nil }}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 5 {
		t.Fatalf("expected 5 step events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Step != last.Steps || last.Value != 4 || last.Channel != Brightness {
		t.Errorf("unexpected final event %+v", last)
	}
}

func TestFinished(t *testing.T) {
	sentinel := errors.New("no displays")
	h := Finished(sentinel)
	select {
	case <-h.Done():
	default:
		t.Fatal("Finished handle should be done")
	}
	if !errors.Is(h.Wait(), sentinel) {
		t.Errorf("Wait = %v, want %v", h.Wait(), sentinel)
	}
}
