package transition

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/autobright/autobright/pkg/logger"
)

const (
	// DefaultStepInterval is the cadence between two applied steps.
	DefaultStepInterval = 100 * time.Millisecond
	// DefaultMinDuration is the floor applied to requested durations.
	DefaultMinDuration = 200 * time.Millisecond
)

// ErrSuperseded is reported by a run that was replaced by a newer request
// on the same channel, or cancelled through Engine.Cancel.
var ErrSuperseded = errors.New("transition superseded")

// Channel identifies an independent output lane.
type Channel string

const (
	Brightness Channel = "brightness"
	Overlay    Channel = "overlay"
)

// ApplyFunc writes one value to the output.
type ApplyFunc func(value float64) error

// Request describes one transition.
type Request struct {
	Channel  Channel
	From     float64
	To       float64
	Duration time.Duration
	Apply    ApplyFunc
	// Round maps a value to what the output can represent. Consecutive steps
	// rounding to the same value are applied once. nil applies every step.
	Round func(float64) float64
	// OnComplete runs after the final apply, only if the run was not
	// superseded by then.
	OnComplete func()
}

// StepEvent is reported to Options.OnStep after each successful apply.
type StepEvent struct {
	Channel Channel `json:"channel"`
	Value   float64 `json:"value"`
	Step    int     `json:"step"`
	Steps   int     `json:"steps"`
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	StepInterval time.Duration
	MinDuration  time.Duration
	Logger       logger.Logger
	// OnStep observes applied steps. It is called from the run goroutine
	// and must not block.
	OnStep func(StepEvent)
}

type lane struct {
	// applyMu serializes every apply on the channel.
	applyMu sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
}

// Engine owns the per-channel lanes.
type Engine struct {
	stepInterval time.Duration
	minDuration  time.Duration
	log          logger.Logger
	onStep       func(StepEvent)

	mu    sync.Mutex
	lanes map[Channel]*lane
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	if opts.StepInterval <= 0 {
		opts.StepInterval = DefaultStepInterval
	}
	if opts.MinDuration <= 0 {
		opts.MinDuration = DefaultMinDuration
	}
	return &Engine{
		stepInterval: opts.StepInterval,
		minDuration:  opts.MinDuration,
		log:          logger.OrNop(opts.Logger),
		onStep:       opts.OnStep,
		lanes:        make(map[Channel]*lane),
	}
}

// Steps returns the number of interpolation steps used for d.
func (e *Engine) Steps(d time.Duration) int {
	if d < e.minDuration {
		d = e.minDuration
	}
	return max(1, int(d/e.stepInterval))
}

func (e *Engine) laneFor(ch Channel) *lane {
	l, ok := e.lanes[ch]
	if !ok {
		l = &lane{}
		e.lanes[ch] = l
	}
	return l
}

// claim supersedes whatever runs on ch and returns the new generation.
// Caller must hold e.mu.
func (e *Engine) claim(ch Channel, cancel context.CancelFunc) (*lane, uint64) {
	l := e.laneFor(ch)
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	return l, l.gen
}

func (e *Engine) current(l *lane, gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return l.gen == gen
}

// release clears the lane's cancel func if gen still owns it.
func (e *Engine) release(l *lane, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l.gen == gen {
		l.cancel = nil
	}
}

// Cancel supersedes any transition on ch without starting a new one.
// It does not wait for the run to exit.
func (e *Engine) Cancel(ch Channel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.claim(ch, nil)
}

// Active reports whether a transition is in flight on ch.
func (e *Engine) Active(ch Channel) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.lanes[ch]
	return ok && l.cancel != nil
}

// Apply supersedes any transition on ch and writes value once. Manual
// adjustments go through here so they follow the same ordering as runs.
func (e *Engine) Apply(ch Channel, value float64, apply ApplyFunc) error {
	e.mu.Lock()
	l, gen := e.claim(ch, nil)
	e.mu.Unlock()

	l.applyMu.Lock()
	defer l.applyMu.Unlock()
	if !e.current(l, gen) {
		return ErrSuperseded
	}
	return apply(value)
}

// Start launches req in the background and returns immediately.
func (e *Engine) Start(ctx context.Context, req Request) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	l, gen := e.claim(req.Channel, cancel)
	e.mu.Unlock()

	h := &Handle{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(h.done)
		defer cancel()
		h.err = e.run(runCtx, l, gen, req)
	}()
	return h
}

// Run executes req on the calling goroutine.
func (e *Engine) Run(ctx context.Context, req Request) error {
	return e.Start(ctx, req).Wait()
}

func (e *Engine) run(ctx context.Context, l *lane, gen uint64, req Request) error {
	defer e.release(l, gen)

	d := req.Duration
	if d < e.minDuration {
		d = e.minDuration
	}
	steps := e.Steps(d)
	delay := d / time.Duration(steps)
	round := req.Round
	if round == nil {
		round = func(v float64) float64 { return v }
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	last := math.NaN()
	for i := 1; i <= steps; i++ {
		v := round(req.From + (req.To-req.From)*(float64(i)/float64(steps)))
		if v != last {
			if err := e.step(ctx, l, gen, req, v, i, steps); err != nil {
				return err
			}
			last = v
		}
		if i > 1 {
			timer.Reset(delay)
		}
		select {
		case <-ctx.Done():
			return e.cancelled(ctx)
		case <-timer.C:
		}
	}

	if err := e.step(ctx, l, gen, req, req.To, steps, steps); err != nil {
		return err
	}
	if req.OnComplete != nil && e.current(l, gen) {
		req.OnComplete()
	}
	return nil
}

// step applies one value unless the run has been superseded. Apply errors
// are logged and swallowed.
func (e *Engine) step(ctx context.Context, l *lane, gen uint64, req Request, v float64, i, steps int) error {
	l.applyMu.Lock()
	if ctx.Err() != nil || !e.current(l, gen) {
		l.applyMu.Unlock()
		return e.cancelled(ctx)
	}
	err := req.Apply(v)
	l.applyMu.Unlock()

	if err != nil {
		e.log.Warning("%s step %d/%d (%.3f) failed: %v", req.Channel, i, steps, v, err)
		return nil
	}
	if e.onStep != nil {
		e.onStep(StepEvent{Channel: req.Channel, Value: v, Step: i, Steps: steps})
	}
	return nil
}

func (e *Engine) cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ErrSuperseded
}

// Handle tracks one started transition.
type Handle struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Done is closed when the run exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run exits and returns its result: nil on
// completion, ErrSuperseded when replaced or cancelled.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the run's result once Done is closed, nil before that.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Cancel stops this run at its next step boundary.
func (h *Handle) Cancel() {
	h.cancel()
}

// Finished returns an already completed Handle carrying err.
func Finished(err error) *Handle {
	h := &Handle{done: make(chan struct{}), cancel: func() {}, err: err}
	close(h.done)
	return h
}
