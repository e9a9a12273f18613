package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/autobright/autobright/internal/schedule"
	"github.com/autobright/autobright/pkg/logger"
)

const (
	DefaultPollInterval  = time.Second
	DefaultTriggerWindow = 30 * time.Second
	DefaultDebounce      = 60 * time.Second
	DefaultStopTimeout   = 5 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("schedule monitor already running")
	// ErrStillStopping is returned by Initialize while the loop from a timed
	// out Stop has not exited yet.
	ErrStillStopping = errors.New("previous schedule monitor loop still running")
)

// State is the monitor lifecycle state.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Source supplies the entries to evaluate. *schedule.Store satisfies it.
type Source interface {
	Enabled() []schedule.Entry
}

// TriggerFunc receives a due entry. It is called from the monitor goroutine
// and must hand off any long-running work.
type TriggerFunc func(schedule.Entry)

type Options struct {
	// Now defaults to time.Now.
	Now           func() time.Time
	PollInterval  time.Duration
	TriggerWindow time.Duration
	Debounce      time.Duration
	StopTimeout   time.Duration
	Logger        logger.Logger
}

func (o *Options) setDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.TriggerWindow <= 0 {
		o.TriggerWindow = DefaultTriggerWindow
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
}

// Monitor fires schedule entries as the wall clock reaches them.
type Monitor struct {
	src       Source
	onTrigger TriggerFunc
	opts      Options
	log       logger.Logger

	mu          sync.Mutex
	state       State
	cancel      context.CancelFunc
	done        chan struct{}
	lastTrigger time.Time
	triggered   bool
}

// New creates a stopped monitor.
func New(src Source, onTrigger TriggerFunc, opts Options) *Monitor {
	opts.setDefaults()
	return &Monitor{
		src:       src,
		onTrigger: onTrigger,
		opts:      opts,
		log:       logger.OrNop(opts.Logger),
	}
}

// Initialize starts the poll loop. The loop ends when ctx is cancelled or
// Stop is called.
func (m *Monitor) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Running {
		return ErrAlreadyRunning
	}
	if m.done != nil {
		select {
		case <-m.done:
		default:
			return ErrStillStopping
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.state = Running
	go m.run(ctx, done)
	return nil
}

// Stop cancels the loop and waits up to StopTimeout for it to exit. It
// reports whether the loop exited in time; the monitor is Stopped either way.
// Calling Stop on a stopped monitor is a no-op.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	if m.state == Stopped {
		m.mu.Unlock()
		return true
	}
	cancel, done := m.cancel, m.done
	m.state = Stopped
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	select {
	case <-done:
		return true
	case <-time.After(m.opts.StopTimeout):
		m.log.Warning("schedule monitor did not stop within %s", m.opts.StopTimeout)
		return false
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastTrigger returns the wall-clock time of the most recent trigger.
func (m *Monitor) LastTrigger() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTrigger, m.triggered
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	logger.Debug(m.log, "schedule monitor started, polling every %s", m.opts.PollInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Debug(m.log, "schedule monitor stopped")
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick evaluates the schedule once at the current clock reading and fires
// at most one entry. It returns the fired entry.
func (m *Monitor) Tick() (schedule.Entry, bool) {
	now := m.opts.Now()
	e, ok := m.due(now)
	if !ok {
		return schedule.Entry{}, false
	}
	m.log.Info("schedule triggered: %s", e)
	if m.onTrigger != nil {
		m.fire(e)
	}
	return e, true
}

// due picks the entry to fire at now and records the trigger.
func (m *Monitor) due(now time.Time) (schedule.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.triggered && now.Sub(m.lastTrigger) < m.opts.Debounce {
		return schedule.Entry{}, false
	}
	e, ok := Match(m.src.Enabled(), schedule.Of(now), m.opts.TriggerWindow)
	if !ok {
		return schedule.Entry{}, false
	}
	m.lastTrigger = now
	m.triggered = true
	return e, true
}

// fire shields the loop from a panicking callback.
func (m *Monitor) fire(e schedule.Entry) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("schedule trigger for %s panicked: %v", e.Time.Short(), r)
		}
	}()
	m.onTrigger(e)
}

// Match returns the first enabled entry in entries whose time lies at most
// window before now, wrapping at midnight.
func Match(entries []schedule.Entry, now schedule.TimeOfDay, window time.Duration) (schedule.Entry, bool) {
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		if e.Time.Since(now) < window {
			return e, true
		}
	}
	return schedule.Entry{}, false
}

// Next returns the enabled entry that runs soonest after now.
func (m *Monitor) Next(now time.Time) (schedule.Entry, time.Time, bool) {
	var (
		best     schedule.Entry
		bestTime time.Time
		found    bool
	)
	for _, e := range m.src.Enabled() {
		at, err := schedule.NextRun(e, now)
		if err != nil {
			m.log.Warning("failed to compute next run of %s: %v", e, err)
			continue
		}
		if !found || at.Before(bestTime) {
			best, bestTime, found = e, at, true
		}
	}
	return best, bestTime, found
}
