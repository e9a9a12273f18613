package overlay

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/autobright/autobright/internal/transition"
	"github.com/autobright/autobright/pkg/logger"
)

const (
	// MaxOpacity caps the overlay so the screen never goes fully black.
	MaxOpacity = 0.7
	// DefaultStopTimeout bounds how long Stop waits for surfaces to exit.
	DefaultStopTimeout = 5 * time.Second
)

// OpacityFor maps an overlay brightness percent to surface opacity:
// 100% is fully transparent, lower values darken up to MaxOpacity.
func OpacityFor(percent int) float64 {
	p := min(100, max(0, percent))
	return min(MaxOpacity, float64(100-p)/100)
}

func alphaOf(opacity float64) byte {
	return byte(math.Round(min(1, max(0, opacity)) * 255))
}

// roundAlpha snaps an opacity to what a layered window can show.
func roundAlpha(opacity float64) float64 {
	return float64(alphaOf(opacity)) / 255
}

// State is the lifecycle state of the surface set.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "stopped"
	}
}

type Options struct {
	// StopTimeout bounds Stop and surface creation.
	StopTimeout time.Duration
	Logger      logger.Logger
}

// Coordinator owns the overlay surface set.
type Coordinator struct {
	backend     Backend
	engine      *transition.Engine
	log         logger.Logger
	stopTimeout time.Duration

	mu      sync.Mutex
	changed *sync.Cond
	state   State
	workers map[string]*worker
	opacity float64
	// requests counts show and opacity requests. A fade out only stops the
	// overlay if none arrived since it began.
	requests uint64
}

// New creates a stopped Coordinator. Fades run on engine's overlay lane.
func New(b Backend, engine *transition.Engine, opts Options) *Coordinator {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	c := &Coordinator{
		backend:     b,
		engine:      engine,
		log:         logger.OrNop(opts.Logger),
		stopTimeout: opts.StopTimeout,
	}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// setState must be called with c.mu held.
func (c *Coordinator) setState(s State) {
	c.state = s
	c.changed.Broadcast()
}

// settle waits out Starting and Stopping. Caller must hold c.mu.
func (c *Coordinator) settle() {
	for c.state == Starting || c.state == Stopping {
		c.changed.Wait()
	}
}

func (c *Coordinator) aliveLocked() bool {
	if len(c.workers) == 0 {
		return false
	}
	for _, w := range c.workers {
		if !w.alive() {
			return false
		}
	}
	return true
}

// Start shows the overlay at percent. When the overlay is already running it
// only updates the opacity. With startInvisible the surfaces are created
// fully transparent, ready for a fade in.
func (c *Coordinator) Start(percent int, startInvisible bool) error {
	c.mu.Lock()
	c.requests++
	c.settle()
	if c.state == Running {
		if c.aliveLocked() {
			c.mu.Unlock()
			c.UpdateOpacity(percent)
			return nil
		}
		c.mu.Unlock()
		c.log.Warning("overlay surface lost, recreating the overlay")
		c.Stop()
		c.mu.Lock()
		c.settle()
		if c.state == Running {
			// another caller recreated it meanwhile
			c.mu.Unlock()
			c.UpdateOpacity(percent)
			return nil
		}
	}
	c.setState(Starting)
	c.mu.Unlock()

	initial := OpacityFor(percent)
	if startInvisible {
		initial = 0
	}
	workers, err := c.spawn(initial)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.setState(Stopped)
		return err
	}
	c.workers = workers
	c.opacity = initial
	c.setState(Running)
	c.log.Info("overlay started on %d display(s) at opacity %.2f", len(workers), initial)
	return nil
}

// spawn starts one worker per display. A display whose surface fails is
// skipped; only a set with no surface at all is an error.
func (c *Coordinator) spawn(opacity float64) (map[string]*worker, error) {
	displays, err := c.backend.Displays()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDisplays, err)
	}
	workers := make(map[string]*worker, len(displays))
	for _, d := range displays {
		if _, dup := workers[d.ID]; dup {
			c.log.Warning("duplicate display id %s, skipping", d.ID)
			continue
		}
		w, err := startWorker(c.backend, d, opacity, c.stopTimeout, c.log)
		if err != nil {
			c.log.Warning("overlay surface for %s: %v", d, err)
			continue
		}
		workers[d.ID] = w
	}
	if len(workers) == 0 {
		return nil, ErrNoDisplays
	}
	return workers, nil
}

// Stop closes every surface and waits up to the stop timeout for their
// workers to exit. It reports whether all of them exited in time; the
// overlay is Stopped either way. Stop on a stopped overlay is a no-op.
func (c *Coordinator) Stop() bool {
	return c.stop(0, false)
}

// stopAfterFade stops the overlay unless a request newer than seq arrived.
func (c *Coordinator) stopAfterFade(seq uint64) bool {
	return c.stop(seq, true)
}

func (c *Coordinator) request() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	return c.requests
}

func (c *Coordinator) stop(seq uint64, guarded bool) bool {
	c.mu.Lock()
	c.settle()
	if c.state != Running || (guarded && c.requests != seq) {
		c.mu.Unlock()
		return true
	}
	workers := c.workers
	c.workers = nil
	c.setState(Stopping)
	c.mu.Unlock()

	c.engine.Cancel(transition.Overlay)
	for id, w := range workers {
		if err := w.surface.Close(); err != nil {
			c.log.Warning("close overlay surface %s: %v", id, err)
		}
	}
	clean := true
	deadline := time.NewTimer(c.stopTimeout)
	defer deadline.Stop()
	for id, w := range workers {
		select {
		case <-w.done:
		case <-deadline.C:
			c.log.Warning("overlay surface %s did not exit within %s", id, c.stopTimeout)
			clean = false
		}
		if !clean {
			break
		}
	}

	c.mu.Lock()
	c.opacity = 0
	c.setState(Stopped)
	c.mu.Unlock()
	c.log.Info("overlay stopped")
	return clean
}

// apply sets opacity on every surface. Surfaces that fail are logged and
// skipped. It is a no-op unless the overlay is running.
func (c *Coordinator) apply(opacity float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return nil
	}
	for id, w := range c.workers {
		if err := w.surface.SetOpacity(opacity); err != nil {
			c.log.Warning("set opacity on %s: %v", id, err)
		}
	}
	c.opacity = opacity
	return nil
}

// UpdateOpacity applies percent immediately, superseding any fade.
func (c *Coordinator) UpdateOpacity(percent int) {
	c.request()
	if !c.IsRunning() {
		return
	}
	_ = c.engine.Apply(transition.Overlay, OpacityFor(percent), c.apply)
}

// SmoothUpdateOpacity fades to percent over d without blocking. A stopped
// overlay is started invisible first.
func (c *Coordinator) SmoothUpdateOpacity(ctx context.Context, percent int, d time.Duration) *transition.Handle {
	c.request()
	if !c.IsRunning() {
		if err := c.Start(percent, true); err != nil {
			return transition.Finished(err)
		}
	}
	return c.engine.Start(ctx, transition.Request{
		Channel:  transition.Overlay,
		From:     c.Opacity(),
		To:       OpacityFor(percent),
		Duration: d,
		Apply:    c.apply,
		Round:    roundAlpha,
	})
}

// SmoothStop fades the overlay out over d and then stops it. A newer
// overlay request during the fade cancels the stop.
func (c *Coordinator) SmoothStop(ctx context.Context, d time.Duration) *transition.Handle {
	if !c.IsRunning() {
		c.Stop()
		return transition.Finished(nil)
	}
	seq := c.request()
	return c.engine.Start(ctx, transition.Request{
		Channel:    transition.Overlay,
		From:       c.Opacity(),
		To:         0,
		Duration:   d,
		Apply:      c.apply,
		Round:      roundAlpha,
		OnComplete: func() { c.stopAfterFade(seq) },
	})
}

// IsRunning reports whether the surface set exists and every surface's
// worker is still alive.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Running && c.aliveLocked()
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Opacity is the opacity shared by all surfaces, 0 when stopped.
func (c *Coordinator) Opacity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opacity
}

// Displays lists the displays currently covered, ordered by id.
func (c *Coordinator) Displays() []Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Display, 0, len(c.workers))
	for _, w := range c.workers {
		out = append(out, w.display)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Backend is the backend surfaces are created with.
func (c *Coordinator) Backend() Backend { return c.backend }
