package brightness

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/autobright/autobright/internal/transition"
	"github.com/autobright/autobright/pkg/logger"
)

// Controller serializes access to a Port through the brightness lane of a
// transition engine: a manual Set supersedes a running ramp, and a new ramp
// supersedes the previous one.
type Controller struct {
	port   Port
	engine *transition.Engine
	log    logger.Logger

	mu      sync.Mutex
	last    int
	known   bool
	lastErr error
}

// NewController wires port to engine.
func NewController(port Port, engine *transition.Engine, l logger.Logger) *Controller {
	return &Controller{port: port, engine: engine, log: logger.OrNop(l)}
}

// Current reads the hardware value.
func (c *Controller) Current() (int, error) {
	v, err := c.port.Get()
	if err != nil {
		return 0, err
	}
	c.remember(v)
	return v, nil
}

// Last returns the last value read or written, if any.
func (c *Controller) Last() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.known
}

func (c *Controller) remember(v int) {
	c.mu.Lock()
	c.last, c.known = v, true
	c.mu.Unlock()
}

// LastError is the result of the most recent hardware write.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) apply(v float64) error {
	p := Clamp(int(math.Round(v)))
	err := c.port.Set(p)
	c.mu.Lock()
	c.lastErr = err
	if err == nil {
		c.last, c.known = p, true
	}
	c.mu.Unlock()
	return err
}

// Set writes percent immediately, cancelling any ramp in flight.
func (c *Controller) Set(percent int) error {
	return c.engine.Apply(transition.Brightness, float64(Clamp(percent)), c.apply)
}

// Ramp moves brightness to percent over d without blocking. The start
// value is read from hardware; if that fails the last known value is used,
// and with nothing known the target is written directly. A non-positive d
// behaves like Set.
func (c *Controller) Ramp(ctx context.Context, percent int, d time.Duration) *transition.Handle {
	target := Clamp(percent)
	if d <= 0 {
		return transition.Finished(c.Set(target))
	}
	from, err := c.Current()
	if err != nil {
		last, ok := c.Last()
		if !ok {
			c.log.Warning("read brightness before ramp: %v; applying %d%% directly", err, target)
			return transition.Finished(c.Set(target))
		}
		logger.Debug(c.log, "read brightness before ramp: %v; starting from last value %d%%", err, last)
		from = last
	}
	return c.engine.Start(ctx, transition.Request{
		Channel:  transition.Brightness,
		From:     float64(from),
		To:       float64(target),
		Duration: d,
		Apply:    c.apply,
		Round:    math.Round,
	})
}
