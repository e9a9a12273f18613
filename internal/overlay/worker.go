package overlay

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autobright/autobright/pkg/logger"
)

var errExitedEarly = errors.New("surface exited before it was ready")

// worker owns one surface and the OS thread it runs on.
type worker struct {
	display Display
	surface Surface
	done    chan struct{}
}

// startWorker creates the surface for d on a dedicated locked goroutine and
// waits up to timeout for it to become visible.
func startWorker(b Backend, d Display, opacity float64, timeout time.Duration, log logger.Logger) (*worker, error) {
	s, err := b.NewSurface(d, opacity)
	if err != nil {
		return nil, err
	}
	w := &worker{display: d, surface: s, done: make(chan struct{})}

	result := make(chan error, 1)
	var once sync.Once
	report := func(err error) { once.Do(func() { result <- err }) }

	go func() {
		defer close(w.done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		var visible atomic.Bool
		err := s.Run(func() {
			visible.Store(true)
			report(nil)
		})
		if !visible.Load() {
			if err == nil {
				err = errExitedEarly
			}
			report(err)
			return
		}
		if err != nil {
			log.Warning("overlay surface %s exited: %v", d.ID, err)
		}
	}()

	select {
	case err := <-result:
		if err != nil {
			return nil, err
		}
		return w, nil
	case <-time.After(timeout):
		_ = s.Close()
		return nil, fmt.Errorf("surface for %s not ready after %s", d.ID, timeout)
	}
}

func (w *worker) alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}
