package overlay

import (
	"errors"
	"fmt"
)

// ErrNoDisplays is returned by Start when no surface could be created.
var ErrNoDisplays = errors.New("no overlay surface could be created")

// Display is one output the overlay covers, in virtual-screen pixels.
type Display struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Primary bool   `json:"primary"`
}

func (d Display) String() string {
	return fmt.Sprintf("%s (%dx%d at %d,%d)", d.ID, d.Width, d.Height, d.X, d.Y)
}

// Backend creates surfaces for the current platform.
type Backend interface {
	Name() string
	Displays() ([]Display, error)
	NewSurface(d Display, opacity float64) (Surface, error)
}

// Surface is one dimming window.
type Surface interface {
	// Run creates the window on the calling goroutine, calls ready once it
	// is visible and processes its events until Close. It runs on a
	// goroutine locked to its OS thread.
	Run(ready func()) error
	// SetOpacity queues an opacity change; it does not wait for the
	// surface's thread.
	SetOpacity(opacity float64) error
	// Close asks the surface to exit; Run returns afterwards.
	Close() error
}

// Backend names accepted by OpenBackend.
const (
	BackendAuto     = "auto"
	BackendHeadless = "headless"
)

// OpenBackend returns the named backend. "auto" picks the native backend
// when the platform has one.
func OpenBackend(name string) (Backend, error) {
	switch name {
	case "", BackendAuto:
		if b := nativeBackend(); b != nil {
			return b, nil
		}
		return NewHeadless(nil), nil
	case BackendHeadless:
		return NewHeadless(nil), nil
	default:
		return nil, fmt.Errorf("unknown overlay backend %q", name)
	}
}
