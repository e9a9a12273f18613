package overlay

import (
	"math"
	"sync"
	"sync/atomic"
)

// DefaultHeadlessDisplay is used when a Headless backend is given no
// displays.
var DefaultHeadlessDisplay = Display{ID: "headless-0", Width: 1920, Height: 1080, Primary: true}

// Headless is a backend without windows. Surfaces only track their
// opacity; the daemon uses it where no native backend exists.
type Headless struct {
	displays []Display

	mu       sync.Mutex
	surfaces map[string]*HeadlessSurface
}

// NewHeadless returns a backend exposing displays.
func NewHeadless(displays []Display) *Headless {
	if len(displays) == 0 {
		displays = []Display{DefaultHeadlessDisplay}
	}
	return &Headless{displays: displays, surfaces: make(map[string]*HeadlessSurface)}
}

func (h *Headless) Name() string { return BackendHeadless }

func (h *Headless) Displays() ([]Display, error) {
	return append([]Display(nil), h.displays...), nil
}

func (h *Headless) NewSurface(d Display, opacity float64) (Surface, error) {
	s := &HeadlessSurface{display: d, quit: make(chan struct{})}
	s.opacity.Store(math.Float64bits(opacity))
	h.mu.Lock()
	h.surfaces[d.ID] = s
	h.mu.Unlock()
	return s, nil
}

// Surface returns the last surface created for display id.
func (h *Headless) Surface(id string) (*HeadlessSurface, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.surfaces[id]
	return s, ok
}

// HeadlessSurface records the opacity it was given.
type HeadlessSurface struct {
	display Display
	opacity atomic.Uint64
	quit    chan struct{}
	once    sync.Once
}

func (s *HeadlessSurface) Run(ready func()) error {
	ready()
	<-s.quit
	return nil
}

func (s *HeadlessSurface) SetOpacity(opacity float64) error {
	s.opacity.Store(math.Float64bits(opacity))
	return nil
}

func (s *HeadlessSurface) Close() error {
	s.once.Do(func() { close(s.quit) })
	return nil
}

// Opacity is the last opacity set.
func (s *HeadlessSurface) Opacity() float64 {
	return math.Float64frombits(s.opacity.Load())
}

// Closed reports whether Close was called.
func (s *HeadlessSurface) Closed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}
