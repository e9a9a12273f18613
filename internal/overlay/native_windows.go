//go:build windows

package overlay

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/autobright/autobright/internal/winapi"
)

func nativeBackend() Backend { return layeredBackend{} }

// layeredBackend draws one layered popup per monitor.
type layeredBackend struct{}

func (layeredBackend) Name() string { return "layered" }

func (layeredBackend) Displays() ([]Display, error) {
	monitors, err := winapi.Monitors()
	if err != nil {
		return nil, err
	}
	out := make([]Display, 0, len(monitors))
	for i, m := range monitors {
		id := m.Device
		if id == "" {
			id = fmt.Sprintf("monitor-%d", i)
		}
		out = append(out, Display{
			ID:      id,
			X:       int(m.Bounds.Left),
			Y:       int(m.Bounds.Top),
			Width:   int(m.Bounds.Width()),
			Height:  int(m.Bounds.Height()),
			Primary: m.Primary,
		})
	}
	return out, nil
}

func (layeredBackend) NewSurface(d Display, opacity float64) (Surface, error) {
	return &layeredSurface{display: d, alpha: alphaOf(opacity)}, nil
}

type layeredSurface struct {
	display Display
	alpha   byte

	mu   sync.Mutex
	hwnd windows.HWND
}

func (s *layeredSurface) Run(ready func()) error {
	b := winapi.Rect{
		Left:   int32(s.display.X),
		Top:    int32(s.display.Y),
		Right:  int32(s.display.X + s.display.Width),
		Bottom: int32(s.display.Y + s.display.Height),
	}
	s.mu.Lock()
	hwnd, err := winapi.CreateOverlayWindow(b, s.alpha)
	s.hwnd = hwnd
	s.mu.Unlock()
	if err != nil {
		return err
	}
	ready()
	return winapi.MessageLoop()
}

func (s *layeredSurface) post(message uint32, wParam uintptr) error {
	s.mu.Lock()
	hwnd := s.hwnd
	s.mu.Unlock()
	if hwnd == 0 {
		return fmt.Errorf("overlay window for %s not created", s.display.ID)
	}
	return winapi.PostMessage(hwnd, message, wParam, 0)
}

func (s *layeredSurface) SetOpacity(opacity float64) error {
	return s.post(winapi.WMSetAlpha, uintptr(alphaOf(opacity)))
}

func (s *layeredSurface) Close() error {
	return s.post(winapi.WMClose, 0)
}
