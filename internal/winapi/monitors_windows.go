//go:build windows

package winapi

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	moduser32 = windows.NewLazySystemDLL("user32.dll")
	moddxva2  = windows.NewLazySystemDLL("dxva2.dll")

	procEnumDisplayMonitors = moduser32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = moduser32.NewProc("GetMonitorInfoW")
)

// Rect mirrors the Win32 RECT structure.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Width of the rectangle in pixels.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height of the rectangle in pixels.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Monitor is one attached display.
type Monitor struct {
	Handle  windows.Handle
	Device  string
	Bounds  Rect
	Primary bool
}

type monitorInfoEx struct {
	cbSize    uint32
	rcMonitor Rect
	rcWork    Rect
	dwFlags   uint32
	szDevice  [32]uint16
}

const monitorInfoFPrimary = 0x1

var (
	enumMu       sync.Mutex
	enumResult   []windows.Handle
	enumCallback = windows.NewCallback(func(hmon, hdc uintptr, rect *Rect, lparam uintptr) uintptr {
		enumResult = append(enumResult, windows.Handle(hmon))
		return 1
	})
)

// Monitors enumerates attached displays with their virtual-screen bounds.
func Monitors() ([]Monitor, error) {
	enumMu.Lock()
	enumResult = enumResult[:0]
	r, _, err := procEnumDisplayMonitors.Call(0, 0, enumCallback, 0)
	handles := append([]windows.Handle(nil), enumResult...)
	enumMu.Unlock()
	if r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	monitors := make([]Monitor, 0, len(handles))
	for _, h := range handles {
		var mi monitorInfoEx
		mi.cbSize = uint32(unsafe.Sizeof(mi))
		r, _, err := procGetMonitorInfoW.Call(uintptr(h), uintptr(unsafe.Pointer(&mi)))
		if r == 0 {
			return nil, fmt.Errorf("GetMonitorInfoW: %w", err)
		}
		monitors = append(monitors, Monitor{
			Handle:  h,
			Device:  windows.UTF16ToString(mi.szDevice[:]),
			Bounds:  mi.rcMonitor,
			Primary: mi.dwFlags&monitorInfoFPrimary != 0,
		})
	}
	return monitors, nil
}
