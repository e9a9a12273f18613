//go:build windows

package winapi

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modgdi32    = windows.NewLazySystemDLL("gdi32.dll")

	procGetModuleHandleW           = modkernel32.NewProc("GetModuleHandleW")
	procGetStockObject             = modgdi32.NewProc("GetStockObject")
	procRegisterClassExW           = moduser32.NewProc("RegisterClassExW")
	procCreateWindowExW            = moduser32.NewProc("CreateWindowExW")
	procDestroyWindow              = moduser32.NewProc("DestroyWindow")
	procDefWindowProcW             = moduser32.NewProc("DefWindowProcW")
	procShowWindow                 = moduser32.NewProc("ShowWindow")
	procSetLayeredWindowAttributes = moduser32.NewProc("SetLayeredWindowAttributes")
	procGetMessageW                = moduser32.NewProc("GetMessageW")
	procTranslateMessage           = moduser32.NewProc("TranslateMessage")
	procDispatchMessageW           = moduser32.NewProc("DispatchMessageW")
	procPostMessageW               = moduser32.NewProc("PostMessageW")
	procPostQuitMessage            = moduser32.NewProc("PostQuitMessage")
)

// Window messages used by overlay windows.
const (
	WMDestroy = 0x0002
	WMClose   = 0x0010
	// WMSetAlpha carries the new alpha in wParam.
	WMSetAlpha = 0x8000 + 1
)

const (
	wsPopup = 0x80000000

	wsExTopmost     = 0x00000008
	wsExTransparent = 0x00000020
	wsExToolWindow  = 0x00000080
	wsExLayered     = 0x00080000
	wsExNoActivate  = 0x08000000

	lwaAlpha         = 0x2
	swShowNoActivate = 4
	blackBrush       = 4
)

type wndClassEx struct {
	size       uint32
	style      uint32
	wndProc    uintptr
	clsExtra   int32
	wndExtra   int32
	instance   windows.Handle
	icon       windows.Handle
	cursor     windows.Handle
	background windows.Handle
	menuName   *uint16
	className  *uint16
	iconSm     windows.Handle
}

type point struct{ x, y int32 }

type msg struct {
	hwnd    windows.HWND
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      point
	private uint32
}

var overlayClass = windows.StringToUTF16Ptr("AutoBrightOverlay")

var (
	registerOnce sync.Once
	registerErr  error
	instance     windows.Handle
	wndProc      = windows.NewCallback(overlayWndProc)
)

func overlayWndProc(hwnd windows.HWND, message uint32, wParam, lParam uintptr) uintptr {
	switch message {
	case WMSetAlpha:
		procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, wParam&0xff, lwaAlpha)
		return 0
	case WMDestroy:
		procPostQuitMessage.Call(0)
		return 0
	}
	r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(message), wParam, lParam)
	return r
}

func registerOverlayClass() error {
	registerOnce.Do(func() {
		h, _, err := procGetModuleHandleW.Call(0)
		if h == 0 {
			registerErr = fmt.Errorf("GetModuleHandleW: %w", err)
			return
		}
		instance = windows.Handle(h)
		brush, _, _ := procGetStockObject.Call(blackBrush)
		wc := wndClassEx{
			wndProc:    wndProc,
			instance:   instance,
			background: windows.Handle(brush),
			className:  overlayClass,
		}
		wc.size = uint32(unsafe.Sizeof(wc))
		if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
			registerErr = fmt.Errorf("RegisterClassExW: %w", err)
		}
	})
	return registerErr
}

// CreateOverlayWindow creates a black, click-through, topmost popup covering
// bounds and shows it without activating it. The window belongs to the
// calling thread, which must run MessageLoop.
func CreateOverlayWindow(bounds Rect, alpha byte) (windows.HWND, error) {
	if err := registerOverlayClass(); err != nil {
		return 0, err
	}
	h, _, err := procCreateWindowExW.Call(
		wsExLayered|wsExTransparent|wsExTopmost|wsExNoActivate|wsExToolWindow,
		uintptr(unsafe.Pointer(overlayClass)),
		0,
		wsPopup,
		uintptr(bounds.Left), uintptr(bounds.Top),
		uintptr(bounds.Width()), uintptr(bounds.Height()),
		0, 0, uintptr(instance), 0,
	)
	if h == 0 {
		return 0, fmt.Errorf("CreateWindowExW: %w", err)
	}
	hwnd := windows.HWND(h)
	if r, _, err := procSetLayeredWindowAttributes.Call(h, 0, uintptr(alpha), lwaAlpha); r == 0 {
		procDestroyWindow.Call(h)
		return 0, fmt.Errorf("SetLayeredWindowAttributes: %w", err)
	}
	procShowWindow.Call(h, swShowNoActivate)
	return hwnd, nil
}

// PostMessage queues a message for hwnd's thread.
func PostMessage(hwnd windows.HWND, message uint32, wParam, lParam uintptr) error {
	if r, _, err := procPostMessageW.Call(uintptr(hwnd), uintptr(message), wParam, lParam); r == 0 {
		return fmt.Errorf("PostMessageW: %w", err)
	}
	return nil
}

// MessageLoop pumps the calling thread's queue until WM_QUIT.
func MessageLoop() error {
	var m msg
	for {
		r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case 0:
			return nil
		case -1:
			if err == nil {
				err = errors.New("unknown error")
			}
			return fmt.Errorf("GetMessageW: %w", err)
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}
