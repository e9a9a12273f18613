//go:build windows

package winapi

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	procGetNumberOfPhysicalMonitorsFromHMONITOR = moddxva2.NewProc("GetNumberOfPhysicalMonitorsFromHMONITOR")
	procGetPhysicalMonitorsFromHMONITOR         = moddxva2.NewProc("GetPhysicalMonitorsFromHMONITOR")
	procDestroyPhysicalMonitors                 = moddxva2.NewProc("DestroyPhysicalMonitors")
	procGetMonitorBrightness                    = moddxva2.NewProc("GetMonitorBrightness")
	procSetMonitorBrightness                    = moddxva2.NewProc("SetMonitorBrightness")
)

// PhysicalMonitor mirrors PHYSICAL_MONITOR.
type PhysicalMonitor struct {
	Handle      windows.Handle
	description [128]uint16
}

// Description is the driver supplied monitor name.
func (p PhysicalMonitor) Description() string {
	return windows.UTF16ToString(p.description[:])
}

// PhysicalMonitors opens the DDC/CI handles behind a display monitor.
// Release them with DestroyPhysicalMonitors.
func PhysicalMonitors(hmon windows.Handle) ([]PhysicalMonitor, error) {
	var n uint32
	r, _, err := procGetNumberOfPhysicalMonitorsFromHMONITOR.Call(uintptr(hmon), uintptr(unsafe.Pointer(&n)))
	if r == 0 {
		return nil, fmt.Errorf("GetNumberOfPhysicalMonitorsFromHMONITOR: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	pms := make([]PhysicalMonitor, n)
	r, _, err = procGetPhysicalMonitorsFromHMONITOR.Call(uintptr(hmon), uintptr(n), uintptr(unsafe.Pointer(&pms[0])))
	if r == 0 {
		return nil, fmt.Errorf("GetPhysicalMonitorsFromHMONITOR: %w", err)
	}
	return pms, nil
}

// DestroyPhysicalMonitors releases handles returned by PhysicalMonitors.
func DestroyPhysicalMonitors(pms []PhysicalMonitor) {
	if len(pms) == 0 {
		return
	}
	_, _, _ = procDestroyPhysicalMonitors.Call(uintptr(len(pms)), uintptr(unsafe.Pointer(&pms[0])))
}

// MonitorBrightness reads the DDC/CI brightness range and value.
func MonitorBrightness(pm PhysicalMonitor) (minimum, current, maximum uint32, err error) {
	r, _, e := procGetMonitorBrightness.Call(
		uintptr(pm.Handle),
		uintptr(unsafe.Pointer(&minimum)),
		uintptr(unsafe.Pointer(&current)),
		uintptr(unsafe.Pointer(&maximum)),
	)
	if r == 0 {
		return 0, 0, 0, fmt.Errorf("GetMonitorBrightness: %w", e)
	}
	return minimum, current, maximum, nil
}

// SetMonitorBrightness writes a raw DDC/CI brightness value.
func SetMonitorBrightness(pm PhysicalMonitor, value uint32) error {
	r, _, e := procSetMonitorBrightness.Call(uintptr(pm.Handle), uintptr(value))
	if r == 0 {
		return fmt.Errorf("SetMonitorBrightness: %w", e)
	}
	return nil
}
