//go:build windows

package brightness

import (
	"errors"
	"fmt"
	"math"

	"github.com/autobright/autobright/internal/winapi"
)

// DDCCI controls external monitors over DDC/CI through dxva2. Get reports
// the first monitor that answers; Set writes every monitor.
type DDCCI struct{}

// NewDDCCI verifies that at least one monitor answers DDC/CI.
func NewDDCCI() (*DDCCI, error) {
	d := &DDCCI{}
	if _, err := d.Get(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DDCCI) each(fn func(pm winapi.PhysicalMonitor) error) error {
	monitors, err := winapi.Monitors()
	if err != nil {
		return err
	}
	var errs []error
	handled := 0
	for _, m := range monitors {
		pms, err := winapi.PhysicalMonitors(m.Handle)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Device, err))
			continue
		}
		for _, pm := range pms {
			if err := fn(pm); err != nil {
				errs = append(errs, fmt.Errorf("%s (%s): %w", m.Device, pm.Description(), err))
				continue
			}
			handled++
		}
		winapi.DestroyPhysicalMonitors(pms)
	}
	if handled == 0 {
		if len(errs) == 0 {
			return ErrUnavailable
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}
	return nil
}

func (d *DDCCI) Get() (int, error) {
	value := -1
	err := d.each(func(pm winapi.PhysicalMonitor) error {
		if value >= 0 {
			return nil
		}
		lo, cur, hi, err := winapi.MonitorBrightness(pm)
		if err != nil {
			return err
		}
		value = scaleToPercent(cur, lo, hi)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (d *DDCCI) Set(percent int) error {
	return d.each(func(pm winapi.PhysicalMonitor) error {
		lo, _, hi, err := winapi.MonitorBrightness(pm)
		if err != nil {
			return err
		}
		return winapi.SetMonitorBrightness(pm, scaleFromPercent(percent, lo, hi))
	})
}

func scaleToPercent(cur, lo, hi uint32) int {
	if hi <= lo {
		return Clamp(int(cur))
	}
	if cur < lo {
		return 0
	}
	return Clamp(int(math.Round(float64(cur-lo) * 100 / float64(hi-lo))))
}

func scaleFromPercent(percent int, lo, hi uint32) uint32 {
	if hi <= lo {
		return uint32(Clamp(percent))
	}
	return lo + uint32(math.Round(float64(Clamp(percent))/100*float64(hi-lo)))
}
