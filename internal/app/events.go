package app

import (
	"fmt"
	"time"

	"github.com/autobright/autobright/internal/schedule"
)

// DefaultDuration selects the configured manual transition.
const DefaultDuration time.Duration = -1

// Event is an input to Service.Update.
type Event interface {
	event()
	String() string
}

// ScheduleTriggered is sent by the schedule monitor when an entry is due.
type ScheduleTriggered struct {
	Time              schedule.TimeOfDay
	Brightness        int
	OverlayBrightness int
}

// BrightnessChanged is a manual hardware brightness change.
type BrightnessChanged struct {
	Percent  int
	Duration time.Duration
}

// OverlayChanged is a manual overlay change. 100 or more turns it off.
type OverlayChanged struct {
	Percent  int
	Duration time.Duration
}

// Activate is sent when a second instance asks the running one to show
// itself.
type Activate struct{}

func (ScheduleTriggered) event() {}
func (BrightnessChanged) event() {}
func (OverlayChanged) event()    {}
func (Activate) event()          {}

func (e ScheduleTriggered) String() string {
	return fmt.Sprintf("schedule %s (brightness %d%%, overlay %d%%)", e.Time.Short(), e.Brightness, e.OverlayBrightness)
}

func (e BrightnessChanged) String() string {
	return fmt.Sprintf("brightness %d%%", e.Percent)
}

func (e OverlayChanged) String() string {
	return fmt.Sprintf("overlay %d%%", e.Percent)
}

func (Activate) String() string { return "activate" }
