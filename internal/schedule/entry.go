// Package schedule owns the time-of-day brightness schedule: an ordered,
// persisted collection of entries with at most one entry per time of day.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

var (
	// ErrNotFound is returned for an unknown entry id.
	ErrNotFound = errors.New("schedule entry not found")
	// ErrDuplicateTime is returned when an entry already uses the time of day.
	ErrDuplicateTime = errors.New("a schedule entry already exists at this time")
	// ErrOutOfRange is returned for percentages outside [0,100] or a time of
	// day outside [00:00, 24:00).
	ErrOutOfRange = errors.New("value out of range")
	// ErrInvalidTime is returned by ParseTimeOfDay for malformed input.
	ErrInvalidTime = errors.New("invalid time of day, expected HH:MM or HH:MM:SS")
)

// Day is the length of the time-of-day domain.
const Day = 24 * time.Hour

// TimeOfDay is a duration since local midnight with second resolution.
type TimeOfDay time.Duration

// At builds a TimeOfDay from hours, minutes and seconds.
func At(h, m, s int) TimeOfDay {
	return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// Of returns the local time of day of t.
func Of(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return At(h, m, s) + TimeOfDay(time.Duration(t.Nanosecond()))
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	limits := []int{23, 59, 59}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] || len(p) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		vals[i] = v
	}
	return At(vals[0], vals[1], vals[2]), nil
}

func (t TimeOfDay) Duration() time.Duration { return time.Duration(t) }

// Valid reports whether t lies in [00:00, 24:00).
func (t TimeOfDay) Valid() bool { return t >= 0 && time.Duration(t) < Day }

// Clock splits t into hours, minutes and seconds.
func (t TimeOfDay) Clock() (h, m, s int) {
	d := time.Duration(t).Truncate(time.Second)
	return int(d / time.Hour), int(d % time.Hour / time.Minute), int(d % time.Minute / time.Second)
}

// String formats t as HH:MM:SS.
func (t TimeOfDay) String() string {
	h, m, s := t.Clock()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Short formats t as HH:MM, the way entries are displayed.
func (t TimeOfDay) Short() string {
	h, m, _ := t.Clock()
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Since returns how far now lies after t, wrapped into [0, 24h).
func (t TimeOfDay) Since(now TimeOfDay) time.Duration {
	d := (time.Duration(now) - time.Duration(t)) % Day
	if d < 0 {
		d += Day
	}
	return d
}

// Entry is one scheduled brightness change.
type Entry struct {
	ID   int       `json:"id"`
	Time TimeOfDay `json:"time"`
	// Brightness is the hardware brightness target in percent.
	Brightness int `json:"brightness"`
	// OverlayBrightness is the overlay level; 100 means no overlay.
	OverlayBrightness int  `json:"overlayBrightness"`
	Enabled           bool `json:"enabled"`
}

func (e Entry) String() string {
	s := fmt.Sprintf("%s - %d%%", e.Time.Short(), e.Brightness)
	if !e.Enabled {
		s += " (Disabled)"
	}
	return s
}

// CronExpr is the daily cron expression matching e's hour and minute.
func (e Entry) CronExpr() string {
	h, m, _ := e.Time.Clock()
	return fmt.Sprintf("%d %d * * *", m, h)
}

// NextRun returns the next time after now at which e is due.
func NextRun(e Entry, now time.Time) (time.Time, error) {
	_, _, s := e.Time.Clock()
	offset := time.Duration(s) * time.Second
	next, err := gronx.NextTickAfter(e.CronExpr(), now.Add(-offset), false)
	if err != nil {
		return time.Time{}, fmt.Errorf("next run of %s: %w", e.Time, err)
	}
	return next.Add(offset), nil
}

func validPercent(p int) bool { return p >= 0 && p <= 100 }
